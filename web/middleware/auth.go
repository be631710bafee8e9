package middleware

import (
	"net/http"
	"strings"

	"github.com/bookshelf-app/bookshelf/web/service"

	"github.com/gin-gonic/gin"
)

// APIClaimsKey holds the *service.TokenClaims of an authenticated API request.
const APIClaimsKey = "apiClaims"

// TokenParser validates bearer tokens.
type TokenParser interface {
	ParseToken(token string) (*service.TokenClaims, error)
}

// ApiAuth requires an "Authorization: Bearer <token>" header.
func ApiAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "msg": "bearer token is required"})
			c.Abort()
			return
		}

		claims, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "msg": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(APIClaimsKey, claims)
		c.Next()
	}
}

// GetAPIClaims returns the claims stored by ApiAuth, or nil.
func GetAPIClaims(c *gin.Context) *service.TokenClaims {
	if v, ok := c.Get(APIClaimsKey); ok {
		if claims, ok := v.(*service.TokenClaims); ok {
			return claims
		}
	}
	return nil
}
