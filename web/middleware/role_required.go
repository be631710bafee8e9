package middleware

import (
	"net/http"

	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

// RoleChecker answers whether the user with this email holds a role.
type RoleChecker interface {
	HasRole(email string, role model.RoleName) bool
}

// RoleRequired lets the request through only when the logged-in user holds
// role. Anonymous requests get 401. Others are passed to denied, or get a bare
// 403 when denied is nil.
func RoleRequired(checker RoleChecker, role model.RoleName, denied gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := session.GetLoginUser(c)
		if user == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !checker.HasRole(user.Email, role) {
			logger.Warningf("%s denied %s %s: role %s required", user.Email, c.Request.Method, c.Request.URL.Path, role)
			if denied != nil {
				denied(c)
			} else {
				c.Status(http.StatusForbidden)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
