package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// APICORS answers cross-origin requests for the JSON API under basePath+"api/".
// Other paths are untouched. An origin list of "*" allows every origin.
func APICORS(basePath string, origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	config.MaxAge = 12 * time.Hour
	handler := cors.New(config)

	prefix := basePath + "api/"
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			handler(c)
		}
	}
}
