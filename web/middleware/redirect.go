package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// aliasPaths maps convenience spellings of the page routes to the routes.
var aliasPaths = map[string]string{
	"books":      "all_books",
	"add_book":   "addbook",
	"seed_db":    "seedDB",
	"erase_db":   "erase_DB",
	"index.html": "",
}

// RedirectMiddleware answers alias paths with a 301 to the matching route.
func RedirectMiddleware(basePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for from, to := range aliasPaths {
			from, to = basePath+from, basePath+to

			if path == from || strings.HasPrefix(path, from+"/") {
				newPath := to + path[len(from):]

				c.Redirect(http.StatusMovedPermanently, newPath)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
