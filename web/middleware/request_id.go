package middleware

import (
	"strings"
	"time"

	"github.com/bookshelf-app/bookshelf/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "requestId"
)

// RequestID tags every request with an id, reusing a well-formed incoming
// one, and writes an access line at debug level once the handler returns.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		if shouldSkipAccessLog(c.Request.URL.Path) {
			return
		}
		logger.Debugf("[%s] %s %s %d %v", id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func shouldSkipAccessLog(path string) bool {
	for _, skipPath := range []string{"/assets/", "/favicon.ico"} {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}
