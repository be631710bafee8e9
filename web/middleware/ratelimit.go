package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/cache"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	Prefix    string
	KeyFunc   func(c *gin.Context) string
	SkipPaths []string
	// Methods limits counting to these methods; empty means all.
	Methods []string
	// OnLimit writes the rejection. Defaults to a JSON 429.
	OnLimit gin.HandlerFunc
}

// LoginRateLimitConfig allows ten login attempts per client IP per minute.
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
		Prefix:   cache.KeyRateLimitLogin,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		SkipPaths: []string{"/assets/", "/favicon.ico"},
		Methods:   []string{http.MethodPost},
	}
}

func (config RateLimitConfig) shouldSkip(c *gin.Context) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(c.Request.URL.Path, skipPath) {
			return true
		}
	}
	if len(config.Methods) == 0 {
		return false
	}
	for _, m := range config.Methods {
		if c.Request.Method == m {
			return false
		}
	}
	return true
}

// RateLimitMiddleware counts requests per key in fixed windows stored in the
// cache. When the cache fails the request is let through.
func RateLimitMiddleware(store *cache.Cache, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || config.shouldSkip(c) {
			c.Next()
			return
		}

		key := config.KeyFunc(c)
		count, err := store.Hit(config.Prefix+key, config.Window)
		if err != nil {
			logger.Warning("Rate limit increment failed:", err)
			c.Next()
			return
		}

		remaining := max(config.Requests-int(count), 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > config.Requests {
			logger.Warningf("Rate limit exceeded for %s on %s (count: %d)", key, c.Request.URL.Path, count)
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			if config.OnLimit != nil {
				config.OnLimit(c)
			} else {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"success": false,
					"msg":     "Rate limit exceeded. Please try again later.",
				})
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
