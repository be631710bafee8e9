package middleware

import (
	"fmt"

	"github.com/bookshelf-app/bookshelf/logger"

	"github.com/gin-gonic/gin"
)

// TrustProxies limits which peers may set the client address through
// X-Forwarded-For or X-Real-IP. With no proxies every forwarded header is
// ignored and c.ClientIP() is the socket address.
func TrustProxies(engine *gin.Engine, proxies []string) error {
	if len(proxies) == 0 {
		return engine.SetTrustedProxies(nil)
	}
	if err := engine.SetTrustedProxies(proxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	logger.Info("Trusting forwarded headers from", proxies)
	return nil
}
