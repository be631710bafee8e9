// Package controller provides the HTTP handlers of the bookshelf panel: the
// public home and login pages, the catalog pages, the admin pages and the
// JSON API.
package controller

import (
	"net/http"
	"net/url"

	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct{}

// checkLogin is a middleware that sends anonymous visitors to the login page.
func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsLogin(c) {
		if isAjax(c) {
			pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.loginAgain"))
		} else {
			target := c.GetString("base_path") + "login"
			if c.Request.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			}
			c.Redirect(http.StatusFound, target)
		}
		c.Abort()
	} else {
		c.Next()
	}
}
