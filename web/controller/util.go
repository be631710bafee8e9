package controller

import (
	"net/http"
	"strings"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/entity"
	"github.com/bookshelf-app/bookshelf/web/locale"
	"github.com/bookshelf-app/bookshelf/web/service"
	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

// jsonObj sends a JSON response with an object and error status.
func jsonObj(c *gin.Context, obj any, err error) {
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.Msg{Success: true, Obj: obj})
}

// pureJsonMsg sends a pure JSON message response with custom status code.
func pureJsonMsg(c *gin.Context, statusCode int, success bool, msg string) {
	c.JSON(statusCode, entity.Msg{
		Success: success,
		Msg:     msg,
	})
}

// jsonError maps a service error onto a status code and a JSON message.
func jsonError(c *gin.Context, err error) {
	code, msg := errorStatus(c, err)
	pureJsonMsg(c, code, false, msg)
}

// errorStatus picks the status for err. Only typed service errors expose their
// message; anything else is logged and replaced by a generic one.
func errorStatus(c *gin.Context, err error) (int, string) {
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case service.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case service.IsIntegrity(err):
		logger.Warning("integrity violation:", err)
		return http.StatusConflict, I18nWeb(c, "errors.conflict")
	case service.IsAuthorization(err):
		return http.StatusForbidden, I18nWeb(c, "errors.forbidden")
	default:
		logger.Errorf("[%s] %s %s failed: %v", c.GetString("requestId"), c.Request.Method, c.Request.URL.Path, err)
		return http.StatusInternalServerError, I18nWeb(c, "errors.internal")
	}
}

// renderError renders the error page for err.
func renderError(c *gin.Context, err error) {
	code, msg := errorStatus(c, err)
	htmlStatus(c, code, "error.html", "pages.error.title", gin.H{"message": msg, "code": code})
}

// I18nWeb retrieves an internationalized message for the current request.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return locale.I18n(locale.FromContext(c), name, params...)
}

// html renders an HTML template with the provided data and title.
func html(c *gin.Context, name string, title string, data gin.H) {
	htmlStatus(c, http.StatusOK, name, title, data)
}

func htmlStatus(c *gin.Context, code int, name string, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	data["request_uri"] = c.Request.RequestURI
	data["base_path"] = c.GetString("base_path")
	data["loc"] = locale.FromContext(c)
	data["user_email"] = currentEmail(c)
	c.HTML(code, name, getContext(data))
}

// getContext adds version and other context data to the provided gin.H.
func getContext(h gin.H) gin.H {
	a := gin.H{
		"cur_ver":  config.GetVersion(),
		"app_name": config.GetName(),
	}
	for key, value := range h {
		a[key] = value
	}
	return a
}

// currentEmail returns the email of the logged-in user, or "".
func currentEmail(c *gin.Context) string {
	if user := session.GetLoginUser(c); user != nil {
		return user.Email
	}
	return ""
}

// isAjax checks if the request is an AJAX request.
func isAjax(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// safeNext returns next when it is a local path under basePath, otherwise basePath.
func safeNext(basePath, next string) string {
	if next == "" || !strings.HasPrefix(next, basePath) || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return basePath
	}
	return next
}

// NotFound renders the 404 page, or a JSON message for API and ajax callers.
func NotFound(c *gin.Context) {
	err := &service.NotFoundError{Resource: "page", ID: c.Request.URL.Path}
	if isAjax(c) || strings.HasPrefix(c.Request.URL.Path, c.GetString("base_path")+"api/") {
		jsonError(c, err)
		return
	}
	renderError(c, err)
}

// jsonMsg sends msg on success. On failure the error's status is used and its
// public text is appended to msg.
func jsonMsg(c *gin.Context, msg string, err error) {
	if err != nil {
		code, detail := errorStatus(c, err)
		pureJsonMsg(c, code, false, msg+" ("+detail+")")
		return
	}
	pureJsonMsg(c, http.StatusOK, true, msg)
}
