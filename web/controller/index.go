package controller

import (
	"net/http"
	"strings"

	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/cache"
	"github.com/bookshelf-app/bookshelf/web/entity"
	"github.com/bookshelf-app/bookshelf/web/middleware"
	"github.com/bookshelf-app/bookshelf/web/service"
	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// IndexController handles the home page, login and logout.
type IndexController struct {
	BaseController

	settingService *service.SettingService
	userService    *service.UserService
}

func NewIndexController(g *gin.RouterGroup, users *service.UserService, settings *service.SettingService, store *cache.Cache) *IndexController {
	a := &IndexController{settingService: settings, userService: users}
	a.initRouter(g, store)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup, store *cache.Cache) {
	limit := middleware.LoginRateLimitConfig()
	limit.OnLimit = a.loginLimited

	g.GET("/", a.index)
	g.GET("/login", a.loginPage)
	g.POST("/login", middleware.RateLimitMiddleware(store, limit), a.login)
	g.GET("/logout", a.logout)
}

func (a *IndexController) index(c *gin.Context) {
	html(c, "index.html", "pages.index.title", nil)
}

func (a *IndexController) loginPage(c *gin.Context) {
	if session.IsLogin(c) {
		c.Redirect(http.StatusFound, c.GetString("base_path"))
		return
	}
	html(c, "login.html", "pages.login.title", gin.H{"next": c.Query("next")})
}

func (a *IndexController) renderLogin(c *gin.Context, code int, form entity.LoginForm, msgKey string) {
	htmlStatus(c, code, "login.html", "pages.login.title", gin.H{
		"error": I18nWeb(c, msgKey),
		"email": form.Email,
		"next":  c.PostForm("next"),
	})
}

func (a *IndexController) loginLimited(c *gin.Context) {
	a.renderLogin(c, http.StatusTooManyRequests, entity.LoginForm{Email: c.PostForm("email")}, "pages.login.toasts.tooManyAttempts")
}

func (a *IndexController) login(c *gin.Context) {
	var form entity.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderLogin(c, http.StatusBadRequest, form, "pages.login.toasts.invalidFormData")
		return
	}
	form.Email = strings.TrimSpace(form.Email)
	if form.Email == "" {
		a.renderLogin(c, http.StatusBadRequest, form, "pages.login.toasts.emptyEmail")
		return
	}
	if form.Password == "" {
		a.renderLogin(c, http.StatusBadRequest, form, "pages.login.toasts.emptyPassword")
		return
	}

	user := a.userService.CheckUser(form.Email, form.Password)
	if user == nil {
		logger.Warningf("failed login for %q from %s", form.Email, c.ClientIP())
		a.renderLogin(c, http.StatusUnauthorized, form, "pages.login.toasts.wrongEmailOrPassword")
		return
	}

	sessionMaxAge, err := a.settingService.GetSessionMaxAge()
	if err != nil {
		logger.Warning("Unable to get session's max age from DB")
	}
	if sessionMaxAge > 0 {
		if err := session.SetMaxAge(c, sessionMaxAge*60); err != nil {
			logger.Warning("Unable to set session max age:", err)
		}
	}
	if err := session.SetLoginUser(c, user); err != nil {
		logger.Warning("Unable to save session:", err)
		renderError(c, err)
		return
	}

	logger.Infof("%s logged in successfully, Ip Address: %s", user.Email, c.ClientIP())
	c.Redirect(http.StatusSeeOther, safeNext(c.GetString("base_path"), c.PostForm("next")))
}

func (a *IndexController) logout(c *gin.Context) {
	user := session.GetLoginUser(c)
	if user != nil {
		logger.Infof("%s logged out successfully", user.Email)
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("Unable to clear session:", err)
	}
	if err := sessions.Default(c).Save(); err != nil {
		logger.Warning("Unable to save session after clearing:", err)
	}
	c.Redirect(http.StatusFound, c.GetString("base_path"))
}
