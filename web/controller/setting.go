package controller

import (
	"net/http"
	"time"

	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/util/crypto"
	"github.com/bookshelf-app/bookshelf/web/entity"
	"github.com/bookshelf-app/bookshelf/web/middleware"
	"github.com/bookshelf-app/bookshelf/web/service"
	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

// updatePasswordForm changes the signed-in user's password.
type updatePasswordForm struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// SettingController serves the panel settings to admins and the password
// change to every signed-in user. All routes answer JSON.
type SettingController struct {
	BaseController

	settingService *service.SettingService
	userService    *service.UserService
	panelService   *service.PanelService
}

func NewSettingController(g *gin.RouterGroup, settings *service.SettingService, users *service.UserService, panel *service.PanelService) *SettingController {
	a := &SettingController{settingService: settings, userService: users, panelService: panel}
	a.initRouter(g)
	return a
}

func (a *SettingController) initRouter(g *gin.RouterGroup) {
	user := g.Group("/setting", a.checkLogin)
	user.POST("/updatePassword", a.updatePassword)

	admin := g.Group("/admin/setting", a.checkLogin, middleware.RoleRequired(a.userService, model.RoleAdmin, forbiddenJSON))
	admin.POST("/all", a.getAllSetting)
	admin.POST("/update", a.updateSetting)
	admin.POST("/restartPanel", a.restartPanel)
}

func forbiddenJSON(c *gin.Context) {
	jsonError(c, &service.AuthorizationError{Role: model.RoleAdmin})
}

func (a *SettingController) getAllSetting(c *gin.Context) {
	allSetting, err := a.settingService.GetAllSetting()
	if err != nil {
		jsonMsg(c, I18nWeb(c, "pages.settings.toasts.getSettings"), err)
		return
	}
	jsonObj(c, allSetting, nil)
}

func (a *SettingController) updateSetting(c *gin.Context) {
	allSetting := &entity.AllSetting{}
	if err := c.ShouldBind(allSetting); err != nil {
		jsonMsg(c, I18nWeb(c, "pages.settings.toasts.modifySettings"), &service.ValidationError{Field: "settings", Msg: "could not be read"})
		return
	}
	err := a.settingService.UpdateAllSetting(allSetting)
	jsonMsg(c, I18nWeb(c, "pages.settings.toasts.modifySettings"), err)
}

func (a *SettingController) updatePassword(c *gin.Context) {
	form := &updatePasswordForm{}
	if err := c.ShouldBind(form); err != nil {
		jsonMsg(c, I18nWeb(c, "pages.settings.toasts.modifyUserError"), &service.ValidationError{Field: "form", Msg: "could not be read"})
		return
	}
	if form.NewPassword == "" {
		jsonMsg(c, I18nWeb(c, "pages.settings.toasts.modifyUserError"),
			&service.ValidationError{Field: "newPassword", Msg: I18nWeb(c, "pages.settings.toasts.passMustBeNotEmpty")})
		return
	}

	loginUser := session.GetLoginUser(c)
	user, err := a.userService.GetUser(loginUser.Id)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "pages.settings.toasts.modifyUserError"), err)
		return
	}
	if !crypto.CheckPasswordHash(user.Password, form.OldPassword) {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.settings.toasts.originalPassIncorrect"))
		return
	}
	err = a.userService.UpdatePassword(user.Id, form.NewPassword)
	jsonMsg(c, I18nWeb(c, "pages.settings.toasts.modifyUser"), err)
}

func (a *SettingController) restartPanel(c *gin.Context) {
	err := a.panelService.RestartPanel(3 * time.Second)
	jsonMsg(c, I18nWeb(c, "pages.settings.restartPanelSuccess"), err)
}
