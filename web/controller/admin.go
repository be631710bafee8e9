package controller

import (
	"net/http"

	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/entity"
	"github.com/bookshelf-app/bookshelf/web/middleware"
	"github.com/bookshelf-app/bookshelf/web/service"
	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

// AdminController serves the pages reserved to the Admin role: account and
// role management, the demo-data switches and the recent log lines.
type AdminController struct {
	BaseController

	catalogService *service.CatalogService
	userService    *service.UserService
}

func NewAdminController(g *gin.RouterGroup, catalog *service.CatalogService, users *service.UserService) *AdminController {
	a := &AdminController{catalogService: catalog, userService: users}
	a.initRouter(g)
	return a
}

func (a *AdminController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin, middleware.RoleRequired(a.userService, model.RoleAdmin, forbidden))

	g.GET("/admin", a.adminPage)
	g.POST("/admin/users/:id/roles", a.changeRole)
	g.POST("/admin/users/:id/delete", a.deleteUser)
	g.GET("/seedDB", a.seedDB)
	g.GET("/erase_DB", a.eraseDB)
}

const adminLogLines = 50

// forbidden renders the 403 page for users lacking a role.
func forbidden(c *gin.Context) {
	renderError(c, &service.AuthorizationError{Role: model.RoleAdmin})
}

func (a *AdminController) renderAdmin(c *gin.Context, code int, data gin.H) {
	users, err := a.userService.ListUsers()
	if err != nil {
		renderError(c, err)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["users"] = users
	data["roles"] = model.DefaultRoles
	data["logs"] = logger.GetLogs(adminLogLines, c.DefaultQuery("level", "INFO"))
	htmlStatus(c, code, "admin.html", "pages.admin.title", data)
}

func (a *AdminController) adminPage(c *gin.Context) {
	a.renderAdmin(c, http.StatusOK, nil)
}

func (a *AdminController) changeRole(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		renderError(c, err)
		return
	}
	var form entity.RoleForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderAdmin(c, http.StatusBadRequest, gin.H{"error": I18nWeb(c, "pages.admin.invalidRoleForm")})
		return
	}
	role, ok := model.ParseRoleName(form.Role)
	if !ok {
		a.renderAdmin(c, http.StatusBadRequest, gin.H{"error": I18nWeb(c, "pages.admin.unknownRole", "Role=="+form.Role)})
		return
	}

	if form.Action == "grant" {
		err = a.userService.GrantRole(id, role)
	} else {
		err = a.userService.RevokeRole(id, role)
	}
	if err != nil {
		if service.IsValidation(err) {
			_, msg := errorStatus(c, err)
			a.renderAdmin(c, http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, c.GetString("base_path")+"admin")
}

func (a *AdminController) deleteUser(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if user := session.GetLoginUser(c); user != nil && user.Id == id {
		a.renderAdmin(c, http.StatusBadRequest, gin.H{"error": I18nWeb(c, "pages.admin.cannotDeleteSelf")})
		return
	}
	if err := a.userService.DeleteUser(id); err != nil {
		if service.IsValidation(err) {
			_, msg := errorStatus(c, err)
			a.renderAdmin(c, http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, c.GetString("base_path")+"admin")
}

func (a *AdminController) seedDB(c *gin.Context) {
	if err := a.catalogService.SeedDemoData(); err != nil {
		renderError(c, err)
		return
	}
	html(c, "message.html", "pages.seed.title", gin.H{"message": I18nWeb(c, "pages.seed.done")})
}

func (a *AdminController) eraseDB(c *gin.Context) {
	if err := a.catalogService.EraseCatalog(); err != nil {
		renderError(c, err)
		return
	}
	html(c, "message.html", "pages.erase.title", gin.H{"message": I18nWeb(c, "pages.erase.done")})
}
