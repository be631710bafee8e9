package controller

import (
	"errors"
	"net/http"

	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/cache"
	"github.com/bookshelf-app/bookshelf/web/entity"
	"github.com/bookshelf-app/bookshelf/web/middleware"
	"github.com/bookshelf-app/bookshelf/web/service"

	"github.com/gin-gonic/gin"
)

// APIController serves the JSON catalog API. Clients exchange credentials for
// a bearer token at /api/login and send it on every other call.
type APIController struct {
	catalogService *service.CatalogService
	authService    *service.AuthService
}

func NewAPIController(g *gin.RouterGroup, catalog *service.CatalogService, auth *service.AuthService, store *cache.Cache) *APIController {
	a := &APIController{catalogService: catalog, authService: auth}
	a.initRouter(g, store)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup, store *cache.Cache) {
	api := g.Group("/api")
	api.POST("/login", middleware.RateLimitMiddleware(store, middleware.LoginRateLimitConfig()), a.login)

	authed := api.Group("", middleware.ApiAuth(a.authService))
	authed.GET("/books", a.listBooks)
	authed.POST("/books", a.addBook)
	authed.GET("/books/:id", a.getBook)
	authed.PUT("/books/:id", a.updateBook)
	authed.GET("/categories", a.listCategories)
	authed.GET("/categories/:id/books", a.booksInCategory)
}

func (a *APIController) login(c *gin.Context) {
	var form entity.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}
	token, user, err := a.authService.Login(form.Email, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		logger.Warningf("failed API login for %q from %s", form.Email, c.ClientIP())
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.toasts.wrongEmailOrPassword"))
		return
	} else if err != nil {
		jsonError(c, err)
		return
	}
	logger.Infof("%s obtained an API token", user.Email)
	jsonObj(c, gin.H{"token": token, "expiresIn": int(service.TokenTTL.Seconds())}, nil)
}

func (a *APIController) listBooks(c *gin.Context) {
	books, err := a.catalogService.ListBooksWithCategory()
	jsonObj(c, books, err)
}

func (a *APIController) addBook(c *gin.Context) {
	var form entity.BookForm
	if err := c.ShouldBind(&form); err != nil {
		jsonError(c, &service.ValidationError{Field: "body", Msg: "could not be read"})
		return
	}
	book, err := a.catalogService.AddBook(form)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity.Msg{Success: true, Obj: book})
}

func (a *APIController) getBook(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	book, err := a.catalogService.GetBook(id)
	jsonObj(c, book, err)
}

func (a *APIController) updateBook(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	var form entity.BookForm
	if err := c.ShouldBind(&form); err != nil {
		jsonError(c, &service.ValidationError{Field: "body", Msg: "could not be read"})
		return
	}
	book, err := a.catalogService.UpdateBook(id, form)
	jsonObj(c, book, err)
}

func (a *APIController) listCategories(c *gin.Context) {
	categories, err := a.catalogService.ListCategories()
	jsonObj(c, categories, err)
}

func (a *APIController) booksInCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	books, err := a.catalogService.ListBooksInCategory(id)
	jsonObj(c, books, err)
}
