package controller

import (
	"net/http"
	"strconv"

	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/web/entity"
	"github.com/bookshelf-app/bookshelf/web/service"

	"github.com/gin-gonic/gin"
)

// CatalogController serves the book and category pages. Every route requires
// a logged-in user.
type CatalogController struct {
	BaseController

	catalogService *service.CatalogService
}

func NewCatalogController(g *gin.RouterGroup, catalog *service.CatalogService) *CatalogController {
	a := &CatalogController{catalogService: catalog}
	a.initRouter(g)
	return a
}

func (a *CatalogController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin)

	g.GET("/all_books", a.allBooks)
	g.GET("/addbook", a.addBookPage)
	g.POST("/addbook", a.addBook)
	g.GET("/categories", a.categories)
	g.GET("/edit_book/:id", a.editBookPage)
	g.POST("/edit_book/:id", a.editBook)
	g.GET("/books_in_category/:id", a.booksInCategory)
}

// idParam parses the :id path segment.
func idParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: "id", Msg: "must be a positive number"}
	}
	return id, nil
}

func (a *CatalogController) allBooks(c *gin.Context) {
	books, err := a.catalogService.ListBooksWithCategory()
	if err != nil {
		renderError(c, err)
		return
	}
	html(c, "all_books.html", "pages.allBooks.title", gin.H{"books": books})
}

func (a *CatalogController) renderBookForm(c *gin.Context, code int, form entity.BookForm, formErr error) {
	categories, err := a.catalogService.ListCategories()
	if err != nil {
		renderError(c, err)
		return
	}
	data := gin.H{"categories": categories, "form": form}
	if formErr != nil {
		_, msg := errorStatus(c, formErr)
		data["error"] = msg
	}
	htmlStatus(c, code, "addbook.html", "pages.addBook.title", data)
}

func (a *CatalogController) addBookPage(c *gin.Context) {
	a.renderBookForm(c, http.StatusOK, entity.BookForm{}, nil)
}

func (a *CatalogController) addBook(c *gin.Context) {
	var form entity.BookForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderBookForm(c, http.StatusBadRequest, form, &service.ValidationError{Field: "form", Msg: "could not be read"})
		return
	}
	if _, err := a.catalogService.AddBook(form); err != nil {
		if service.IsValidation(err) {
			a.renderBookForm(c, http.StatusBadRequest, form, err)
			return
		}
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, c.GetString("base_path"))
}

func (a *CatalogController) categories(c *gin.Context) {
	categories, err := a.catalogService.ListCategories()
	if err != nil {
		renderError(c, err)
		return
	}
	html(c, "categories.html", "pages.categories.title", gin.H{"categories": categories})
}

func bookToForm(book *model.Book) entity.BookForm {
	form := entity.BookForm{
		Author:      book.Author,
		Title:       book.Title,
		Isbn:        strconv.FormatInt(book.Isbn, 10),
		Description: book.Description,
	}
	if book.Category != nil {
		form.Category = book.Category.Description
	}
	return form
}

func (a *CatalogController) renderEditForm(c *gin.Context, code int, id int, form entity.BookForm, data gin.H) {
	categories, err := a.catalogService.ListCategories()
	if err != nil {
		renderError(c, err)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["id"] = id
	data["form"] = form
	data["categories"] = categories
	htmlStatus(c, code, "edit_book.html", "pages.editBook.title", data)
}

func (a *CatalogController) editBookPage(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		renderError(c, err)
		return
	}
	book, err := a.catalogService.GetBook(id)
	if err != nil {
		renderError(c, err)
		return
	}
	a.renderEditForm(c, http.StatusOK, id, bookToForm(book), nil)
}

func (a *CatalogController) editBook(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		renderError(c, err)
		return
	}
	var form entity.BookForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, &service.ValidationError{Field: "form", Msg: "could not be read"})
		return
	}
	if _, err := a.catalogService.UpdateBook(id, form); err != nil {
		if service.IsValidation(err) {
			_, msg := errorStatus(c, err)
			a.renderEditForm(c, http.StatusBadRequest, id, form, gin.H{"error": msg})
			return
		}
		renderError(c, err)
		return
	}
	a.renderEditForm(c, http.StatusOK, id, form.Trim(), gin.H{"success": true})
}

func (a *CatalogController) booksInCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		renderError(c, err)
		return
	}
	category, err := a.catalogService.GetCategory(id)
	if err != nil {
		renderError(c, err)
		return
	}
	books, err := a.catalogService.ListBooksInCategory(id)
	if err != nil {
		renderError(c, err)
		return
	}
	html(c, "books_in_category.html", "pages.booksInCategory.title", gin.H{"category": category, "books": books})
}
