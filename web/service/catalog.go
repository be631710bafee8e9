package service

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web/cache"
	"github.com/bookshelf-app/bookshelf/web/entity"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// BookWithCategory is one row of the catalog listing.
type BookWithCategory struct {
	Category model.Category `json:"category"`
	Book     model.Book     `json:"book"`
}

// CatalogService manages categories and books.
type CatalogService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewCatalogService builds the service over db. c may be nil, in which case
// nothing is cached.
func NewCatalogService(db *gorm.DB, c *cache.Cache) *CatalogService {
	return &CatalogService{db: db, cache: c}
}

// ListCategories returns every category ordered by description. The list is
// cached only in a shared Redis, keyed by catalog generation.
func (s *CatalogService) ListCategories() ([]model.Category, error) {
	if !s.cache.IsShared() {
		categories, err := s.loadCategories()
		if err != nil {
			return nil, wrapDBError("list categories", err)
		}
		return categories, nil
	}

	key, err := s.cache.CatalogKey(cache.KeyCategories)
	if err != nil {
		logger.Warning("read catalog generation err:", err)
		categories, err := s.loadCategories()
		if err != nil {
			return nil, wrapDBError("list categories", err)
		}
		return categories, nil
	}

	var categories []model.Category
	err = s.cache.GetOrSet(key, &categories, cache.TTLCategories, func() (any, error) {
		return s.loadCategories()
	})
	if err != nil {
		return nil, wrapDBError("list categories", err)
	}
	return categories, nil
}

func (s *CatalogService) loadCategories() ([]model.Category, error) {
	rows := make([]model.Category, 0)
	if err := s.db.Order("description ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type bookRow struct {
	BookId              int
	Author              string
	Title               string
	Isbn                int64
	BookDescription     string
	CategoryId          int
	CategoryDescription string
}

// ListBooksWithCategory returns every book paired with its category, ordered
// by category id and then book id.
func (s *CatalogService) ListBooksWithCategory() ([]BookWithCategory, error) {
	var rows []bookRow
	err := s.db.Table("book").
		Select("book.id AS book_id, book.author, book.title, book.isbn, " +
			"book.description AS book_description, " +
			"category.id AS category_id, category.description AS category_description").
		Joins("INNER JOIN category ON category.id = book.category_id").
		Order("category.id ASC, book.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapDBError("list books", err)
	}

	result := make([]BookWithCategory, 0, len(rows))
	for _, r := range rows {
		result = append(result, BookWithCategory{
			Category: model.Category{Id: r.CategoryId, Description: r.CategoryDescription},
			Book: model.Book{
				Id:          r.BookId,
				Author:      r.Author,
				Title:       r.Title,
				Isbn:        r.Isbn,
				Description: r.BookDescription,
				CategoryId:  r.CategoryId,
			},
		})
	}
	return result, nil
}

// GetOrCreateCategory returns the category with this description, creating it
// when absent. Surrounding spaces are ignored; the match is case-sensitive.
func (s *CatalogService) GetOrCreateCategory(description string) (*model.Category, error) {
	var (
		category *model.Category
		created  bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		category, created, err = getOrCreateCategory(tx, description)
		return err
	})
	if err != nil {
		return nil, wrapDBError("get or create category", err)
	}
	if created {
		s.invalidate()
		logger.Infof("Created category %q (id %d)", category.Description, category.Id)
	}
	return category, nil
}

// getOrCreateCategory runs inside the caller's transaction. The insert is a
// no-op when a concurrent writer got there first; the select then sees its row.
func getOrCreateCategory(tx *gorm.DB, description string) (*model.Category, bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, false, &ValidationError{Field: "category", Msg: "is required"}
	}

	category := &model.Category{Description: description}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "description"}},
		DoNothing: true,
	}).Create(category)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 && category.Id != 0 {
		return category, true, nil
	}

	category = &model.Category{}
	if err := tx.Where("description = ?", description).First(category).Error; err != nil {
		return nil, false, err
	}
	return category, false, nil
}

// AddBook validates the form and stores a new book, creating its category if
// needed. Both writes share one transaction.
func (s *CatalogService) AddBook(form entity.BookForm) (*model.Book, error) {
	form, isbn, err := checkBookForm(form)
	if err != nil {
		return nil, err
	}

	var book *model.Book
	err = s.db.Transaction(func(tx *gorm.DB) error {
		category, _, err := getOrCreateCategory(tx, form.Category)
		if err != nil {
			return err
		}
		book = &model.Book{
			Author:      form.Author,
			Title:       form.Title,
			Isbn:        isbn,
			Description: form.Description,
			CategoryId:  category.Id,
		}
		if err := tx.Create(book).Error; err != nil {
			return err
		}
		book.Category = category
		return nil
	})
	if err != nil {
		return nil, wrapDBError("add book", err)
	}
	s.invalidate()
	logger.Infof("Added book %d %q to category %q", book.Id, book.Title, book.Category.Description)
	return book, nil
}

// UpdateBook overwrites every field of an existing book, keeping its id.
func (s *CatalogService) UpdateBook(id int, form entity.BookForm) (*model.Book, error) {
	var book *model.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		book = &model.Book{}
		if err := tx.First(book, id).Error; err != nil {
			if database.IsNotFound(err) {
				return &NotFoundError{Resource: "book", ID: id}
			}
			return err
		}

		checked, isbn, err := checkBookForm(form)
		if err != nil {
			return err
		}
		category, _, err := getOrCreateCategory(tx, checked.Category)
		if err != nil {
			return err
		}

		book.Author = checked.Author
		book.Title = checked.Title
		book.Isbn = isbn
		book.Description = checked.Description
		book.CategoryId = category.Id
		book.Category = nil
		if err := tx.Save(book).Error; err != nil {
			return err
		}
		book.Category = category
		return nil
	})
	if err != nil {
		return nil, wrapDBError("update book", err)
	}
	s.invalidate()
	logger.Infof("Updated book %d", book.Id)
	return book, nil
}

// GetBook returns the book with its category loaded.
func (s *CatalogService) GetBook(id int) (*model.Book, error) {
	book := &model.Book{}
	err := s.db.Preload("Category").First(book, id).Error
	if database.IsNotFound(err) {
		return nil, &NotFoundError{Resource: "book", ID: id}
	} else if err != nil {
		return nil, wrapDBError("get book", err)
	}
	return book, nil
}

// GetCategory returns one category by id.
func (s *CatalogService) GetCategory(id int) (*model.Category, error) {
	category := &model.Category{}
	err := s.db.First(category, id).Error
	if database.IsNotFound(err) {
		return nil, &NotFoundError{Resource: "category", ID: id}
	} else if err != nil {
		return nil, wrapDBError("get category", err)
	}
	return category, nil
}

// ListBooksInCategory returns the books of one category ordered by id.
func (s *CatalogService) ListBooksInCategory(categoryID int) ([]model.Book, error) {
	if _, err := s.GetCategory(categoryID); err != nil {
		return nil, err
	}
	books := make([]model.Book, 0)
	err := s.db.Where("category_id = ?", categoryID).Order("id ASC").Find(&books).Error
	if err != nil {
		return nil, wrapDBError("list books in category", err)
	}
	return books, nil
}

// EraseCatalog deletes all books and then all categories.
func (s *CatalogService) EraseCatalog() error {
	var books, categories int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&model.Book{})
		if res.Error != nil {
			return res.Error
		}
		books = res.RowsAffected
		res = tx.Where("1 = 1").Delete(&model.Category{})
		if res.Error != nil {
			return res.Error
		}
		categories = res.RowsAffected
		return nil
	})
	if err != nil {
		return wrapDBError("erase catalog", err)
	}
	s.invalidate()
	logger.Noticef("Catalog erased: %d books, %d categories", books, categories)
	return nil
}

func (s *CatalogService) invalidate() {
	if err := s.cache.InvalidateCatalog(); err != nil {
		logger.Warning("invalidate catalog cache err:", err)
	}
}

// checkBookForm trims the form, checks required fields and parses the isbn.
func checkBookForm(form entity.BookForm) (entity.BookForm, int64, error) {
	form = form.Trim()
	if err := validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return form, 0, &ValidationError{Field: fieldErrs[0].Field(), Msg: "is required"}
		}
		return form, 0, err
	}
	isbn, err := strconv.ParseInt(form.Isbn, 10, 64)
	if err != nil || isbn < 0 {
		return form, 0, &ValidationError{Field: "isbn", Msg: "must be a non-negative whole number"}
	}
	return form, isbn, nil
}
