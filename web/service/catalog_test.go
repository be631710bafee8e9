package service

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/web/cache"
	"github.com/bookshelf-app/bookshelf/web/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	c := config.GetDefaultDatabaseConfig()
	c.SQLite.Path = filepath.Join(t.TempDir(), "bookshelf.db")
	db, err := database.InitDB(c, database.DefaultAccounts())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })
	return db
}

// newSharedCache connects to a Redis standing in for one shared by several
// processes.
func newSharedCache(t *testing.T, mr *miniredis.Miniredis) *cache.Cache {
	t.Helper()
	c, err := cache.New(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestCatalog(t *testing.T) (*CatalogService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewCatalogService(db, newSharedCache(t, miniredis.RunT(t))), db
}

func frankenstein() entity.BookForm {
	return entity.BookForm{
		Author:      "Mary Shelly",
		Title:       "Frankenstein",
		Isbn:        "1",
		Description: "A horror story written by a romantic.",
		Category:    "Horror",
	}
}

func TestAddBookThenList(t *testing.T) {
	s, _ := newTestCatalog(t)

	book, err := s.AddBook(frankenstein())
	require.NoError(t, err)
	assert.NotZero(t, book.Id)
	require.NotNil(t, book.Category)
	assert.Equal(t, "Horror", book.Category.Description)

	pairs, err := s.ListBooksWithCategory()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Horror", pairs[0].Category.Description)
	assert.Equal(t, "Mary Shelly", pairs[0].Book.Author)
	assert.Equal(t, "Frankenstein", pairs[0].Book.Title)
	assert.Equal(t, int64(1), pairs[0].Book.Isbn)
	assert.Equal(t, "A horror story written by a romantic.", pairs[0].Book.Description)
	assert.Equal(t, pairs[0].Category.Id, pairs[0].Book.CategoryId)
}

func TestAddBookReusesCategory(t *testing.T) {
	s, db := newTestCatalog(t)

	_, err := s.AddBook(frankenstein())
	require.NoError(t, err)
	form := frankenstein()
	form.Title = "The Turn of the Screw"
	form.Category = "  Horror "
	_, err = s.AddBook(form)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Category{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddBookValidation(t *testing.T) {
	s, db := newTestCatalog(t)

	cases := map[string]struct {
		mutate func(*entity.BookForm)
		field  string
	}{
		"missing author":   {func(f *entity.BookForm) { f.Author = " " }, "author"},
		"missing title":    {func(f *entity.BookForm) { f.Title = "" }, "title"},
		"missing isbn":     {func(f *entity.BookForm) { f.Isbn = "" }, "isbn"},
		"missing category": {func(f *entity.BookForm) { f.Category = "\t" }, "category"},
		"isbn not number":  {func(f *entity.BookForm) { f.Isbn = "978-abc" }, "isbn"},
		"isbn negative":    {func(f *entity.BookForm) { f.Isbn = "-3" }, "isbn"},
		"isbn fractional":  {func(f *entity.BookForm) { f.Isbn = "1.5" }, "isbn"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			form := frankenstein()
			tc.mutate(&form)
			_, err := s.AddBook(form)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	var books, categories int64
	require.NoError(t, db.Model(&model.Book{}).Count(&books).Error)
	require.NoError(t, db.Model(&model.Category{}).Count(&categories).Error)
	assert.Zero(t, books)
	assert.Zero(t, categories)
}

func TestGetOrCreateCategoryIsIdempotent(t *testing.T) {
	s, db := newTestCatalog(t)

	first, err := s.GetOrCreateCategory("Poetry")
	require.NoError(t, err)
	second, err := s.GetOrCreateCategory(" Poetry ")
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)

	other, err := s.GetOrCreateCategory("poetry")
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, other.Id)

	var count int64
	require.NoError(t, db.Model(&model.Category{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	_, err = s.GetOrCreateCategory("   ")
	assert.True(t, IsValidation(err))
}

// SQLite serializes these writers on one connection, so this checks the
// result only. catalog_postgres_test.go runs the same race under real
// contention.
func TestGetOrCreateCategoryConcurrent(t *testing.T) {
	s, db := newTestCatalog(t)

	const workers = 8
	ids := make([]int, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			c, err := s.GetOrCreateCategory("Mystery")
			if err != nil {
				return err
			}
			ids[i] = c.Id
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, db.Model(&model.Category{}).Where("description = ?", "Mystery").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateBook(t *testing.T) {
	s, _ := newTestCatalog(t)

	book, err := s.AddBook(frankenstein())
	require.NoError(t, err)

	updated, err := s.UpdateBook(book.Id, entity.BookForm{
		Author:      "Robert Putnam",
		Title:       "Bowling Alone",
		Isbn:        "4",
		Description: "A classic late 20th C. sociology test",
		Category:    "Sociology",
	})
	require.NoError(t, err)
	assert.Equal(t, book.Id, updated.Id)

	got, err := s.GetBook(book.Id)
	require.NoError(t, err)
	assert.Equal(t, "Robert Putnam", got.Author)
	assert.Equal(t, "Bowling Alone", got.Title)
	assert.Equal(t, int64(4), got.Isbn)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Sociology", got.Category.Description)
}

func TestUpdateMissingBookChangesNothing(t *testing.T) {
	s, db := newTestCatalog(t)

	_, err := s.AddBook(frankenstein())
	require.NoError(t, err)
	before, err := s.ListBooksWithCategory()
	require.NoError(t, err)

	form := frankenstein()
	form.Category = "Brand New"
	_, err = s.UpdateBook(9999, form)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	after, err := s.ListBooksWithCategory()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	var count int64
	require.NoError(t, db.Model(&model.Category{}).Where("description = ?", "Brand New").Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetBookNotFound(t *testing.T) {
	s, _ := newTestCatalog(t)
	_, err := s.GetBook(42)
	assert.True(t, IsNotFound(err))
}

func TestListCategoriesInvalidatedOnWrite(t *testing.T) {
	s, _ := newTestCatalog(t)

	categories, err := s.ListCategories()
	require.NoError(t, err)
	assert.Empty(t, categories)

	_, err = s.AddBook(frankenstein())
	require.NoError(t, err)
	_, err = s.GetOrCreateCategory("Drama")
	require.NoError(t, err)

	categories, err = s.ListCategories()
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Drama", categories[0].Description)
	assert.Equal(t, "Horror", categories[1].Description)
}

func TestListCategoriesWithoutCache(t *testing.T) {
	s := NewCatalogService(newTestDB(t), nil)
	_, err := s.GetOrCreateCategory("Horror")
	require.NoError(t, err)

	categories, err := s.ListCategories()
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Horror", categories[0].Description)
}

func assertSeedThenEraseSeenByServer(t *testing.T, server, cli *CatalogService) {
	t.Helper()
	require.NoError(t, cli.SeedDemoData())
	categories, err := server.ListCategories()
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	require.NoError(t, cli.EraseCatalog())
	categories, err = server.ListCategories()
	require.NoError(t, err)
	assert.Empty(t, categories)
	books, err := server.ListBooksWithCategory()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestEraseFromAnotherProcessWithEmbeddedCaches(t *testing.T) {
	db := newTestDB(t)
	newEmbedded := func() *cache.Cache {
		c, err := cache.New("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	server := NewCatalogService(db, newEmbedded())
	cli := NewCatalogService(db, newEmbedded())
	assertSeedThenEraseSeenByServer(t, server, cli)
}

func TestEraseFromAnotherProcessWithSharedRedis(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	server := NewCatalogService(db, newSharedCache(t, mr))
	cli := NewCatalogService(db, newSharedCache(t, mr))
	assertSeedThenEraseSeenByServer(t, server, cli)
	assert.Equal(t, "2", mustGet(t, mr, cache.KeyCatalogGeneration))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestListBooksInCategory(t *testing.T) {
	s, _ := newTestCatalog(t)
	require.NoError(t, s.SeedDemoData())

	sociology, err := s.GetOrCreateCategory("Sociology")
	require.NoError(t, err)
	books, err := s.ListBooksInCategory(sociology.Id)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "The Protestant Work Ethic and The Spirit of Capitalism", books[0].Title)
	assert.Equal(t, "Bowling Alone", books[1].Title)

	_, err = s.ListBooksInCategory(9999)
	assert.True(t, IsNotFound(err))
}

func TestEraseCatalog(t *testing.T) {
	s, _ := newTestCatalog(t)
	require.NoError(t, s.SeedDemoData())

	categories, err := s.ListCategories()
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	require.NoError(t, s.EraseCatalog())

	categories, err = s.ListCategories()
	require.NoError(t, err)
	assert.Empty(t, categories)
	pairs, err := s.ListBooksWithCategory()
	require.NoError(t, err)
	assert.Empty(t, pairs)

	require.NoError(t, s.EraseCatalog())
}

func TestSeedDemoData(t *testing.T) {
	s, _ := newTestCatalog(t)
	require.NoError(t, s.SeedDemoData())

	categories, err := s.ListCategories()
	require.NoError(t, err)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Description)
	}
	assert.Equal(t, []string{"Horror", "Sociology"}, names)

	pairs, err := s.ListBooksWithCategory()
	require.NoError(t, err)
	require.Len(t, pairs, 4)
	assert.Equal(t, "Frankenstein", pairs[0].Book.Title)
	assert.Equal(t, "Horror", pairs[0].Category.Description)
	for i := 1; i < len(pairs); i++ {
		assert.LessOrEqual(t, pairs[i-1].Category.Id, pairs[i].Category.Id)
	}
	assert.Equal(t, "Sociology", pairs[3].Category.Description)

	require.NoError(t, s.SeedDemoData())
	again, err := s.ListBooksWithCategory()
	require.NoError(t, err)
	assert.Equal(t, pairs, again)
}

func TestSeedDemoDataKeepsExistingBooks(t *testing.T) {
	s, _ := newTestCatalog(t)
	for i := 0; i < 3; i++ {
		form := frankenstein()
		form.Title = fmt.Sprintf("Horror %d", i)
		_, err := s.AddBook(form)
		require.NoError(t, err)
	}
	require.NoError(t, s.SeedDemoData())

	pairs, err := s.ListBooksWithCategory()
	require.NoError(t, err)
	assert.Len(t, pairs, 7)
}
