package service

import (
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"

	"gorm.io/gorm"
)

type demoBook struct {
	category    string
	author      string
	title       string
	isbn        int64
	description string
}

var demoBooks = []demoBook{
	{"Horror", "Mary Shelly", "Frankenstein", 1, "A horror story written by a romantic."},
	{"Horror", "Henry James", "The Turn of the Screw", 2, "Another British horror story."},
	{"Sociology", "Max Weber", "The Protestant Work Ethic and The Spirit of Capitalism", 3, "A classic early 20th C. sociology text"},
	{"Sociology", "Robert Putnam", "Bowling Alone", 4, "A classic late 20th C. sociology test"},
}

// SeedDemoData loads the demo categories and books. A book is skipped when its
// category already holds one with the same title, so seeding twice is a no-op.
func (s *CatalogService) SeedDemoData() error {
	added := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, d := range demoBooks {
			category, _, err := getOrCreateCategory(tx, d.category)
			if err != nil {
				return err
			}

			var count int64
			err = tx.Model(&model.Book{}).
				Where("category_id = ? AND title = ?", category.Id, d.title).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			book := &model.Book{
				Author:      d.author,
				Title:       d.title,
				Isbn:        d.isbn,
				Description: d.description,
				CategoryId:  category.Id,
			}
			if err := tx.Create(book).Error; err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return wrapDBError("seed demo data", err)
	}
	s.invalidate()
	logger.Noticef("Demo data seeded, %d books added", added)
	return nil
}
