// Package database opens the catalog store, migrates the schema and seeds the
// default roles and demo accounts.
package database

import (
	"errors"
	"strings"
	"time"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/util/crypto"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SeedAccount is a login created at startup when its email is not yet registered.
type SeedAccount struct {
	Email    string
	Password string
	Roles    []model.RoleName
}

// DefaultAccounts are the demo member and the administrator.
func DefaultAccounts() []SeedAccount {
	return []SeedAccount{
		{Email: "member@example.com", Password: "Password1"},
		{Email: config.GetAdminEmail(), Password: "Password2", Roles: []model.RoleName{model.RoleAdmin, model.RoleAgent}},
	}
}

func initModels(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.User{}, "Roles", &model.UserRole{}); err != nil {
		return err
	}
	models := []any{
		&model.Role{},
		&model.User{},
		&model.UserRole{},
		&model.Category{},
		&model.Book{},
		&model.Setting{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			logger.Errorf("Error auto migrating model %T: %v", m, err)
			return err
		}
	}
	return nil
}

// initRoles creates each default role that does not exist yet.
func initRoles(db *gorm.DB) error {
	for _, name := range model.DefaultRoles {
		role := &model.Role{}
		if err := db.Where(model.Role{Name: name}).FirstOrCreate(role).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedUsers creates every account whose email is not registered. Existing
// accounts are left untouched, so it is safe to run on every start.
func SeedUsers(db *gorm.DB, accounts []SeedAccount) error {
	for _, acc := range accounts {
		email := strings.ToLower(strings.TrimSpace(acc.Email))
		var count int64
		if err := db.Model(&model.User{}).Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := crypto.HashPasswordAsBcrypt(acc.Password)
		if err != nil {
			return err
		}
		var roles []model.Role
		if len(acc.Roles) > 0 {
			if err := db.Where("name IN ?", acc.Roles).Find(&roles).Error; err != nil {
				return err
			}
			if len(roles) != len(acc.Roles) {
				return errors.New("seed account " + email + " references a missing role")
			}
		}
		now := time.Now()
		user := &model.User{
			Email:            email,
			EmailConfirmedAt: &now,
			Password:         hash,
			Active:           true,
			Roles:            roles,
		}
		if err := db.Create(user).Error; err != nil {
			return err
		}
		logger.Infof("created account %s with roles %v", email, acc.Roles)
	}
	return nil
}

func openDialector(c *config.DatabaseConfig) gorm.Dialector {
	if c.IsPostgreSQL() {
		return postgres.Open(c.GetDSN())
	}
	return sqlite.Open(c.GetDSN())
}

// InitDB opens the configured store, migrates it and seeds roles and accounts.
// The returned handle is shared by every service; there is no package-level copy.
func InitDB(c *config.DatabaseConfig, accounts []SeedAccount) (*gorm.DB, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}
	if err := c.EnsureDirectoryExists(); err != nil {
		return nil, err
	}

	var gormLogger gormlogger.Interface
	if config.IsDebug() {
		gormLogger = gormlogger.Default
	} else {
		gormLogger = gormlogger.Discard
	}

	db, err := gorm.Open(openDialector(c), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}

	if c.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// one writer at a time; also keeps the pragmas from the DSN on a single connection
		sqlDB.SetMaxOpenConns(1)
		if _, err := sqlDB.Exec("PRAGMA cache_size = -64000;"); err != nil {
			return nil, err
		}
		if _, err := sqlDB.Exec("PRAGMA temp_store = MEMORY;"); err != nil {
			return nil, err
		}
	}

	if err := initModels(db); err != nil {
		return nil, err
	}
	if err := initRoles(db); err != nil {
		return nil, err
	}
	if err := SeedUsers(db, accounts); err != nil {
		return nil, err
	}
	return db, nil
}

// CloseDB checkpoints the WAL (SQLite only) and closes the pool.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := Checkpoint(db); err != nil {
		logger.Warningf("error executing checkpoint: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsSQLite reports whether db talks to SQLite.
func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

// Checkpoint flushes the SQLite WAL into the main database file. No-op elsewhere.
func Checkpoint(db *gorm.DB) error {
	if !IsSQLite(db) {
		return nil
	}
	return db.Exec("PRAGMA wal_checkpoint;").Error
}
