package database

import (
	"path/filepath"
	"testing"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func testConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	c := config.GetDefaultDatabaseConfig()
	c.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	return c
}

func openTestDB(t *testing.T, c *config.DatabaseConfig) *gorm.DB {
	t.Helper()
	db, err := InitDB(c, DefaultAccounts())
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB(db) })
	return db
}

func TestInitDBSeedsRolesAndAccounts(t *testing.T) {
	db := openTestDB(t, testConfig(t))

	var roles []model.Role
	require.NoError(t, db.Order("id").Find(&roles).Error)
	require.Len(t, roles, 2)
	assert.Equal(t, model.RoleAdmin, roles[0].Name)
	assert.Equal(t, model.RoleAgent, roles[1].Name)

	var member model.User
	require.NoError(t, db.Preload("Roles").Where("email = ?", "member@example.com").First(&member).Error)
	assert.Empty(t, member.Roles)
	assert.True(t, member.Active)
	assert.NotNil(t, member.EmailConfirmedAt)
	assert.NotEqual(t, "Password1", member.Password)

	var admin model.User
	require.NoError(t, db.Preload("Roles").Where("email = ?", config.GetAdminEmail()).First(&admin).Error)
	assert.ElementsMatch(t, []model.RoleName{model.RoleAdmin, model.RoleAgent}, admin.RoleNames())
}

func TestInitDBIsIdempotent(t *testing.T) {
	c := testConfig(t)
	db, err := InitDB(c, DefaultAccounts())
	require.NoError(t, err)
	require.NoError(t, CloseDB(db))

	db = openTestDB(t, c)
	var users, roles, links int64
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&model.Role{}).Count(&roles).Error)
	require.NoError(t, db.Model(&model.UserRole{}).Count(&links).Error)
	assert.EqualValues(t, 2, users)
	assert.EqualValues(t, 2, roles)
	assert.EqualValues(t, 2, links)
}

func TestSeedUsersMatchesEmailCaseInsensitively(t *testing.T) {
	db := openTestDB(t, testConfig(t))
	require.NoError(t, SeedUsers(db, []SeedAccount{{Email: "MEMBER@Example.com", Password: "x"}}))

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestDeletingUserRemovesRoleLinks(t *testing.T) {
	db := openTestDB(t, testConfig(t))

	var admin model.User
	require.NoError(t, db.Where("email = ?", config.GetAdminEmail()).First(&admin).Error)
	require.NoError(t, db.Select(clause.Associations).Delete(&admin).Error)

	var links int64
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", admin.Id).Count(&links).Error)
	assert.Zero(t, links)

	var roles int64
	require.NoError(t, db.Model(&model.Role{}).Count(&roles).Error)
	assert.EqualValues(t, 2, roles, "roles survive user deletion")
}

func TestBookRequiresExistingCategory(t *testing.T) {
	db := openTestDB(t, testConfig(t))
	err := db.Create(&model.Book{Title: "Orphan", Isbn: 9, CategoryId: 4242}).Error
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
}

func TestCheckpoint(t *testing.T) {
	db := openTestDB(t, testConfig(t))
	assert.True(t, IsSQLite(db))
	assert.NoError(t, Checkpoint(db))
}
