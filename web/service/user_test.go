package service

import (
	"fmt"
	"testing"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, email string, roles ...model.RoleName) *model.User {
	t.Helper()
	require.NoError(t, database.SeedUsers(db, []database.SeedAccount{{Email: email, Password: "secret", Roles: roles}}))
	user, err := NewUserService(db).GetUserByEmail(email)
	require.NoError(t, err)
	return user
}

func TestIsAdminForEveryRoleCombination(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	all := []model.RoleName{model.RoleAdmin, model.RoleAgent, "Librarian"}
	require.NoError(t, db.Create(&model.Role{Name: "Librarian"}).Error)

	for mask := 0; mask < 1<<len(all); mask++ {
		var roles []model.RoleName
		for i, r := range all {
			if mask&(1<<i) != 0 {
				roles = append(roles, r)
			}
		}
		t.Run(fmt.Sprint(roles), func(t *testing.T) {
			email := fmt.Sprintf("combo%d@example.com", mask)
			createUser(t, db, email, roles...)
			assert.Equal(t, model.HasRole(roles, model.RoleAdmin), s.IsAdmin(email))
		})
	}
}

func TestIsAdminUnknownIdentity(t *testing.T) {
	s := NewUserService(newTestDB(t))
	assert.False(t, s.IsAdmin("nobody@example.com"))
	assert.False(t, s.IsAdmin(""))
	assert.False(t, s.IsAdmin("member@example.com"))
	assert.True(t, s.IsAdmin(config.GetAdminEmail()))
}

func TestIsAdminIgnoresEmailCase(t *testing.T) {
	db := newTestDB(t)
	createUser(t, db, "Boss@Example.com", model.RoleAdmin)
	assert.True(t, NewUserService(db).IsAdmin("boss@EXAMPLE.com"))
}

func TestCheckUser(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	user := s.CheckUser("MEMBER@example.com", "Password1")
	require.NotNil(t, user)
	assert.Equal(t, "member@example.com", user.Email)

	assert.Nil(t, s.CheckUser("member@example.com", "wrong"))
	assert.Nil(t, s.CheckUser("ghost@example.com", "Password1"))

	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.Id).Update("is_active", false).Error)
	assert.Nil(t, s.CheckUser("member@example.com", "Password1"))
}

func TestGrantAndRevokeRole(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)
	member, err := s.GetUserByEmail("member@example.com")
	require.NoError(t, err)

	require.NoError(t, s.GrantRole(member.Id, model.RoleAdmin))
	require.NoError(t, s.GrantRole(member.Id, model.RoleAdmin))
	assert.True(t, s.IsAdmin(member.Email))

	var links int64
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", member.Id).Count(&links).Error)
	assert.Equal(t, int64(1), links)

	require.NoError(t, s.RevokeRole(member.Id, model.RoleAdmin))
	assert.False(t, s.IsAdmin(member.Email))

	err = s.GrantRole(member.Id, "Wizard")
	assert.True(t, IsValidation(err))
	err = s.GrantRole(9999, model.RoleAdmin)
	assert.True(t, IsNotFound(err))
}

func TestRevokeLastAdminRefused(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)
	admin, err := s.GetUserByEmail(config.GetAdminEmail())
	require.NoError(t, err)

	err = s.RevokeRole(admin.Id, model.RoleAdmin)
	assert.True(t, IsValidation(err))
	assert.True(t, s.IsAdmin(admin.Email))

	err = s.DeleteUser(admin.Id)
	assert.True(t, IsValidation(err))
}

func TestListUsers(t *testing.T) {
	s := NewUserService(newTestDB(t))
	users, err := s.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "member@example.com", users[0].Email)
	assert.Empty(t, users[0].Roles)
	assert.True(t, users[1].IsAdmin())
}

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)
	user := createUser(t, db, "temp@example.com", model.RoleAgent)

	require.NoError(t, s.DeleteUser(user.Id))
	_, err := s.GetUser(user.Id)
	assert.True(t, IsNotFound(err))

	var links int64
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", user.Id).Count(&links).Error)
	assert.Zero(t, links)

	assert.True(t, IsNotFound(s.DeleteUser(user.Id)))
}

func TestUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)
	member, err := s.GetUserByEmail("member@example.com")
	require.NoError(t, err)

	require.NoError(t, s.UpdatePassword(member.Id, "n3w-pass"))
	assert.Nil(t, s.CheckUser(member.Email, "Password1"))
	assert.NotNil(t, s.CheckUser(member.Email, "n3w-pass"))

	assert.True(t, IsValidation(s.UpdatePassword(member.Id, "")))
	assert.True(t, IsNotFound(s.UpdatePassword(9999, "x")))
}
