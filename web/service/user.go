package service

import (
	"strings"

	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/util/crypto"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUserByEmail loads a user and its roles. Email comparison ignores case.
func (s *UserService) GetUserByEmail(email string) (*model.User, error) {
	email = normalizeEmail(email)
	user := &model.User{}
	err := s.db.Preload("Roles").Where("LOWER(email) = ?", email).First(user).Error
	if database.IsNotFound(err) {
		return nil, &NotFoundError{Resource: "user", ID: email}
	} else if err != nil {
		return nil, wrapDBError("get user", err)
	}
	return user, nil
}

func (s *UserService) GetUser(id int) (*model.User, error) {
	user := &model.User{}
	err := s.db.Preload("Roles").First(user, id).Error
	if database.IsNotFound(err) {
		return nil, &NotFoundError{Resource: "user", ID: id}
	} else if err != nil {
		return nil, wrapDBError("get user", err)
	}
	return user, nil
}

// CheckUser returns the active user matching the credentials, or nil.
func (s *UserService) CheckUser(email string, password string) *model.User {
	user, err := s.GetUserByEmail(email)
	if IsNotFound(err) {
		return nil
	} else if err != nil {
		logger.Warning("check user err:", err)
		return nil
	}

	if !user.Active {
		return nil
	}
	if !crypto.CheckPasswordHash(user.Password, password) {
		return nil
	}
	return user
}

// IsAdmin reports whether the user with this email holds the Admin role.
// Unknown users and store failures count as not admin.
func (s *UserService) IsAdmin(email string) bool {
	return s.HasRole(email, model.RoleAdmin)
}

func (s *UserService) HasRole(email string, role model.RoleName) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if !IsNotFound(err) {
			logger.Warningf("role lookup for %s failed: %v", email, err)
		}
		return false
	}
	return model.HasRole(user.RoleNames(), role)
}

func (s *UserService) ListUsers() ([]model.User, error) {
	users := make([]model.User, 0)
	if err := s.db.Preload("Roles").Order("id ASC").Find(&users).Error; err != nil {
		return nil, wrapDBError("list users", err)
	}
	return users, nil
}

func (s *UserService) getRole(name model.RoleName) (*model.Role, error) {
	role := &model.Role{}
	err := s.db.Where("name = ?", name).First(role).Error
	if database.IsNotFound(err) {
		return nil, &ValidationError{Field: "role", Msg: "unknown role " + string(name)}
	} else if err != nil {
		return nil, err
	}
	return role, nil
}

// GrantRole attaches a role to a user. Granting a held role is a no-op.
func (s *UserService) GrantRole(userID int, name model.RoleName) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	role, err := s.getRole(name)
	if err != nil {
		return wrapDBError("grant role", err)
	}
	if err := s.db.Model(user).Association("Roles").Append(role); err != nil {
		return wrapDBError("grant role", err)
	}
	logger.Noticef("Granted role %s to %s", name, user.Email)
	return nil
}

// RevokeRole detaches a role from a user. The last Admin role in the system
// can not be revoked.
func (s *UserService) RevokeRole(userID int, name model.RoleName) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	role, err := s.getRole(name)
	if err != nil {
		return wrapDBError("revoke role", err)
	}
	if name == model.RoleAdmin && user.IsAdmin() {
		var admins int64
		err := s.db.Model(&model.UserRole{}).Where("role_id = ?", role.Id).Count(&admins).Error
		if err != nil {
			return wrapDBError("revoke role", err)
		}
		if admins <= 1 {
			return &ValidationError{Field: "role", Msg: "can not revoke the last administrator"}
		}
	}
	if err := s.db.Model(user).Association("Roles").Delete(role); err != nil {
		return wrapDBError("revoke role", err)
	}
	logger.Noticef("Revoked role %s from %s", name, user.Email)
	return nil
}

func (s *UserService) UpdatePassword(id int, password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Msg: "is required"}
	}
	hashedPassword, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return err
	}
	res := s.db.Model(model.User{}).Where("id = ?", id).Update("password", hashedPassword)
	if res.Error != nil {
		return wrapDBError("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "user", ID: id}
	}
	return nil
}

// DeleteUser removes a user together with its role links.
func (s *UserService) DeleteUser(id int) error {
	user, err := s.GetUser(id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		var others int64
		err := s.db.Model(&model.UserRole{}).
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ? AND user_roles.user_id <> ?", model.RoleAdmin, id).
			Count(&others).Error
		if err != nil {
			return wrapDBError("delete user", err)
		}
		if others == 0 {
			return &ValidationError{Field: "user", Msg: "can not delete the last administrator"}
		}
	}
	if err := s.db.Select(clause.Associations).Delete(user).Error; err != nil {
		return wrapDBError("delete user", err)
	}
	logger.Noticef("Deleted user %s", user.Email)
	return nil
}
