// Package model defines the persisted entities of the catalog: users and their
// roles, categories and books, plus the key/value panel settings.
package model

import (
	"slices"
	"strings"
	"time"
)

// RoleName identifies a role. Authorization compares these values, never free text.
type RoleName string

const (
	RoleAdmin RoleName = "Admin"
	RoleAgent RoleName = "Agent"
)

// DefaultRoles are created at startup when missing.
var DefaultRoles = []RoleName{RoleAdmin, RoleAgent}

// ParseRoleName accepts the known role names case-insensitively.
func ParseRoleName(s string) (RoleName, bool) {
	for _, r := range DefaultRoles {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

type User struct {
	Id               int        `json:"id" gorm:"primaryKey;autoIncrement"`
	Active           bool       `json:"active" gorm:"column:is_active;not null;default:true"`
	Email            string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	EmailConfirmedAt *time.Time `json:"emailConfirmedAt"`
	Password         string     `json:"-" gorm:"size:255;not null;default:''"`
	FirstName        string     `json:"firstName" gorm:"size:100;not null;default:''"`
	LastName         string     `json:"lastName" gorm:"size:100;not null;default:''"`
	Roles            []Role     `json:"roles" gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string { return "users" }

// RoleNames flattens the loaded Roles association.
func (u *User) RoleNames() []RoleName {
	names := make([]RoleName, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// IsAdmin reports whether the loaded roles include Admin.
func (u *User) IsAdmin() bool {
	return u != nil && HasRole(u.RoleNames(), RoleAdmin)
}

// HasRole reports whether want is among roles.
func HasRole(roles []RoleName, want RoleName) bool {
	return slices.Contains(roles, want)
}

type Role struct {
	Id   int      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name RoleName `json:"name" gorm:"size:50;uniqueIndex"`
}

func (Role) TableName() string { return "roles" }

// UserRole is the user_roles join row. Deleting either side removes it.
type UserRole struct {
	UserId    int       `gorm:"primaryKey"`
	RoleId    int       `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }

// Category is keyed naturally by its description.
type Category struct {
	Id          int    `json:"id" form:"id" gorm:"primaryKey;autoIncrement"`
	Description string `json:"description" form:"description" gorm:"not null;uniqueIndex"`
}

func (Category) TableName() string { return "category" }

type Book struct {
	Id          int       `json:"id" form:"id" gorm:"primaryKey;autoIncrement"`
	Author      string    `json:"author" form:"author" gorm:"not null;default:''"`
	Title       string    `json:"title" form:"title" gorm:"not null;default:''"`
	Isbn        int64     `json:"isbn" form:"isbn" gorm:"not null"`
	Description string    `json:"description" form:"description" gorm:"not null;default:''"`
	CategoryId  int       `json:"categoryId" form:"categoryId" gorm:"not null;index"`
	Category    *Category `json:"category,omitempty" gorm:"foreignKey:CategoryId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Book) TableName() string { return "book" }

type Setting struct {
	Id    int    `json:"id" form:"id" gorm:"primaryKey;autoIncrement"`
	Key   string `json:"key" form:"key" gorm:"uniqueIndex"`
	Value string `json:"value" form:"value"`
}

func (Setting) TableName() string { return "settings" }
