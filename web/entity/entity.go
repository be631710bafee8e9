// Package entity defines the forms and response envelopes used by the web layer.
package entity

import (
	"math"
	"net"
	"strings"
	"time"

	"github.com/bookshelf-app/bookshelf/util/common"
)

// Msg represents a standard API response message with success status, message text, and optional data object.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj"`
}

// BookForm is the add/edit book form. Fields arrive as raw strings and are
// trimmed and checked by the catalog service.
type BookForm struct {
	Author      string `json:"author" form:"author" validate:"required"`
	Title       string `json:"title" form:"title" validate:"required"`
	Isbn        string `json:"isbn" form:"isbn" validate:"required"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category" validate:"required"`
}

// Trim returns a copy of the form with surrounding spaces removed from every field.
func (f BookForm) Trim() BookForm {
	return BookForm{
		Author:      strings.TrimSpace(f.Author),
		Title:       strings.TrimSpace(f.Title),
		Isbn:        strings.TrimSpace(f.Isbn),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
	}
}

type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RoleForm grants or revokes one role on the admin page.
type RoleForm struct {
	Action string `json:"action" form:"action" binding:"required,oneof=grant revoke"`
	Role   string `json:"role" form:"role" binding:"required"`
}

// AllSetting is the full set of panel settings.
type AllSetting struct {
	WebListen     string `json:"webListen" form:"webListen"`
	WebPort       int    `json:"webPort" form:"webPort"`
	WebBasePath   string `json:"webBasePath" form:"webBasePath"`
	SessionMaxAge int    `json:"sessionMaxAge" form:"sessionMaxAge"` // minutes
	TimeLocation  string `json:"timeLocation" form:"timeLocation"`
}

// CheckValid validates the listen address, port and time zone, and normalizes
// the base path to start and end with a slash.
func (s *AllSetting) CheckValid() error {
	if s.WebListen != "" {
		ip := net.ParseIP(s.WebListen)
		if ip == nil {
			return common.NewError("web listen is not valid ip:", s.WebListen)
		}
	}

	if s.WebPort <= 0 || s.WebPort > math.MaxUint16 {
		return common.NewError("web port is not a valid port:", s.WebPort)
	}

	if s.SessionMaxAge < 0 {
		return common.NewError("session max age can not be negative:", s.SessionMaxAge)
	}

	if !strings.HasPrefix(s.WebBasePath, "/") {
		s.WebBasePath = "/" + s.WebBasePath
	}
	if !strings.HasSuffix(s.WebBasePath, "/") {
		s.WebBasePath += "/"
	}

	_, err := time.LoadLocation(s.TimeLocation)
	if err != nil {
		return common.NewError("time location not exist:", s.TimeLocation)
	}

	return nil
}
