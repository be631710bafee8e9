// Package session stores the logged-in identity in the signed cookie session.
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/bookshelf-app/bookshelf/database/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CookieName is the name of the session cookie.
const CookieName = "bookshelf"

const loginUser = "LOGIN_USER"

// LoginUser is the part of a user kept in the cookie. Roles are looked up on
// every request so a revoked role takes effect immediately.
type LoginUser struct {
	Id    int
	Email string
}

func init() {
	gob.Register(LoginUser{})
}

func SetLoginUser(c *gin.Context, user *model.User) error {
	s := sessions.Default(c)
	s.Set(loginUser, LoginUser{Id: user.Id, Email: user.Email})
	return s.Save()
}

func SetMaxAge(c *gin.Context, maxAge int) error {
	s := sessions.Default(c)
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s.Save()
}

func GetLoginUser(c *gin.Context) *LoginUser {
	s := sessions.Default(c)
	if obj := s.Get(loginUser); obj != nil {
		if user, ok := obj.(LoginUser); ok {
			return &user
		}
	}
	return nil
}

func IsLogin(c *gin.Context) bool {
	return GetLoginUser(c) != nil
}

func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	if err := s.Save(); err != nil {
		return err
	}
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	return nil
}
