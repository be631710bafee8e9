package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/bookshelf-app/bookshelf/database/model"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an API token stays valid.
const TokenTTL = 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid email or password")

// TokenClaims identify the bearer of an API token.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserId returns the numeric subject.
func (c *TokenClaims) UserId() int {
	id, _ := strconv.Atoi(c.Subject)
	return id
}

// AuthService issues and checks bearer tokens for the JSON API. Tokens are
// signed with the session secret.
type AuthService struct {
	users    *UserService
	settings *SettingService
	now      func() time.Time
}

func NewAuthService(users *UserService, settings *SettingService) *AuthService {
	return &AuthService{users: users, settings: settings, now: time.Now}
}

// Login checks the credentials and returns a signed token and the user.
func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	user := s.users.CheckUser(email, password)
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.IssueToken(user)
	return token, user, err
}

func (s *AuthService) IssueToken(user *model.User) (string, error) {
	secret, err := s.settings.GetSecret()
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := TokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.Id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates the signature and expiry of a token.
func (s *AuthService) ParseToken(tokenString string) (*TokenClaims, error) {
	secret, err := s.settings.GetSecret()
	if err != nil {
		return nil, err
	}
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserId() == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
