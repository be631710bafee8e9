package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesToken(t *testing.T) {
	db := newTestDB(t)
	s := NewAuthService(NewUserService(db), NewSettingService(db))

	token, user, err := s.Login("member@example.com", "Password1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.Id, claims.UserId())
	assert.Equal(t, "member@example.com", claims.Email)

	_, _, err = s.Login("member@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	db := newTestDB(t)
	s := NewAuthService(NewUserService(db), NewSettingService(db))

	token, _, err := s.Login("member@example.com", "Password1")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(TokenTTL + time.Minute) }
	_, err = s.ParseToken(token)
	assert.Error(t, err)

	s.now = time.Now
	other := NewAuthService(NewUserService(newTestDB(t)), NewSettingService(newTestDB(t)))
	_, err = other.ParseToken(token)
	assert.Error(t, err)

	_, err = s.ParseToken("not.a.token")
	assert.Error(t, err)
}
