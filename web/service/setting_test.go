package service

import (
	"errors"
	"testing"

	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/web/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSettingDefaults(t *testing.T) {
	s := NewSettingService(newTestDB(t))

	port, err := s.GetPort()
	require.NoError(t, err)
	assert.Equal(t, 4000, port)

	basePath, err := s.GetBasePath()
	require.NoError(t, err)
	assert.Equal(t, "/", basePath)

	maxAge, err := s.GetSessionMaxAge()
	require.NoError(t, err)
	assert.Equal(t, 60, maxAge)

	all, err := s.GetAllSetting()
	require.NoError(t, err)
	assert.Equal(t, &entity.AllSetting{WebPort: 4000, WebBasePath: "/", SessionMaxAge: 60, TimeLocation: "Local"}, all)
}

func TestSecretIsPersisted(t *testing.T) {
	s := NewSettingService(newTestDB(t))

	first, err := s.GetSecret()
	require.NoError(t, err)
	assert.Len(t, first, 32)
	second, err := s.GetSecret()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, s.ResetSettings())
	third, err := s.GetSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestUpdateAllSetting(t *testing.T) {
	s := NewSettingService(newTestDB(t))

	err := s.UpdateAllSetting(&entity.AllSetting{
		WebListen:     "127.0.0.1",
		WebPort:       8080,
		WebBasePath:   "library",
		SessionMaxAge: 30,
		TimeLocation:  "UTC",
	})
	require.NoError(t, err)

	all, err := s.GetAllSetting()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", all.WebListen)
	assert.Equal(t, 8080, all.WebPort)
	assert.Equal(t, "/library/", all.WebBasePath)
	assert.Equal(t, 30, all.SessionMaxAge)

	loc, err := s.GetTimeLocation()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	err = s.UpdateAllSetting(&entity.AllSetting{WebPort: -1, WebBasePath: "/", TimeLocation: "UTC"})
	assert.True(t, IsValidation(err), "got %v", err)
	port, err := s.GetPort()
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

func TestSetters(t *testing.T) {
	s := NewSettingService(newTestDB(t))
	require.NoError(t, s.SetPort(9000))
	require.NoError(t, s.SetListen("0.0.0.0"))
	require.NoError(t, s.SetBasePath("shelf"))

	port, _ := s.GetPort()
	listen, _ := s.GetListen()
	basePath, _ := s.GetBasePath()
	assert.Equal(t, 9000, port)
	assert.Equal(t, "0.0.0.0", listen)
	assert.Equal(t, "/shelf/", basePath)
}

func TestUpdateAllSettingIsAtomic(t *testing.T) {
	db := newTestDB(t)
	diskFull := errors.New("disk full")
	failTimeLocation := func(tx *gorm.DB) {
		if setting, ok := tx.Statement.Dest.(*model.Setting); ok && setting.Key == "timeLocation" {
			_ = tx.AddError(diskFull)
		}
	}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_time_location", failTimeLocation))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_time_location", failTimeLocation))

	s := NewSettingService(db)
	err := s.UpdateAllSetting(&entity.AllSetting{
		WebPort:       8080,
		WebBasePath:   "library",
		SessionMaxAge: 30,
		TimeLocation:  "UTC",
	})
	assert.ErrorIs(t, err, diskFull)

	all, err := s.GetAllSetting()
	require.NoError(t, err)
	assert.Equal(t, &entity.AllSetting{WebPort: 4000, WebBasePath: "/", SessionMaxAge: 60, TimeLocation: "Local"}, all)
}
