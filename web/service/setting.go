package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/util/common"
	"github.com/bookshelf-app/bookshelf/util/random"
	"github.com/bookshelf-app/bookshelf/util/reflect_util"
	"github.com/bookshelf-app/bookshelf/web/entity"

	"gorm.io/gorm"
)

var defaultValueMap = map[string]string{
	"webListen":     "",
	"webPort":       "4000",
	"webBasePath":   "/",
	"sessionMaxAge": "60",
	"timeLocation":  "Local",
}

// SettingService reads and writes the key/value panel settings. Missing keys
// fall back to defaultValueMap.
type SettingService struct {
	db *gorm.DB
}

func NewSettingService(db *gorm.DB) *SettingService {
	return &SettingService{db: db}
}

func (s *SettingService) GetAllSetting() (*entity.AllSetting, error) {
	settings := make([]*model.Setting, 0)
	err := s.db.Model(model.Setting{}).Not("key = ?", "secret").Find(&settings).Error
	if err != nil {
		return nil, err
	}
	allSetting := &entity.AllSetting{}
	v := reflect.ValueOf(allSetting).Elem()
	fields := reflect_util.FieldsByTag(v.Type(), "json")

	setSetting := func(key, value string) error {
		field, ok := fields[key]
		if !ok {
			return nil
		}
		fieldV := v.FieldByName(field.Name)
		switch t := fieldV.Interface().(type) {
		case int:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			fieldV.SetInt(n)
		case string:
			fieldV.SetString(value)
		case bool:
			fieldV.SetBool(value == "true")
		default:
			return common.NewErrorf("unknown field %v type %v", key, t)
		}
		return nil
	}

	keyMap := map[string]bool{}
	for _, setting := range settings {
		if err := setSetting(setting.Key, setting.Value); err != nil {
			return nil, err
		}
		keyMap[setting.Key] = true
	}
	for key, value := range defaultValueMap {
		if keyMap[key] {
			continue
		}
		if err := setSetting(key, value); err != nil {
			return nil, err
		}
	}
	return allSetting, nil
}

func (s *SettingService) UpdateAllSetting(allSetting *entity.AllSetting) error {
	if err := allSetting.CheckValid(); err != nil {
		return &ValidationError{Field: "settings", Msg: err.Error()}
	}

	v := reflect.ValueOf(allSetting).Elem()
	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, field := range reflect_util.FieldsByTag(v.Type(), "json") {
			value := fmt.Sprint(v.FieldByName(field.Name).Interface())
			if err := saveSetting(tx, key, value); err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// ResetSettings removes every stored setting, including the session secret.
func (s *SettingService) ResetSettings() error {
	return s.db.Where("1 = 1").Delete(model.Setting{}).Error
}

func (s *SettingService) getSetting(key string) (*model.Setting, error) {
	return getSetting(s.db, key)
}

func (s *SettingService) saveSetting(key string, value string) error {
	return saveSetting(s.db, key, value)
}

func getSetting(db *gorm.DB, key string) (*model.Setting, error) {
	setting := &model.Setting{}
	err := db.Model(model.Setting{}).Where("key = ?", key).First(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func saveSetting(db *gorm.DB, key string, value string) error {
	setting, err := getSetting(db, key)
	if database.IsNotFound(err) {
		return db.Create(&model.Setting{
			Key:   key,
			Value: value,
		}).Error
	} else if err != nil {
		return err
	}
	setting.Value = value
	return db.Save(setting).Error
}

func (s *SettingService) getString(key string) (string, error) {
	setting, err := s.getSetting(key)
	if database.IsNotFound(err) {
		value, ok := defaultValueMap[key]
		if !ok {
			return "", common.NewErrorf("key <%v> not in defaultValueMap", key)
		}
		return value, nil
	} else if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingService) getInt(key string) (int, error) {
	str, err := s.getString(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(str)
}

func (s *SettingService) GetListen() (string, error) {
	return s.getString("webListen")
}

func (s *SettingService) SetListen(ip string) error {
	return s.saveSetting("webListen", ip)
}

func (s *SettingService) GetPort() (int, error) {
	return s.getInt("webPort")
}

func (s *SettingService) SetPort(port int) error {
	return s.saveSetting("webPort", strconv.Itoa(port))
}

func (s *SettingService) GetSessionMaxAge() (int, error) {
	return s.getInt("sessionMaxAge")
}

// GetSecret returns the session signing secret. The generated default is
// stored on first use so cookies stay valid across restarts.
func (s *SettingService) GetSecret() ([]byte, error) {
	setting, err := s.getSetting("secret")
	if err == nil {
		return []byte(setting.Value), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	secret := random.Seq(32)
	if err := s.saveSetting("secret", secret); err != nil {
		logger.Warning("save secret failed:", err)
		return nil, err
	}
	return []byte(secret), nil
}

func (s *SettingService) SetBasePath(basePath string) error {
	return s.saveSetting("webBasePath", normalizeBasePath(basePath))
}

func (s *SettingService) GetBasePath() (string, error) {
	basePath, err := s.getString("webBasePath")
	if err != nil {
		return "", err
	}
	return normalizeBasePath(basePath), nil
}

func normalizeBasePath(basePath string) string {
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return basePath
}

func (s *SettingService) GetTimeLocation() (*time.Location, error) {
	l, err := s.getString("timeLocation")
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(l)
	if err != nil {
		defaultLocation := defaultValueMap["timeLocation"]
		logger.Errorf("location <%v> not exist, using default location: %v", l, defaultLocation)
		return time.LoadLocation(defaultLocation)
	}
	return location, nil
}
