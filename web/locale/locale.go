// Package locale loads the TOML translations and picks a localizer per request.
package locale

import (
	"io/fs"
	"strings"
	"sync"

	"github.com/bookshelf-app/bookshelf/logger"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const localizerKey = "localizer"

var (
	bundleMu   sync.RWMutex
	i18nBundle *i18n.Bundle
)

// InitLocalizer parses every file under translation/ in i18nFS. English is
// the fallback language.
func InitLocalizer(i18nFS fs.FS) error {
	bundle := i18n.NewBundle(language.MustParse("en-US"))
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	if err := parseTranslationFiles(i18nFS, bundle); err != nil {
		return err
	}

	bundleMu.Lock()
	i18nBundle = bundle
	bundleMu.Unlock()
	return nil
}

func getBundle() *i18n.Bundle {
	bundleMu.RLock()
	defer bundleMu.RUnlock()
	return i18nBundle
}

// NewLocalizer returns a localizer for the preferred languages, or nil when
// InitLocalizer has not run.
func NewLocalizer(langs ...string) *i18n.Localizer {
	bundle := getBundle()
	if bundle == nil {
		return nil
	}
	return i18n.NewLocalizer(bundle, langs...)
}

func createTemplateData(params []string, seperator ...string) map[string]any {
	sep := "=="
	if len(seperator) > 0 {
		sep = seperator[0]
	}

	templateData := make(map[string]any)
	for _, param := range params {
		parts := strings.SplitN(param, sep, 2)
		if len(parts) != 2 {
			continue
		}
		templateData[parts[0]] = parts[1]
	}

	return templateData
}

// I18n translates key. Params are "name==value" pairs. A nil localizer or a
// missing message yields the key itself.
func I18n(localizer *i18n.Localizer, key string, params ...string) string {
	if localizer == nil {
		return key
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		logger.Warningf("Failed to localize message %s: %v", key, err)
		return key
	}

	return msg
}

// LocalizerMiddleware picks the language from the "lang" cookie, then from
// Accept-Language.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string
		if cookie, err := c.Request.Cookie("lang"); err == nil {
			lang = cookie.Value
		}

		c.Set(localizerKey, NewLocalizer(lang, c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// FromContext returns the localizer set by LocalizerMiddleware, or nil.
func FromContext(c *gin.Context) *i18n.Localizer {
	if v, ok := c.Get(localizerKey); ok {
		if l, ok := v.(*i18n.Localizer); ok {
			return l
		}
	}
	return nil
}

func parseTranslationFiles(i18nFS fs.FS, bundle *i18n.Bundle) error {
	return fs.WalkDir(i18nFS, "translation", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(i18nFS, path)
		if err != nil {
			return err
		}

		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
}
