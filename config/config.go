// Package config reads the panel's process-level settings from the environment.
// Persistent panel settings (port, session secret, ...) live in the database instead.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const defaultAdminEmail = "admin@example.com"

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("BOOKSHELF_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("BOOKSHELF_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("BOOKSHELF_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/etc/bookshelf"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("BOOKSHELF_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

// GetRedisAddr returns the external Redis address. Empty means the embedded one.
func GetRedisAddr() string {
	return os.Getenv("BOOKSHELF_REDIS_ADDR")
}

// GetAdminEmail is the login of the seeded administrator account.
func GetAdminEmail() string {
	email := os.Getenv("BOOKSHELF_ADMIN_EMAIL")
	if email == "" {
		return defaultAdminEmail
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// GetAPIOrigins lists the browser origins allowed to call the JSON API,
// comma-separated in BOOKSHELF_API_ORIGINS. Empty disables CORS.
func GetAPIOrigins() []string {
	return envList("BOOKSHELF_API_ORIGINS")
}

// GetTrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For and
// X-Real-IP headers are believed, comma-separated in BOOKSHELF_TRUSTED_PROXIES.
// Empty means trust none and use the socket address.
func GetTrustedProxies() []string {
	return envList("BOOKSHELF_TRUSTED_PROXIES")
}

func envList(key string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
