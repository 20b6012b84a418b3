package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string
	BaseURL  string

	DataDir   string
	BackupDir string
	FilesDir  string

	LegacyStorePath        string
	DocumentStorePath      string
	PurchaseOrderStorePath string
	CompanyStorePath       string

	LogLevel  string
	LogFormat string

	BackupKeepDays int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	dataDir := getenv("DATA_DIR", "data")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "backoffice"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		BaseURL:  strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),

		DataDir:   dataDir,
		BackupDir: getenv("BACKUP_DIR", filepath.Join(dataDir, "backups")),
		FilesDir:  getenv("FILES_DIR", filepath.Join(dataDir, "files")),

		LegacyStorePath:        getenv("LEGACY_STORE_PATH", filepath.Join(dataDir, "submissions_legacy.db")),
		DocumentStorePath:      getenv("DOCUMENT_STORE_PATH", filepath.Join(dataDir, "submissions_documents.db")),
		PurchaseOrderStorePath: getenv("PURCHASE_ORDER_STORE_PATH", filepath.Join(dataDir, "purchase_orders.db")),
		CompanyStorePath:       getenv("COMPANY_STORE_PATH", filepath.Join(dataDir, "company.db")),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		BackupKeepDays: getenvInt("BACKUP_KEEP_DAYS", 30),
	}

	return cfg
}

func (c Config) Debug() bool {
	return c.Environment != "production"
}

// PublicLink builds the client-facing approval link for a token.
func (c Config) PublicLink(token string) string {
	return c.BaseURL + "/s/" + token
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSettingsHolder),
)
