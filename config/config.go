package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	ScopingEnabled  = "enabled"
	ScopingDisabled = "disabled"
	ScopingAuto     = "auto"

	UploadLocal = "local"
	UploadR2    = "r2"
)

type DatabaseConfig struct {
	Type         string
	PostgresURL  string
	MaxOpenConns int
	MaxIdleConns int
	SQLitePath   string
	MongoURL     string
	MongoDB      string
}

type AuthConfig struct {
	JWTSecret string
	APIKey    string
}

type UploadConfig struct {
	Backend  string
	Dir      string
	MaxBytes int64
	R2       R2Config
}

type R2Config struct {
	Bucket          string
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

type LoggerConfig struct {
	Mode     string
	Filename string
}

type Config struct {
	Port              string
	Database          DatabaseConfig
	Auth              AuthConfig
	Upload            UploadConfig
	Logger            LoggerConfig
	OwnerScoping      string
	ScopedDelete      bool
	EnableDiagnostics bool
	CurrencyMajor     string
	CurrencyMinor     string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "3000"),
		Database: DatabaseConfig{
			Type:         strings.ToLower(getEnv("DB_TYPE", "postgres")),
			PostgresURL:  os.Getenv("POSTGRES_URL"),
			MaxOpenConns: cast.ToInt(getEnv("DB_MAX_OPEN_CONNS", "10")),
			MaxIdleConns: cast.ToInt(getEnv("DB_MAX_IDLE_CONNS", "5")),
			SQLitePath:   getEnv("SQLITE_PATH", "data/app.db"),
			MongoURL:     os.Getenv("MONGO_URL"),
			MongoDB:      getEnv("MONGO_DATABASE", "productsapi"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			APIKey:    os.Getenv("API_KEY"),
		},
		Upload: UploadConfig{
			Backend:  strings.ToLower(getEnv("UPLOAD_BACKEND", UploadLocal)),
			Dir:      getEnv("UPLOAD_DIR", "./uploads"),
			MaxBytes: cast.ToInt64(getEnv("UPLOAD_MAX_BYTES", "5242880")),
			R2: R2Config{
				Bucket:          os.Getenv("R2_BUCKET"),
				AccountID:       os.Getenv("R2_ACCOUNT_ID"),
				AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
				PublicURL:       os.Getenv("R2_PUBLIC_URL"),
			},
		},
		Logger: LoggerConfig{
			Mode:     getEnv("LOG_MODE", "development"),
			Filename: os.Getenv("LOG_FILE"),
		},
		OwnerScoping:      strings.ToLower(getEnv("OWNER_SCOPING", ScopingEnabled)),
		ScopedDelete:      cast.ToBool(getEnv("SCOPED_DELETE", "true")),
		EnableDiagnostics: cast.ToBool(getEnv("ENABLE_DIAGNOSTICS", "false")),
		CurrencyMajor:     getEnv("CURRENCY_MAJOR", "Dollars"),
		CurrencyMinor:     getEnv("CURRENCY_MINOR", "Cents"),
	}

	if cfg.Database.PostgresURL == "" {
		cfg.Database.PostgresURL = postgresURLFromParts()
	}
	if cfg.Auth.JWTSecret == "" && cfg.Logger.Mode != "production" {
		cfg.Auth.JWTSecret = "dev-only-jwt-secret"
	}
	return cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("DB_TYPE %q not supported", c.Database.Type)
	}
	switch c.OwnerScoping {
	case ScopingEnabled, ScopingDisabled, ScopingAuto:
	default:
		return fmt.Errorf("OWNER_SCOPING %q not supported", c.OwnerScoping)
	}
	switch c.Upload.Backend {
	case UploadLocal, UploadR2:
	default:
		return fmt.Errorf("UPLOAD_BACKEND %q not supported", c.Upload.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

func postgresURLFromParts() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:     host + ":" + port,
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
