package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RemoteNone     = "none"
	RemoteSupabase = "supabase"
	RemotePostgres = "postgres"

	LocalMemory = "memory"
	LocalRedis  = "redis"
	LocalSQLite = "sqlite"
)

type Config struct {
	Addr       string
	Env        string
	LogLevel   string
	CORSOrigin string

	// Remote content store
	RemoteBackend string
	SupabaseURL   string
	SupabaseKey   string
	DatabaseURL   string
	MigrationsDir string
	RemoteTimeout time.Duration

	// Local content store
	LocalBackend    string
	RedisURL        string
	SQLitePath      string
	LocalStorageKey string

	// Object storage for team images
	S3Endpoint         string
	S3AccessKey        string
	S3SecretKey        string
	S3Region           string
	S3UseSSL           bool
	ImageBucket        string
	ImagePublicBaseURL string

	// Admin
	AdminUsername string
	AdminPassword string
	SessionSecret string
	SessionTTL    time.Duration

	// SMTP
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	ContactRecipient string
	ContactPerMinute int

	ServicesRollbackOnFailure bool
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return Config{
		Addr:       v.GetString("API_ADDR"),
		Env:        v.GetString("APP_ENV"),
		LogLevel:   v.GetString("LOG_LEVEL"),
		CORSOrigin: v.GetString("CORS_ORIGIN"),

		RemoteBackend: strings.ToLower(v.GetString("REMOTE_BACKEND")),
		SupabaseURL:   v.GetString("SUPABASE_URL"),
		SupabaseKey:   v.GetString("SUPABASE_KEY"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		RemoteTimeout: time.Duration(v.GetInt("REMOTE_TIMEOUT_SECONDS")) * time.Second,

		LocalBackend:    strings.ToLower(v.GetString("LOCAL_BACKEND")),
		RedisURL:        v.GetString("REDIS_URL"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
		LocalStorageKey: v.GetString("LOCAL_STORAGE_KEY"),

		S3Endpoint:         v.GetString("S3_ENDPOINT"),
		S3AccessKey:        v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:        v.GetString("S3_SECRET_KEY"),
		S3Region:           v.GetString("S3_REGION"),
		S3UseSSL:           v.GetBool("S3_USE_SSL"),
		ImageBucket:        v.GetString("IMAGE_BUCKET"),
		ImagePublicBaseURL: v.GetString("IMAGE_PUBLIC_BASE_URL"),

		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		SessionTTL:    time.Duration(v.GetInt("SESSION_TTL_SECONDS")) * time.Second,

		SMTPHost:         v.GetString("SMTP_HOST"),
		SMTPPort:         v.GetString("SMTP_PORT"),
		SMTPUsername:     v.GetString("SMTP_USERNAME"),
		SMTPPassword:     v.GetString("SMTP_PASSWORD"),
		SMTPFrom:         v.GetString("SMTP_FROM"),
		SMTPFromName:     v.GetString("SMTP_FROM_NAME"),
		ContactRecipient: v.GetString("CONTACT_RECIPIENT"),
		ContactPerMinute: v.GetInt("CONTACT_RATE_PER_MINUTE"),

		ServicesRollbackOnFailure: v.GetBool("SERVICES_ROLLBACK_ON_FAILURE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGIN", "*")

	v.SetDefault("REMOTE_BACKEND", RemoteNone)
	v.SetDefault("MIGRATIONS_DIR", "./db/migrations")
	v.SetDefault("REMOTE_TIMEOUT_SECONDS", 8)

	v.SetDefault("LOCAL_BACKEND", LocalMemory)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SQLITE_PATH", "./data/site.db")
	v.SetDefault("LOCAL_STORAGE_KEY", "medibilling-admin-data")

	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("IMAGE_BUCKET", "team-images")

	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("SESSION_SECRET", "medibilling-dev-secret")
	v.SetDefault("SESSION_TTL_SECONDS", 28800)

	// SMTP is disabled unless SMTP_HOST and SMTP_FROM are set
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_FROM_NAME", "MediBilling")
	v.SetDefault("CONTACT_RATE_PER_MINUTE", 6)
}

// Validate reports combinations the process cannot start with.
func (c Config) Validate() error {
	switch c.RemoteBackend {
	case RemoteNone:
	case RemoteSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("REMOTE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	case RemotePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("REMOTE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown REMOTE_BACKEND %q", c.RemoteBackend)
	}

	switch c.LocalBackend {
	case LocalMemory, LocalRedis, LocalSQLite:
	default:
		return fmt.Errorf("unknown LOCAL_BACKEND %q", c.LocalBackend)
	}

	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT_SECONDS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.Env == "production" && c.SessionSecret == "medibilling-dev-secret" {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	return nil
}

// ImagesEnabled reports whether an object storage endpoint is configured.
func (c Config) ImagesEnabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
