package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSessionSecret is only acceptable outside release mode.
const DefaultSessionSecret = "default-secret-key-change-me"

type Config struct {
	Port    string
	GinMode string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	JWTSecret string
	JWTTTL    time.Duration

	SessionStore  string
	SessionSecret string
	RedisHost     string
	RedisPort     string

	UploadDir       string
	PublicBaseURL   string
	MaxUploadFiles  int
	MaxUploadSizeMB int64

	OpenAIAPIKey string

	LogLevel  string
	LogFormat string

	OpenSignupRoles bool
}

var defaults = map[string]interface{}{
	"port":               "8080",
	"gin_mode":           "debug",
	"db_driver":          "mysql",
	"db_host":            "localhost",
	"db_port":            "3306",
	"db_user":            "taskuser",
	"db_password":        "taskpassword",
	"db_name":            "task_manager",
	"db_path":            "taskdesk.db",
	"jwt_secret":         "",
	"jwt_ttl":            "1h",
	"session_store":      "cookie",
	"session_secret":     DefaultSessionSecret,
	"redis_host":         "localhost",
	"redis_port":         "6379",
	"upload_dir":         "./uploads",
	"public_base_url":    "http://localhost:8080",
	"max_upload_files":   5,
	"max_upload_size_mb": 10,
	"openai_api_key":     "",
	"log_level":          "info",
	"log_format":         "text",
	"open_signup_roles":  false,
}

// Setup registers defaults and environment lookups on v. A .env file in the
// working directory is loaded first when present.
func Setup(v *viper.Viper) {
	_ = godotenv.Load()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	Setup(v)
	return FromViper(v)
}

// FromViper builds a Config from an already configured viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	ttl, err := time.ParseDuration(v.GetString("jwt_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	cfg := &Config{
		Port:            v.GetString("port"),
		GinMode:         v.GetString("gin_mode"),
		DBDriver:        strings.ToLower(v.GetString("db_driver")),
		DBHost:          v.GetString("db_host"),
		DBPort:          v.GetString("db_port"),
		DBUser:          v.GetString("db_user"),
		DBPassword:      v.GetString("db_password"),
		DBName:          v.GetString("db_name"),
		DBPath:          v.GetString("db_path"),
		JWTSecret:       v.GetString("jwt_secret"),
		JWTTTL:          ttl,
		SessionStore:    strings.ToLower(v.GetString("session_store")),
		SessionSecret:   v.GetString("session_secret"),
		RedisHost:       v.GetString("redis_host"),
		RedisPort:       v.GetString("redis_port"),
		UploadDir:       v.GetString("upload_dir"),
		PublicBaseURL:   strings.TrimRight(v.GetString("public_base_url"), "/"),
		MaxUploadFiles:  v.GetInt("max_upload_files"),
		MaxUploadSizeMB: v.GetInt64("max_upload_size_mb"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		OpenSignupRoles: v.GetBool("open_signup_roles"),
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionStore {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.MaxUploadFiles < 1 {
		return errors.New("MAX_UPLOAD_FILES must be at least 1")
	}
	if c.MaxUploadSizeMB < 1 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be at least 1")
	}
	if c.IsProduction() && (strings.TrimSpace(c.SessionSecret) == "" || c.SessionSecret == DefaultSessionSecret) {
		return errors.New("SESSION_SECRET must be set in release mode")
	}
	return nil
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
