package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is only accepted outside production.
const DefaultJWTSecret = "dev-secret-change-me"

// Config holds all configuration for the application
type Config struct {
	Environment Environment `mapstructure:"-"`

	// Server configuration
	ServerPort  string   `mapstructure:"server_port"`
	ServerHost  string   `mapstructure:"server_host"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Database configuration
	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_ssl_mode"`
	DBPath     string `mapstructure:"db_path"`

	// Redis configuration
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisURL      string `mapstructure:"redis_url"`

	// JWT configuration
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// Image storage. S3 is used when a bucket is configured, local disk otherwise.
	S3BucketName string `mapstructure:"s3_bucket_name"`
	AWSRegion    string `mapstructure:"aws_region"`
	MediaRoot    string `mapstructure:"media_root"`
	MediaURL     string `mapstructure:"media_url"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	PageSize int `mapstructure:"page_size"`

	RecipeCreateLimit  int           `mapstructure:"recipe_create_limit"`
	RecipeCreateWindow time.Duration `mapstructure:"recipe_create_window"`
}

// secretKeys are read from SECRETS_DIR when present there.
var secretKeys = []string{
	"db_user",
	"db_password",
	"jwt_secret",
	"redis_password",
	"redis_url",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "foodgram")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_path", "foodgram.db")

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_url", "")

	v.SetDefault("jwt_secret", DefaultJWTSecret)
	v.SetDefault("token_ttl", 24*time.Hour)

	v.SetDefault("s3_bucket_name", "")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("media_root", "media")
	v.SetDefault("media_url", "/media")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("page_size", 6)

	v.SetDefault("recipe_create_limit", 20)
	v.SetDefault("recipe_create_window", time.Hour)
}

// LoadConfig resolves configuration from defaults, secret files and
// environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if env != CI {
		for _, name := range secretKeys {
			if value := readSecret(name); value != "" {
				v.SetDefault(name, value)
			}
		}
	}
	if env == Development || env == Test {
		v.SetDefault("log_format", "console")
		v.SetDefault("log_level", "debug")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Environment = env
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// DatabaseURL returns the PostgreSQL connection string in URL form.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// splitList accepts both proper lists and a single comma separated value,
// which is what an environment variable produces.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
