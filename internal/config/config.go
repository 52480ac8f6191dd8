package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	DefaultHospital    string        `mapstructure:"DEFAULT_HOSPITAL"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StorageBackend     string        `mapstructure:"STORAGE_BACKEND"`
	StorageDir         string        `mapstructure:"STORAGE_DIR"`
	S3Bucket           string        `mapstructure:"S3_BUCKET"`
	S3Region           string        `mapstructure:"S3_REGION"`
	RecommenderEnabled bool          `mapstructure:"RECOMMENDER_ENABLED"`
	RecommenderURL     string        `mapstructure:"RECOMMENDER_URL"`
	RendererURL        string        `mapstructure:"RENDERER_URL"`
	NarratorURL        string        `mapstructure:"NARRATOR_URL"`
	MigrationsDir      string        `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_HOSPITAL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("STORAGE_DIR", "./data/documents")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("RECOMMENDER_ENABLED", true)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET", "DEFAULT_HOSPITAL", "CORS_ORIGINS", "REQUEST_TIMEOUT",
		"STORAGE_BACKEND", "STORAGE_DIR", "S3_BUCKET", "S3_REGION",
		"RECOMMENDER_ENABLED", "RECOMMENDER_URL", "RENDERER_URL", "NARRATOR_URL", "MIGRATIONS_DIR",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is mandatory so real authentication is enforced, and the
// selected storage backend must be fully specified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}

	switch c.StorageBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is \"s3\"")
		}
	case "local":
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required when STORAGE_BACKEND is \"local\"")
		}
	case "disabled":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"s3\", \"local\", or \"disabled\", got %q", c.StorageBackend)
	}

	if c.RecommenderURL != "" && !strings.HasPrefix(c.RecommenderURL, "http") {
		return fmt.Errorf("RECOMMENDER_URL must be an http(s) URL, got %q", c.RecommenderURL)
	}
	if c.RendererURL != "" && !strings.HasPrefix(c.RendererURL, "http") {
		return fmt.Errorf("RENDERER_URL must be an http(s) URL, got %q", c.RendererURL)
	}
	if c.NarratorURL != "" && !strings.HasPrefix(c.NarratorURL, "http") {
		return fmt.Errorf("NARRATOR_URL must be an http(s) URL, got %q", c.NarratorURL)
	}

	return nil
}
