package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	APIBaseURL    string   `mapstructure:"API_BASE_URL"`
	UploadBaseURL string   `mapstructure:"UPLOAD_BASE_URL"`
	SessionSecret string   `mapstructure:"SESSION_SECRET"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit     string   `mapstructure:"BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:5001")
	v.SetDefault("UPLOAD_BASE_URL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	// The file cap is 16 MiB; the extra megabyte covers multipart framing
	// and the text fields so a maximum-size file still reaches validation.
	v.SetDefault("BODY_LIMIT", "17M")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("UPLOAD_BASE_URL")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("BODY_LIMIT")

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

	// Uploads are served by the same backend unless configured otherwise.
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = cfg.APIBaseURL
	}

	if cfg.IsDev() && cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-session-secret"
		log.Println("WARNING: SESSION_SECRET not set; using an insecure development secret.")
		log.Println("WARNING: Set SESSION_SECRET before running in production.")
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

// Validate checks that the configuration is safe to run. In production the
// backend URL and session secret must be set explicitly; the development
// defaults point at a local analysis backend that does not exist there.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.IsProduction() {
		if c.APIBaseURL == "http://localhost:5001" {
			return fmt.Errorf("API_BASE_URL must be set explicitly in production (got the development default %q)", c.APIBaseURL)
		}
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
	}
	return nil
}
