package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "PARSING"
	ErrValidation ConfigErrorType = "VALIDATION"
)

// ConfigError wraps a failure to load or validate the configuration.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads .env (if present), populates Config from the environment and
// validates it. Existing environment variables win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword == "" {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "ADMIN_PASSWORD is required when ADMIN_EMAIL is set",
		}
	}

	return &cfg, nil
}
