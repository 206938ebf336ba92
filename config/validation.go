package config

import (
	"errors"
	"fmt"
	"strconv"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines required configuration for each environment
type ConfigRequirements struct {
	RequireDBPassword bool
	RequireJWTSecret  bool
}

var requirements = map[Environment]ConfigRequirements{
	Development: {},
	Test:        {},
	CI: {
		RequireJWTSecret: true,
	},
	Production: {
		RequireDBPassword: true,
		RequireJWTSecret:  true,
	},
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	reqs := requirements[cfg.Environment]

	var errs []error

	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		errs = append(errs, ValidationError{Field: "server_port", Message: "must be a number"})
	}

	switch cfg.DBDriver {
	case "postgres":
		if reqs.RequireDBPassword && cfg.DBPassword == "" {
			errs = append(errs, ValidationError{Field: "db_password", Message: "is required"})
		}
	case "sqlite":
		if cfg.DBPath == "" {
			errs = append(errs, ValidationError{Field: "db_path", Message: "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{Field: "db_driver", Message: fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, ValidationError{Field: "jwt_secret", Message: "is required"})
	} else if reqs.RequireJWTSecret && cfg.JWTSecret == DefaultJWTSecret {
		errs = append(errs, ValidationError{Field: "jwt_secret", Message: "must be changed from the default"})
	}

	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{Field: "token_ttl", Message: "must be positive"})
	}
	if cfg.PageSize <= 0 {
		errs = append(errs, ValidationError{Field: "page_size", Message: "must be positive"})
	}
	if cfg.RecipeCreateLimit <= 0 || cfg.RecipeCreateWindow <= 0 {
		errs = append(errs, ValidationError{Field: "recipe_create_limit", Message: "limit and window must be positive"})
	}

	return errors.Join(errs...)
}
