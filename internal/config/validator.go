package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for values that cannot work at all.
// Soft values (max_rows) fall back to defaults instead of erroring.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	switch strings.ToLower(cfg.Database.Backend) {
	case BackendSQL, BackendREST, "":
	default:
		errs = append(errs, ValidationError{
			Field:   "database.backend",
			Value:   cfg.Database.Backend,
			Message: "must be sql or rest",
		})
	}

	if cfg.Database.Backend == BackendREST && cfg.Database.RestURL == "" {
		errs = append(errs, ValidationError{
			Field:   "database.rest_url",
			Value:   "",
			Message: "required for the rest backend",
		})
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Value:   cfg.Server.Port,
			Message: "must be between 0 and 65535",
		})
	}

	if cfg.AI.Timeout != "" {
		if _, err := time.ParseDuration(cfg.AI.Timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "ai.timeout",
				Value:   cfg.AI.Timeout,
				Message: "must be a duration like 60s",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AITimeout returns the parsed capability timeout, defaulting to one
// minute.
func (c *Config) AITimeout() time.Duration {
	if d, err := time.ParseDuration(c.AI.Timeout); err == nil && d > 0 {
		return d
	}
	return time.Minute
}
