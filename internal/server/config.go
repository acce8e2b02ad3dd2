// config.go - Startup configuration validation.
//
// Validates environment variables at startup to fail fast with clear
// error messages rather than runtime failures.
package server

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator validates application configuration.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the collected validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// Summary returns all errors joined into one message.
func (v *ConfigValidator) Summary() string {
	msgs := make([]string, 0, len(v.errors))
	for _, e := range v.errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateEnv checks every environment variable the backend consumes.
// MinIO settings are only validated when an endpoint is configured,
// since the general file repository is optional in small deployments.
func (v *ConfigValidator) ValidateEnv() {
	if os.Getenv("DATABASE_URL") == "" {
		v.AddError("DATABASE_URL", "must be set")
	} else if _, err := url.Parse(os.Getenv("DATABASE_URL")); err != nil {
		v.AddError("DATABASE_URL", "must be a valid URL: "+err.Error())
	}

	secret := os.Getenv("PREP_SESSION_SECRET")
	if secret == "" {
		v.AddError("PREP_SESSION_SECRET", "must be set")
	} else if len(secret) < 16 {
		v.AddError("PREP_SESSION_SECRET", "must be at least 16 characters")
	}

	if raw := os.Getenv("PREP_MAX_UPLOAD_BYTES"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err != nil || n < 0 {
			v.AddError("PREP_MAX_UPLOAD_BYTES", "must be a non-negative integer")
		}
	}

	if raw := os.Getenv("PREP_RATE_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
			v.AddError("PREP_RATE_LIMIT", "must be a positive integer")
		}
	}

	if endpoint := os.Getenv("PREP_S3_ENDPOINT"); endpoint != "" {
		if _, _, err := normaliseEndpoint(endpoint); err != nil {
			v.AddError("PREP_S3_ENDPOINT", err.Error())
		}
		if os.Getenv("PREP_S3_ACCESS_KEY") == "" {
			v.AddError("PREP_S3_ACCESS_KEY", "must be set when PREP_S3_ENDPOINT is set")
		}
		if os.Getenv("PREP_S3_SECRET_KEY") == "" {
			v.AddError("PREP_S3_SECRET_KEY", "must be set when PREP_S3_ENDPOINT is set")
		}
		if os.Getenv("PREP_BUCKET") == "" {
			v.AddError("PREP_BUCKET", "must be set when PREP_S3_ENDPOINT is set")
		}
	}

	if raw := os.Getenv("PREP_BACKUP_INTERVAL"); raw != "" {
		if _, err := parseDurationEnv(raw); err != nil {
			v.AddError("PREP_BACKUP_INTERVAL", "must be a Go duration, e.g. 24h")
		}
	}
}
