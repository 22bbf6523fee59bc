package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Backend selectors
	switch c.RateLimit.Backend {
	case "postgres", "redis":
	default:
		errs = append(errs, fmt.Sprintf("RATELIMIT_BACKEND must be postgres or redis, got %q", c.RateLimit.Backend))
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, "STORAGE_S3_BUCKET is required for the s3 backend")
		}
		if c.Storage.S3Region == "" {
			errs = append(errs, "STORAGE_S3_REGION is required for the s3 backend")
		}
		if c.Storage.S3AccessKey == "" || c.Storage.S3SecretKey == "" {
			errs = append(errs, "STORAGE_S3_ACCESS_KEY and STORAGE_S3_SECRET_KEY are required for the s3 backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be local or s3, got %q", c.Storage.Backend))
	}

	if c.Upload.MaxFileSizeMB < 1 {
		errs = append(errs, fmt.Sprintf("UPLOAD_MAX_FILE_MB must be positive, got %d", c.Upload.MaxFileSizeMB))
	}

	if c.Extraction.Enabled && c.Extraction.GeminiAPIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required when EXTRACTION_ENABLED is set")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
