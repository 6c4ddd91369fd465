package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// An S3 object store without URL recognition would make the cleanup
	// pipeline skip every URL it ever sees.
	if cfg.Objects.Type == "s3" {
		if cfg.Media.CDNHost == "" && cfg.Media.EndpointHost == "" {
			return fmt.Errorf("media: cdn_host or endpoint_host is required when objects.type is s3")
		}
		if cfg.Media.EndpointHost != "" && cfg.Media.Bucket == "" {
			return fmt.Errorf("media: bucket is required when endpoint_host is set")
		}

		// The recognition hosts must agree with the store actually serving
		// the public URLs, otherwise every uploaded URL is skipped as
		// foreign and never garbage collected.
		if raw, ok := cfg.Objects.S3["cdn_base_url"].(string); ok && raw != "" {
			host := urlHostname(raw)
			if host == "" {
				return fmt.Errorf("objects.s3.cdn_base_url: cannot parse %q", raw)
			}
			if !strings.EqualFold(cfg.Media.CDNHost, host) {
				return fmt.Errorf("media: cdn_host %q does not match objects.s3.cdn_base_url host %q",
					cfg.Media.CDNHost, host)
			}
		} else if raw, ok := cfg.Objects.S3["endpoint"].(string); ok && raw != "" {
			host := urlHostname(raw)
			if host == "" {
				return fmt.Errorf("objects.s3.endpoint: cannot parse %q", raw)
			}
			if !strings.EqualFold(cfg.Media.EndpointHost, host) {
				return fmt.Errorf("media: endpoint_host %q does not match objects.s3.endpoint host %q",
					cfg.Media.EndpointHost, host)
			}
		}
	}

	return nil
}

// urlHostname extracts the hostname (no port) from a URL, tolerating
// scheme-less values like "cdn.example.com".
func urlHostname(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	if u, err := url.Parse("https://" + raw); err == nil {
		return u.Hostname()
	}
	return ""
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
