package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Upstream.URL == "" {
		errs = append(errs, fmt.Errorf("upstream.url is required"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Auth.Type {
	case "none", "jwt":
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\" or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	if c.Breaker.Enabled && c.Breaker.FailureThreshold <= 0 {
		errs = append(errs, fmt.Errorf("breaker.failure_threshold must be > 0 when breaker.enabled, got %d", c.Breaker.FailureThreshold))
	}

	return errors.Join(errs...)
}
