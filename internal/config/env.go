package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvMaxLinks    = "SCAN_MAX_LINKS"
	EnvConcurrency = "SCAN_CONCURRENCY"
	EnvRedisURL    = "REDIS_URL"
)

// ApplyEnv overrides the defaults with environment variables read through
// getenv (usually os.Getenv). Unset or empty variables are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvMaxLinks)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvMaxLinks, v)
		}
		c.MaxLinks = n
	}

	if v := strings.TrimSpace(getenv(EnvConcurrency)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvConcurrency, v)
		}
		c.Concurrency = n
	}

	if v := strings.TrimSpace(getenv(EnvRedisURL)); v != "" {
		c.RedisURL = v
	}

	return nil
}
