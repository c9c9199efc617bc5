// Package config loads service configuration from environment variables.
// There is no config file and no flag hierarchy: every setting comes from
// an env var, with a documented default when it is unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvConfig reads typed values out of os.Getenv, optionally under a prefix.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a loader. An empty prefix reads bare variable names.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// GetString returns the variable's value, or defaultValue if unset/empty.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		return v
	}
	return defaultValue
}

// MustGetString returns the variable's value or panics if unset.
func (ec *EnvConfig) MustGetString(key string) string {
	fullKey := ec.buildKey(key)
	v := os.Getenv(fullKey)
	if v == "" {
		panic(fmt.Sprintf("required environment variable %s not set", fullKey))
	}
	return v
}

// GetInt parses the variable as an int, falling back to defaultValue on
// absence or parse failure.
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetDuration parses the variable via time.ParseDuration.
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
