// Package config provides unified configuration for the proxy.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (RESPPROXY_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the proxy.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Breaker       BreakerConfig       `yaml:"breaker"`
	ModelCache    ModelCacheConfig    `yaml:"model_cache"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Dump          DumpConfig          `yaml:"dump"`
	LogLevel      string              `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// UpstreamConfig holds the Chat Completions backend's connection settings.
type UpstreamConfig struct {
	URL           string            `yaml:"url"` // required
	APIKey        string            `yaml:"api_key"`
	APIKeyFile    string            `yaml:"api_key_file"` // _file variant for api_key
	DefaultModel  string            `yaml:"default_model"`
	ModelAliases  map[string]string `yaml:"model_aliases"` // requested name -> upstream name
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`           // default: true
	FailureThreshold int           `yaml:"failure_threshold"` // default: 5
	Cooldown         time.Duration `yaml:"cooldown"`          // default: 30s
}

// ModelCacheConfig holds the upstream model listing cache's refresh settings.
type ModelCacheConfig struct {
	TTL time.Duration `yaml:"ttl"` // default: 5m
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type string    `yaml:"type"` // "none" or "jwt", default: "none"
	JWT  JWTConfig `yaml:"jwt"`
}

// JWTConfig holds JWT identity-tagging settings, used only when
// Auth.Type == "jwt".
type JWTConfig struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	JWKSURL  string `yaml:"jwks_url"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// DumpConfig holds optional request/response capture settings.
type DumpConfig struct {
	Enabled   bool   `yaml:"enabled"`   // default: false
	Directory string `yaml:"directory"` // default: "./dumps"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		ModelCache: ModelCacheConfig{
			TTL: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Dump: DumpConfig{
			Directory: "./dumps",
		},
		LogLevel: "INFO",
	}
}
