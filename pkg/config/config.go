// Package config provides layered configuration for the modelfarm client.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MODELFARM_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// DefaultBaseURL is the hosted modelfarm endpoint.
const DefaultBaseURL = "https://production-modelfarm.replit.com"

// Auth types.
const (
	AuthNone     = "none"
	AuthAPIKey   = "apikey"
	AuthIdentity = "identity"
)

// Config holds all configuration for a modelfarm client.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// ClientConfig holds transport settings.
type ClientConfig struct {
	BaseURL   string            `yaml:"base_url"`   // default: DefaultBaseURL
	Timeout   time.Duration     `yaml:"timeout"`    // default: 60s, non-streaming requests only
	UserAgent string            `yaml:"user_agent"` // default: "modelfarm-go"
	Headers   map[string]string `yaml:"headers"`    // sent on every request
}

// AuthConfig selects how requests are authenticated.
type AuthConfig struct {
	Type       string         `yaml:"type"`         // "none", "apikey" or "identity", default: "none"
	APIKey     string         `yaml:"api_key"`      // for type=apikey
	APIKeyFile string         `yaml:"api_key_file"` // _file variant for api_key
	Identity   IdentityConfig `yaml:"identity"`     // for type=identity
}

// IdentityConfig holds the signed identity token settings.
type IdentityConfig struct {
	Subject        string        `yaml:"subject"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"` // default: "modelfarm"
	SigningKey     string        `yaml:"signing_key"`
	SigningKeyFile string        `yaml:"signing_key_file"` // _file variant for signing_key
	TTL            time.Duration `yaml:"ttl"`              // default: 5m
}

// LogConfig holds logging settings passed to debug.Init.
type LogConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Client: ClientConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   60 * time.Second,
			UserAgent: "modelfarm-go",
		},
		Auth: AuthConfig{
			Type: AuthNone,
			Identity: IdentityConfig{
				Audience: "modelfarm",
				TTL:      5 * time.Minute,
			},
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}
