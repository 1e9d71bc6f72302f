package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/modelfarm/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, MODELFARM_CONFIG env, ./modelfarm.yaml,
//     $HOME/.config/modelfarm/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile returns the first config file found, or "".
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("MODELFARM_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{"modelfarm.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "modelfarm", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile parses path into cfg. Fields absent from the file keep their
// current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps MODELFARM_* variables onto cfg. Setting
// MODELFARM_API_KEY while auth.type is "none" switches auth to "apikey".
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MODELFARM_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("MODELFARM_USER_AGENT"); v != "" {
		cfg.Client.UserAgent = v
	}
	if v := os.Getenv("MODELFARM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MODELFARM_TIMEOUT: %w", err)
		}
		cfg.Client.Timeout = d
	}
	if v := os.Getenv("MODELFARM_HEADERS"); v != "" {
		headers, err := parseHeadersJSON(v)
		if err != nil {
			return err
		}
		if cfg.Client.Headers == nil {
			cfg.Client.Headers = make(map[string]string, len(headers))
		}
		for k, hv := range headers {
			cfg.Client.Headers[k] = hv
		}
	}

	if v := os.Getenv("MODELFARM_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("MODELFARM_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
		if cfg.Auth.Type == AuthNone {
			cfg.Auth.Type = AuthAPIKey
		}
	}
	if v := os.Getenv("MODELFARM_IDENTITY_SUBJECT"); v != "" {
		cfg.Auth.Identity.Subject = v
	}
	if v := os.Getenv("MODELFARM_IDENTITY_KEY"); v != "" {
		cfg.Auth.Identity.SigningKey = v
	}

	return nil
}

// parseHeadersJSON parses a JSON object of header names to values.
func parseHeadersJSON(jsonStr string) (map[string]string, error) {
	var headers map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &headers); err != nil {
		return nil, fmt.Errorf("parsing MODELFARM_HEADERS JSON: %w", err)
	}
	return headers, nil
}

// resolveFileReferences fills empty secret fields from their _file variant.
// An explicit value always wins over the file.
func resolveFileReferences(cfg *Config) error {
	if cfg.Auth.APIKeyFile != "" && cfg.Auth.APIKey == "" {
		val, err := readSecretFile(cfg.Auth.APIKeyFile)
		if err != nil {
			return fmt.Errorf("auth.api_key_file: %w", err)
		}
		cfg.Auth.APIKey = val
	}

	if cfg.Auth.Identity.SigningKeyFile != "" && cfg.Auth.Identity.SigningKey == "" {
		val, err := readSecretFile(cfg.Auth.Identity.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("auth.identity.signing_key_file: %w", err)
		}
		cfg.Auth.Identity.SigningKey = val
	}

	return nil
}

// readSecretFile reads a file and trims surrounding whitespace.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
