package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Client.BaseURL == "" {
		errs = append(errs, fmt.Errorf("client.base_url is required"))
	} else if u, err := url.Parse(c.Client.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("client.base_url must be an absolute http(s) URL, got %q", c.Client.BaseURL))
	}

	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be >= 0, got %s", c.Client.Timeout))
	}

	switch c.Auth.Type {
	case AuthNone:
	case AuthAPIKey:
		if c.Auth.APIKey == "" && c.Auth.APIKeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.api_key or auth.api_key_file is required when auth.type is %q", AuthAPIKey))
		}
	case AuthIdentity:
		id := c.Auth.Identity
		if id.Subject == "" {
			errs = append(errs, fmt.Errorf("auth.identity.subject is required when auth.type is %q", AuthIdentity))
		}
		if id.SigningKey == "" && id.SigningKeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.identity.signing_key or auth.identity.signing_key_file is required when auth.type is %q", AuthIdentity))
		}
		if id.TTL <= 0 {
			errs = append(errs, fmt.Errorf("auth.identity.ttl must be > 0, got %s", id.TTL))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be %q, %q, or %q, got %q", AuthNone, AuthAPIKey, AuthIdentity, c.Auth.Type))
	}

	return errors.Join(errs...)
}
