// Package jwt provides a TokenSource that signs short-lived identity tokens.
//
// Each token is an HS256 JWT carrying iss, sub, aud, iat, exp and a random
// jti. Tokens are cached and re-signed once they come within the refresh
// margin of expiry.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rhuss/modelfarm/pkg/debug"
)

// Config holds the identity signer configuration.
type Config struct {
	// SigningKey is the shared HMAC secret. Required.
	SigningKey []byte

	// Subject identifies the caller (sub claim). Required.
	Subject string

	// Issuer is the iss claim. Default: "modelfarm-go".
	Issuer string

	// Audience is the aud claim. Default: "modelfarm".
	Audience string

	// TTL is the token lifetime. Default: 5 minutes.
	TTL time.Duration

	// RefreshMargin re-signs a cached token this long before it expires.
	// Default: TTL/5.
	RefreshMargin time.Duration

	// Now overrides the clock (useful for testing). Default: time.Now.
	Now func() time.Time
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "modelfarm-go"
	}
	if c.Audience == "" {
		c.Audience = "modelfarm"
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.RefreshMargin == 0 {
		c.RefreshMargin = c.TTL / 5
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Source signs and caches identity tokens.
type Source struct {
	config Config

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New validates cfg and creates a Source.
func New(cfg Config) (*Source, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("identity signing key is required")
	}
	if cfg.Subject == "" {
		return nil, errors.New("identity subject is required")
	}
	cfg.applyDefaults()
	if cfg.RefreshMargin >= cfg.TTL {
		return nil, fmt.Errorf("refresh margin %s must be shorter than ttl %s", cfg.RefreshMargin, cfg.TTL)
	}
	return &Source{config: cfg}, nil
}

// Token returns a cached token or signs a new one.
func (s *Source) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Now()
	if s.token != "" && now.Add(s.config.RefreshMargin).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.config.TTL)
	claims := jwtlib.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   s.config.Subject,
		Audience:  jwtlib.ClaimStrings{s.config.Audience},
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing identity token: %w", err)
	}

	debug.Log("auth", "signed identity token", "subject", s.config.Subject, "expires", expires)

	s.token = signed
	s.expires = expires
	return signed, nil
}
