// Package modelfarm assembles a ready-to-use client from configuration.
//
//	cfg, err := config.Load("")
//	client, err := modelfarm.New(cfg)
//	defer client.Close()
//
//	res, err := client.Legacy.Chat(ctx, chat.ChatOptions{...})
//	resp, err := client.Chat.Completions.Create(ctx, completions.ChatOptionParams{...})
package modelfarm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rhuss/modelfarm/pkg/auth"
	"github.com/rhuss/modelfarm/pkg/auth/jwt"
	"github.com/rhuss/modelfarm/pkg/chat"
	"github.com/rhuss/modelfarm/pkg/completions"
	"github.com/rhuss/modelfarm/pkg/config"
	"github.com/rhuss/modelfarm/pkg/debug"
	"github.com/rhuss/modelfarm/pkg/embed"
	"github.com/rhuss/modelfarm/pkg/transport"
)

// Client bundles the facades over one shared transport.
type Client struct {
	// Chat is the OpenAI-compatible facade.
	Chat *completions.Chat

	// Legacy is the chat facade over /v1beta/chat and /v1beta/chat_streaming.
	Legacy *chat.Client

	// Embeddings is the embedding facade.
	Embeddings *embed.Client

	transport *transport.Client
}

// New builds a Client from cfg. A nil cfg uses config.Defaults.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		d := config.Defaults()
		cfg = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	debug.Init(cfg.Log.Debug, cfg.Log.Level)

	tokens, err := tokenSource(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("creating token source: %w", err)
	}

	tc := transport.New(transport.Config{
		BaseURL:   cfg.Client.BaseURL,
		Timeout:   cfg.Client.Timeout,
		UserAgent: cfg.Client.UserAgent,
		Headers:   cfg.Client.Headers,
		Tokens:    tokens,
	})

	slog.Debug("modelfarm client created",
		"base_url", cfg.Client.BaseURL,
		"auth", cfg.Auth.Type,
	)

	return NewFromTransport(tc), nil
}

// NewFromTransport creates a Client over an existing transport client.
func NewFromTransport(tc *transport.Client) *Client {
	return &Client{
		Chat:       completions.NewChat(tc),
		Legacy:     chat.New(tc),
		Embeddings: embed.New(tc),
		transport:  tc,
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.transport.Close()
}

func tokenSource(cfg config.AuthConfig) (auth.TokenSource, error) {
	switch cfg.Type {
	case config.AuthNone:
		return auth.None(), nil
	case config.AuthAPIKey:
		return auth.Static(cfg.APIKey), nil
	case config.AuthIdentity:
		src, err := jwt.New(jwt.Config{
			SigningKey: []byte(cfg.Identity.SigningKey),
			Subject:    cfg.Identity.Subject,
			Issuer:     cfg.Identity.Issuer,
			Audience:   cfg.Identity.Audience,
			TTL:        cfg.Identity.TTL,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, errors.New("unknown auth type " + cfg.Type)
	}
}
