// internal/runtime/auth.go
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/joshsymonds/gmail-cli/internal/auth"
	"github.com/joshsymonds/gmail-cli/internal/config"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/rate"
)

type Scope int

const (
	ScopeReadonly Scope = iota
	ScopeSend
	ScopeModify
	ScopeCompose
)

// URL is the OAuth scope string for s.
func (s Scope) URL() string {
	switch s {
	case ScopeReadonly:
		return gmail.GmailReadonlyScope
	case ScopeSend:
		return gmail.GmailSendScope
	case ScopeModify:
		return gmail.GmailModifyScope
	case ScopeCompose:
		return gmail.GmailComposeScope
	default:
		panic("unknown scope")
	}
}

// DefaultScopes is the union requested on first authorization so every
// command works with one consent.
var DefaultScopes = []Scope{ScopeReadonly, ScopeSend, ScopeModify, ScopeCompose}

// ScopeURLs converts scopes to their OAuth strings, keeping order.
func ScopeURLs(scopes ...Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, s.URL())
	}
	return out
}

// NewStore picks the credential backend named by cfg.TokenStore.
func NewStore(cfg config.Config, logger *slog.Logger) (auth.Store, error) {
	switch cfg.TokenStore {
	case config.StoreFile, "":
		return auth.FileStore{Path: cfg.TokenPath, Logger: logger}, nil
	case config.StoreKeyring:
		ring, err := auth.OpenKeyring(cfg.KeyringDir)
		if err != nil {
			return nil, err
		}
		return auth.KeyringStore{Ring: ring}, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}

// NewAuthenticator wires the credential store, secret path and interactive
// flow from cfg.
func NewAuthenticator(cfg config.Config, logger *slog.Logger) (*auth.Authenticator, error) {
	store, err := NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return auth.New(auth.Options{
		Store:      store,
		SecretPath: cfg.CredentialsPath,
		Scopes:     ScopeURLs(DefaultScopes...),
		Flow:       &auth.LoopbackFlow{Logger: logger, OpenBrowser: cfg.OpenBrowser},
		Logger:     logger,
	}), nil
}

// TokenSourcer yields the token source authorizing mailbox requests.
type TokenSourcer interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// NewGmailClient authenticates through ts and returns a rate-limited
// mailbox client. Extra options are appended after the token source.
func NewGmailClient(ctx context.Context, ts TokenSourcer, limiter rate.Limiter, logger *slog.Logger, opts ...option.ClientOption) (gc.Client, error) {
	src, err := ts.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	clientOpts := append([]option.ClientOption{option.WithTokenSource(src)}, opts...)
	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w: %w", gc.ErrRemote, err)
	}
	return NewGoogleAPIClient(svc, limiter, logger), nil
}

func DefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
