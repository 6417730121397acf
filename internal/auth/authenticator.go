package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

// State is the point the credential acquisition reached.
type State int

const (
	NoCredential State = iota
	StaleCredential
	RefreshableCredential
	ValidCredential
	AuthenticationFailed
)

func (s State) String() string {
	switch s {
	case NoCredential:
		return "no-credential"
	case StaleCredential:
		return "stale-credential"
	case RefreshableCredential:
		return "refreshable-credential"
	case ValidCredential:
		return "valid-credential"
	case AuthenticationFailed:
		return "authentication-failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Refresher renews an expired credential using its refresh token.
type Refresher interface {
	Refresh(ctx context.Context, c *Credential) (*oauth2.Token, error)
}

// Flow obtains a first credential interactively.
type Flow interface {
	Run(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// Revoker invalidates a token server-side.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

// Options wires an Authenticator. Zero Flow, Refresher and Revoker fall back
// to the network implementations in this package.
type Options struct {
	Store      Store
	SecretPath string
	Scopes     []string
	Flow       Flow
	Refresher  Refresher
	Revoker    Revoker
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Authenticator owns the credential for one invocation.
type Authenticator struct {
	store      Store
	secretPath string
	scopes     []string
	flow       Flow
	refresher  Refresher
	revoker    Revoker
	logger     *slog.Logger
	clock      func() time.Time

	mu      sync.Mutex
	current *Credential
	state   State
}

// New constructs an Authenticator.
func New(opts Options) *Authenticator {
	a := &Authenticator{
		store:      opts.Store,
		secretPath: opts.SecretPath,
		scopes:     append([]string(nil), opts.Scopes...),
		flow:       opts.Flow,
		refresher:  opts.Refresher,
		revoker:    opts.Revoker,
		logger:     opts.Logger,
		clock:      opts.Clock,
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	if a.flow == nil {
		a.flow = &LoopbackFlow{Logger: a.logger, OpenBrowser: true}
	}
	if a.refresher == nil {
		a.refresher = OAuthRefresher{}
	}
	if a.revoker == nil {
		a.revoker = HTTPRevoker{}
	}
	return a
}

// State reports where the last acquisition ended.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Authenticate produces a valid credential: a stored valid one is returned
// untouched; an expired one is refreshed when possible; otherwise the
// interactive flow runs. Failures wrap gmail.ErrAuthentication.
func (a *Authenticator) Authenticate(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticate(ctx)
}

func (a *Authenticator) authenticate(ctx context.Context) (*Credential, error) {
	c, ok := a.store.Load()
	switch {
	case !ok:
		a.state = NoCredential
		a.logger.DebugContext(ctx, "no stored credential")
	case c.Valid(a.clock()):
		a.state = ValidCredential
		a.current = c
		a.logger.DebugContext(ctx, "using stored credential", slog.Time("expiry", c.Expiry))
		return c, nil
	case c.CanRefresh():
		a.state = RefreshableCredential
		refreshed, err := a.refresh(ctx, c)
		if err == nil {
			return refreshed, nil
		}
		if errors.Is(err, errPersist) {
			a.state = AuthenticationFailed
			return nil, err
		}
		a.logger.WarnContext(ctx, "token refresh failed, starting interactive authorization", slog.Any("error", err))
	default:
		a.state = StaleCredential
		a.logger.DebugContext(ctx, "stored credential expired and cannot be refreshed")
	}
	return a.interactive(ctx)
}

var errPersist = errors.New("persist credential")

func (a *Authenticator) refresh(ctx context.Context, c *Credential) (*Credential, error) {
	tok, err := a.refresher.Refresh(ctx, c)
	if err != nil {
		return nil, err
	}
	c.apply(tok)
	if err := a.store.Save(c); err != nil {
		return nil, fmt.Errorf("%w: %w", errPersist, err)
	}
	a.state = ValidCredential
	a.current = c
	a.logger.InfoContext(ctx, "refreshed credential", slog.Time("expiry", c.Expiry))
	return c, nil
}

func (a *Authenticator) interactive(ctx context.Context) (*Credential, error) {
	cfg, err := LoadSecret(a.secretPath, a.scopes)
	if err != nil {
		a.state = AuthenticationFailed
		return nil, err
	}
	a.logger.InfoContext(ctx, "starting interactive authorization", slog.Any("scopes", a.scopes))
	tok, err := a.flow.Run(ctx, cfg)
	if err != nil {
		a.state = AuthenticationFailed
		return nil, fmt.Errorf("interactive authorization: %w: %w", gmail.ErrAuthentication, err)
	}
	c := newCredential(tok, cfg)
	if err := a.store.Save(c); err != nil {
		a.state = AuthenticationFailed
		return nil, fmt.Errorf("%w: %w", errPersist, err)
	}
	a.state = ValidCredential
	a.current = c
	a.logger.InfoContext(ctx, "authorization complete", slog.Time("expiry", c.Expiry))
	return c, nil
}

// Credential returns the credential produced earlier in this invocation,
// authenticating first when there is none.
func (a *Authenticator) Credential(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		return a.current, nil
	}
	c, err := a.authenticate(ctx)
	if err != nil {
		if errors.Is(err, gmail.ErrAuthentication) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", gmail.ErrAuthentication, err)
	}
	return c, nil
}

// TokenSource returns a source for HTTP transports. Tokens refreshed during
// the invocation are written back to the store.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c, err := a.Credential(ctx)
	if err != nil {
		return nil, err
	}
	return &persistingSource{
		src:    c.Config().TokenSource(ctx, c.Token()),
		last:   c.AccessToken,
		a:      a,
		cred:   c,
		logger: a.logger,
	}, nil
}

type persistingSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	last   string
	a      *Authenticator
	cred   *Credential
	logger *slog.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gmail.ErrAuthentication, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken
	p.a.mu.Lock()
	p.cred.apply(tok)
	err = p.a.store.Save(p.cred)
	p.a.mu.Unlock()
	if err != nil {
		p.logger.Warn("could not persist refreshed credential", slog.Any("error", err))
	}
	return tok, nil
}

// RevokeResult describes what Revoke did.
type RevokeResult struct {
	// Removed is false only when there was no stored credential.
	Removed bool
	// RemoteErr holds the server-side revocation failure, if any.
	RemoteErr error
}

// Revoke invalidates the stored credential server-side (best effort) and
// then deletes it locally regardless of the remote outcome.
func (a *Authenticator) Revoke(ctx context.Context) (RevokeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.store.Load()
	if !ok {
		return RevokeResult{}, nil
	}
	var res RevokeResult
	token := c.RefreshToken
	if token == "" {
		token = c.AccessToken
	}
	if token != "" {
		if err := a.revoker.Revoke(ctx, token); err != nil {
			res.RemoteErr = err
			a.logger.WarnContext(ctx, "server-side revocation failed", slog.Any("error", err))
		}
	}
	if err := a.store.Remove(); err != nil {
		return res, err
	}
	a.current = nil
	a.state = NoCredential
	res.Removed = true
	return res, nil
}

// Status is a network-free summary of the stored credential.
type Status struct {
	Stored      bool
	Valid       bool
	Refreshable bool
	Expiry      time.Time
	Scopes      []string
}

// Status inspects the store without refreshing or prompting.
func (a *Authenticator) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.store.Load()
	if !ok {
		return Status{}
	}
	return Status{
		Stored:      true,
		Valid:       c.Valid(a.clock()),
		Refreshable: c.CanRefresh(),
		Expiry:      c.Expiry,
		Scopes:      append([]string(nil), c.Scopes...),
	}
}
