package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const (
	defaultListenAddr = "127.0.0.1:0"
	shutdownTimeout   = 2 * time.Second
)

// ErrFlowBusy is returned when a consent flow is already running in this process.
var ErrFlowBusy = errors.New("another authorization flow is in progress")

// ErrConsentDenied is returned when the user declines or the provider reports an error.
var ErrConsentDenied = errors.New("authorization was not granted")

// flowMu allows one loopback listener per process.
var flowMu sync.Mutex

// LoopbackFlow runs the installed-app consent flow: it binds an ephemeral
// local port, sends the user to the consent page and exchanges the returned
// code (PKCE protected) for a token.
type LoopbackFlow struct {
	Logger      *slog.Logger
	OpenBrowser bool
	// Open launches the consent URL; defaults to the system browser.
	Open       func(url string) error
	ListenAddr string
	HTTPClient *http.Client
}

type callbackResult struct {
	code string
	err  error
}

func (f *LoopbackFlow) Run(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if !flowMu.TryLock() {
		return nil, ErrFlowBusy
	}
	defer flowMu.Unlock()

	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	addr := f.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind callback listener: %w", err)
	}

	conf := *cfg
	conf.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	logger.InfoContext(ctx, "open this URL to authorize access", slog.String("url", authURL))
	if f.OpenBrowser || f.Open != nil {
		open := f.Open
		if open == nil {
			open = browser.OpenURL
		}
		if openErr := open(authURL); openErr != nil {
			logger.WarnContext(ctx, "could not open browser", slog.Any("error", openErr))
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for authorization: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if reason := q.Get("error"); reason != "" {
			deliver(callbackResult{err: fmt.Errorf("%w: %s", ErrConsentDenied, reason)})
			_, _ = io.WriteString(w, "Authorization was not granted. You can close this window.\n")
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		deliver(callbackResult{code: code})
		_, _ = io.WriteString(w, "Authorization complete. You can close this window.\n")
	})
}
