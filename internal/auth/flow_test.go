package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handle))
	t.Cleanup(srv.Close)
	return srv
}

func writeToken(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// visitCallback plays the browser: it follows the consent URL straight back
// to the loopback redirect with the given query.
func visitCallback(t *testing.T, extra url.Values) func(string) error {
	return func(consent string) error {
		u, err := url.Parse(consent)
		if err != nil {
			return err
		}
		q := u.Query()
		if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
			t.Errorf("consent URL lacks PKCE challenge: %s", consent)
		}
		if q.Get("access_type") != "offline" {
			t.Errorf("consent URL must request offline access: %s", consent)
		}
		cb := url.Values{"state": {q.Get("state")}}
		for k, v := range extra {
			cb[k] = v
		}
		resp, err := http.Get(q.Get("redirect_uri") + "?" + cb.Encode())
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

func TestLoopbackFlowExchangesCode(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code") != "auth-code" {
			t.Errorf("unexpected code %q", r.Form.Get("code"))
		}
		if r.Form.Get("code_verifier") == "" {
			t.Errorf("missing PKCE verifier")
		}
		writeToken(w, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "scope-a scope-b",
		})
	})
	cfg := &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "cs",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: srv.URL},
		Scopes:       []string{"scope-a", "scope-b"},
	}
	flow := &LoopbackFlow{Logger: slogDiscard(), Open: visitCallback(t, url.Values{"code": {"auth-code"}})}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tok, err := flow.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("flow failed: %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" {
		t.Fatalf("unexpected token %+v", tok)
	}
	c := newCredential(tok, cfg)
	if len(c.Scopes) != 2 || c.TokenURI != srv.URL {
		t.Fatalf("unexpected credential %+v", c)
	}
}

func TestLoopbackFlowConsentDenied(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("token endpoint must not be called")
	})
	cfg := &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{AuthURL: "https://a.example.com", TokenURL: srv.URL}}
	flow := &LoopbackFlow{Open: visitCallback(t, url.Values{"error": {"access_denied"}})}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := flow.Run(ctx, cfg)
	if !errors.Is(err, ErrConsentDenied) {
		t.Fatalf("expected ErrConsentDenied, got %v", err)
	}
}

func TestLoopbackFlowHonorsCancellation(t *testing.T) {
	cfg := &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{AuthURL: "https://a.example.com", TokenURL: "http://127.0.0.1:1"}}
	ctx, cancel := context.WithCancel(context.Background())
	flow := &LoopbackFlow{Open: func(string) error { cancel(); return nil }}

	_, err := flow.Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoopbackFlowSingleFlight(t *testing.T) {
	flowMu.Lock()
	defer flowMu.Unlock()
	_, err := (&LoopbackFlow{}).Run(context.Background(), &oauth2.Config{})
	if !errors.Is(err, ErrFlowBusy) {
		t.Fatalf("expected ErrFlowBusy, got %v", err)
	}
}

func TestCallbackHandlerRejectsWrongState(t *testing.T) {
	results := make(chan callbackResult, 1)
	h := callbackHandler("expected", results)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?state=other&code=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	select {
	case r := <-results:
		t.Fatalf("no result expected, got %+v", r)
	default:
	}
}
