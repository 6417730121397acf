package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

const revokeErrorSnippet = 512

// OAuthRefresher exchanges a refresh token at the credential's token URI.
type OAuthRefresher struct {
	HTTPClient *http.Client
}

func (r OAuthRefresher) Refresh(ctx context.Context, c *Credential) (*oauth2.Token, error) {
	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}
	// an empty access token forces the source to hit the token endpoint
	src := c.Config().TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return tok, nil
}

// HTTPRevoker posts a token to an RFC 7009 style revocation endpoint.
type HTTPRevoker struct {
	URL    string
	Client *http.Client
}

func (r HTTPRevoker) Revoke(ctx context.Context, token string) error {
	endpoint := r.URL
	if endpoint == "" {
		endpoint = DefaultRevokeURL
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, revokeErrorSnippet))
		return fmt.Errorf("revoke token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
