// Package auth manages the OAuth credential that authorizes mailbox calls:
// loading and persisting it, refreshing it, running the first-time consent
// flow and revoking it.
package auth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Credential is the persisted authorization record. The JSON layout matches
// the "authorized user" files written by Google's client libraries, so token
// files from other tools load unchanged.
type Credential struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// Valid reports whether the access token can be used as is at now.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.Expiry.IsZero() || c.Expiry.After(now)
}

// CanRefresh reports whether the credential can be renewed without consent.
func (c *Credential) CanRefresh() bool {
	return c != nil && c.RefreshToken != ""
}

// Token converts the credential to an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// Config rebuilds the client configuration needed to refresh the token.
func (c *Credential) Config() *oauth2.Config {
	endpoint := google.Endpoint
	if c.TokenURI != "" {
		endpoint.TokenURL = c.TokenURI
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       c.Scopes,
	}
}

// apply copies a freshly issued token into c. The refresh token is kept
// unless the server rotated it.
func (c *Credential) apply(tok *oauth2.Token) {
	c.AccessToken = tok.AccessToken
	c.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	if granted, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(granted) != "" {
		c.Scopes = strings.Fields(granted)
	}
}

func newCredential(tok *oauth2.Token, cfg *oauth2.Config) *Credential {
	c := &Credential{
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       append([]string(nil), cfg.Scopes...),
	}
	c.apply(tok)
	return c
}
