package tokens

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenSet is a tenant's bearer credential. It is replaced as a whole on
// refresh and never mutated in place.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt"` // epoch ms; 0 means the provider gave no expiry
	TokenType    string `json:"tokenType"`
	Scope        string `json:"scope,omitempty"`
}

// Expiry returns ExpiresAt as time. Zero when the token does not expire.
func (t TokenSet) Expiry() time.Time {
	if t.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.ExpiresAt)
}

// ValidAt reports whether the access token can still be used at now, keeping
// skew as a safety margin before expiry.
func (t TokenSet) ValidAt(now time.Time, skew time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() < t.ExpiresAt-skew.Milliseconds()
}

// Authorization renders the Authorization header value.
func (t TokenSet) Authorization() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

func fromOAuth2(tok *oauth2.Token) TokenSet {
	ts := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if !tok.Expiry.IsZero() {
		ts.ExpiresAt = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	return ts
}

// Credentials describe a tenant's OAuth2 client registration.
type Credentials struct {
	ClientID     string   `yaml:"clientId" json:"clientId"`
	ClientSecret string   `yaml:"clientSecret" json:"-"`
	TokenURL     string   `yaml:"tokenUrl" json:"tokenUrl"`
	AuthURL      string   `yaml:"authUrl" json:"authUrl,omitempty"`
	RedirectURL  string   `yaml:"redirectUrl" json:"redirectUrl,omitempty"`
	Scopes       []string `yaml:"scopes" json:"scopes,omitempty"`
	AuthStyle    string   `yaml:"authStyle" json:"authStyle,omitempty"` // "header", "params" or empty for auto-detect
}

// Validate reports ErrInvalidCredentials when the grant cannot be attempted.
func (c Credentials) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidCredentials)
	}
	if c.TokenURL == "" {
		return fmt.Errorf("%w: token url is required", ErrInvalidCredentials)
	}
	switch c.AuthStyle {
	case "", "header", "params":
	default:
		return fmt.Errorf("%w: unknown auth style %q", ErrInvalidCredentials, c.AuthStyle)
	}
	return nil
}

func (c Credentials) oauth2Config() *oauth2.Config {
	style := oauth2.AuthStyleAutoDetect
	switch c.AuthStyle {
	case "header":
		style = oauth2.AuthStyleInHeader
	case "params":
		style = oauth2.AuthStyleInParams
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: style,
		},
	}
}
