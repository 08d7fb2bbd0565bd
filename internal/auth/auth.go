// Package auth resolves the bearer credential sent with every API request.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/spiffcs/vitals/internal/secret"
)

// ErrNotConfigured is returned when no credential is available from any
// source. It is a normal state, not a failure.
var ErrNotConfigured = errors.New("no access token configured")

// Source yields the current credential. It is consulted on every request,
// so updates to the backing store take effect on the next fetch.
type Source = oauth2.TokenSource

// Static returns a source for a fixed credential value. An empty value
// yields ErrNotConfigured.
func Static(value string) Source {
	value = strings.TrimSpace(value)
	if value == "" {
		return notConfigured{}
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: value, TokenType: "Bearer"})
}

type notConfigured struct{}

func (notConfigured) Token() (*oauth2.Token, error) {
	return nil, ErrNotConfigured
}

// StoreSource reads the credential from a secret store on each call.
type StoreSource struct {
	Store secret.Store
}

// Token implements oauth2.TokenSource.
func (s StoreSource) Token() (*oauth2.Token, error) {
	if s.Store == nil {
		return nil, ErrNotConfigured
	}
	value, err := s.Store.Retrieve()
	if err != nil {
		if errors.Is(err, secret.ErrNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	return &oauth2.Token{AccessToken: value, TokenType: "Bearer"}, nil
}

// Selector prefers the stored credential and falls back to a static value.
type Selector struct {
	Store  Source
	Static Source
}

// NewSelector builds the standard source chain: secret store first, then
// the value from the flag or environment.
func NewSelector(store secret.Store, static string) *Selector {
	s := &Selector{Static: Static(static)}
	if store != nil {
		s.Store = StoreSource{Store: store}
	}
	return s
}

// Token implements oauth2.TokenSource.
func (s *Selector) Token() (*oauth2.Token, error) {
	if s.Store != nil {
		tok, err := s.Store.Token()
		switch {
		case err == nil && tok.AccessToken != "":
			return tok, nil
		case err != nil && !errors.Is(err, ErrNotConfigured):
			// A broken store is reported rather than silently masked
			// unless a static fallback exists.
			if s.Static == nil {
				return nil, err
			}
			if tok, serr := s.Static.Token(); serr == nil {
				return tok, nil
			}
			return nil, err
		}
	}
	if s.Static != nil {
		return s.Static.Token()
	}
	return nil, ErrNotConfigured
}

// Describe reports which source currently supplies the credential.
func (s *Selector) Describe() string {
	if s.Store != nil {
		if tok, err := s.Store.Token(); err == nil && tok.AccessToken != "" {
			return "credential store"
		}
	}
	if s.Static != nil {
		if _, err := s.Static.Token(); err == nil {
			return "flag or environment"
		}
	}
	return "none"
}

// Mask hides all but the last four characters of a credential for display.
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
