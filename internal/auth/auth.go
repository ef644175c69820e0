// Package auth handles the OAuth2 credentials for the Drive connector.
// Tokens are stored per profile in the system keyring.
package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const serviceName = "cloudsync"

// OAuthConfig builds the three-legged flow configuration for the Drive
// scope. The out-of-band style redirect keeps the login flow terminal-only.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope},
		RedirectURL:  "http://127.0.0.1:8089/callback",
	}
}

// SaveToken persists the token for a profile in the system keyring.
func SaveToken(profile string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := keyring.Set(serviceName, profile, string(data)); err != nil {
		return fmt.Errorf("store token for profile %q: %w", profile, err)
	}
	return nil
}

// LoadToken fetches the stored token for a profile.
func LoadToken(profile string) (*oauth2.Token, error) {
	data, err := keyring.Get(serviceName, profile)
	if err != nil {
		return nil, fmt.Errorf("no stored token for profile %q (run 'cloudsync auth login'): %w", profile, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("stored token for profile %q is unreadable: %w", profile, err)
	}
	return &token, nil
}

// DeleteToken drops a profile's stored token.
func DeleteToken(profile string) error {
	return keyring.Delete(serviceName, profile)
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, cfg *oauth2.Config, profile, code string) (*oauth2.Token, error) {
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := SaveToken(profile, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Service builds an authenticated Drive service for a profile. Refreshed
// tokens are written back to the keyring.
func Service(ctx context.Context, clientID, clientSecret, profile string) (*drive.Service, error) {
	token, err := LoadToken(profile)
	if err != nil {
		return nil, err
	}
	cfg := OAuthConfig(clientID, clientSecret)
	source := &savingTokenSource{
		profile: profile,
		base:    cfg.TokenSource(ctx, token),
		last:    token,
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("build drive service: %w", err)
	}
	return svc, nil
}

type savingTokenSource struct {
	profile string
	base    oauth2.TokenSource
	last    *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last.AccessToken {
		s.last = token
		if err := SaveToken(s.profile, token); err != nil {
			return nil, err
		}
	}
	return token, nil
}
