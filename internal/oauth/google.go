// Package oauth binds federated identities to the auth service. The
// Provider interface is the whole surface the session layer sees; the
// Google implementation behind it speaks the authorization-code flow via
// golang.org/x/oauth2.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/quickeats/quickeats/internal/config"
)

// ErrNoEmail is returned when the provider profile carries no email
// address. Without an email there is nothing to bind the identity to, so
// the handshake is aborted rather than falling back to a local flow.
var ErrNoEmail = errors.New("provider profile has no email")

// Profile is the subset of a federated identity the service consumes.
type Profile struct {
	Subject    string // provider-scoped stable subject id
	Email      string
	GivenName  string
	FamilyName string
}

// Provider abstracts an external identity provider: build the redirect URL
// for the handshake, then exchange the returned code for a profile.
type Provider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (Profile, error)
}

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider implements Provider against Google's OAuth2 endpoints.
type GoogleProvider struct {
	conf        *oauth2.Config
	userinfoURL string
}

// NewGoogleProvider builds a GoogleProvider from the configured client
// credentials and callback URL.
func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userinfoURL: googleUserinfoURL,
	}
}

// AuthURL returns the provider URL the browser is redirected to. The state
// value is round-tripped by the provider and checked at the callback.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and fetches the
// userinfo document. The returned profile always has a non-empty email.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (Profile, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := g.conf.Client(ctx, tok).Get(g.userinfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return Profile{}, ErrNoEmail
	}
	return Profile{
		Subject:    info.Sub,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}, nil
}
