// Package identity holds the logged-in user and the redirect-based login flow.
package identity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrLoginRequired is returned by actions that need a logged-in user.
var ErrLoginRequired = errors.New("identity: login required")

// Identity is the authenticated user. Email is the participant key.
type Identity struct {
	Subject   string `toml:"subject"`
	Email     string `toml:"email"`
	Name      string `toml:"name"`
	AvatarURL string `toml:"avatar_url"`
}

// Valid reports whether the identity can act as a participant.
func (id *Identity) Valid() bool {
	return id != nil && strings.TrimSpace(id.Email) != ""
}

// DisplayName is Name, falling back to the email address.
func (id *Identity) DisplayName() string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

// Provider yields the current identity and the login/logout operations.
type Provider interface {
	// Current returns the logged-in identity or nil.
	Current() *Identity
	// LoginURL returns the authorize URL the user must visit.
	LoginURL(state string) string
	Logout() error
}

// Require returns the current identity. Without one it hands the login URL
// to redirect and returns ErrLoginRequired.
func Require(p Provider, redirect func(loginURL string)) (*Identity, error) {
	if p != nil {
		if id := p.Current(); id.Valid() {
			return id, nil
		}
	}
	if p != nil && redirect != nil {
		redirect(p.LoginURL(""))
	}
	return nil, ErrLoginRequired
}

// OIDC holds the authorize endpoint parameters.
type OIDC struct {
	AuthorizeEndpoint string
	ClientID          string
	RedirectURL       string
}

// AuthorizeURL builds the login redirect for the given state. The state is
// also sent as the nonce, which the provider copies into the ID token.
func (o OIDC) AuthorizeURL(state string) (string, error) {
	u, err := url.Parse(o.AuthorizeEndpoint)
	if err != nil {
		return "", fmt.Errorf("authorize url: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "id_token")
	q.Set("client_id", o.ClientID)
	q.Set("redirect_uri", o.RedirectURL)
	q.Set("scope", "openid profile email")
	if state != "" {
		q.Set("state", state)
		q.Set("nonce", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Static is a fixed Provider. A nil identity means logged out.
type Static struct {
	ID  *Identity
	URL string
}

func (s *Static) Current() *Identity       { return s.ID }
func (s *Static) LoginURL(_ string) string { return s.URL }
func (s *Static) Logout() error {
	s.ID = nil
	return nil
}
