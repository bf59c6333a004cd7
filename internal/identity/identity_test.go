package identity

import (
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testOIDC = OIDC{
	AuthorizeEndpoint: "https://auth.example.com/authorize",
	ClientID:          "trueque-cli",
	RedirectURL:       "http://localhost:5173/callback",
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// aliceClaims answers the login p has pending.
func aliceClaims(t *testing.T, p *FileProvider) Claims {
	t.Helper()
	return Claims{
		Email:   "alice@x.com",
		Name:    "Alice",
		Picture: "https://img.example.com/alice.png",
		Nonce:   startLogin(t, p),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth0|123",
			Audience:  jwt.ClaimStrings{testOIDC.ClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

// startLogin requests a login URL and returns its state.
func startLogin(t *testing.T, p *FileProvider) string {
	t.Helper()
	u, err := url.Parse(p.LoginURL(""))
	if err != nil {
		t.Fatal(err)
	}
	state := u.Query().Get("state")
	if state == "" || u.Query().Get("nonce") != state {
		t.Fatalf("login url %s lacks a matching state and nonce", u)
	}
	return state
}

func TestRequireRedirectsWhenLoggedOut(t *testing.T) {
	p := &Static{URL: "https://auth.example.com/authorize"}

	var redirected string
	id, err := Require(p, func(u string) { redirected = u })
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("err = %v, want ErrLoginRequired", err)
	}
	if id != nil {
		t.Errorf("identity = %+v, want nil", id)
	}
	if redirected != p.URL {
		t.Errorf("redirect = %q, want %q", redirected, p.URL)
	}
}

func TestRequireReturnsIdentity(t *testing.T) {
	p := &Static{ID: &Identity{Email: "a@x.com"}}
	id, err := Require(p, func(string) { t.Error("unexpected redirect") })
	if err != nil {
		t.Fatal(err)
	}
	if id.Email != "a@x.com" {
		t.Errorf("email = %q", id.Email)
	}
}

func TestAuthorizeURL(t *testing.T) {
	raw, err := testOIDC.AuthorizeURL("s1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("client_id") != "trueque-cli" || q.Get("state") != "s1" {
		t.Errorf("query = %v", q)
	}
	if q.Get("scope") != "openid profile email" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if q.Get("redirect_uri") != testOIDC.RedirectURL {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestCompleteLoginPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.toml")
	p, err := NewFileProvider(path, testOIDC, "s3cret", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Current() != nil {
		t.Fatal("fresh provider should be logged out")
	}

	id, err := p.CompleteLogin(signToken(t, "s3cret", aliceClaims(t, p)))
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if id.Subject != "auth0|123" || id.Email != "alice@x.com" || id.AvatarURL == "" {
		t.Errorf("identity = %+v", id)
	}

	// A second provider on the same file sees the login.
	again, err := NewFileProvider(path, testOIDC, "s3cret", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cur := again.Current(); cur == nil || cur.Email != "alice@x.com" {
		t.Fatalf("reloaded identity = %+v", cur)
	}

	if err := again.Logout(); err != nil {
		t.Fatal(err)
	}
	if again.Current() != nil {
		t.Error("identity survived logout")
	}
	reloaded, err := NewFileProvider(path, testOIDC, "s3cret", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Current() != nil {
		t.Error("identity file survived logout")
	}
}

func TestCompleteLoginRejectsBadSignature(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "identity.toml"), testOIDC, "s3cret", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.CompleteLogin(signToken(t, "other", aliceClaims(t, p))); err == nil {
		t.Error("CompleteLogin() accepted a token signed with the wrong key")
	}
	if p.Current() != nil {
		t.Error("failed login left an identity behind")
	}
}

func TestCompleteLoginUnverifiedWithoutSecret(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "identity.toml"), testOIDC, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	id, err := p.CompleteLogin(signToken(t, "whatever", aliceClaims(t, p)))
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if id.Name != "Alice" {
		t.Errorf("name = %q", id.Name)
	}
}

func TestCompleteLoginRequiresEmail(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "identity.toml"), testOIDC, "k", nil)
	if err != nil {
		t.Fatal(err)
	}
	claims := aliceClaims(t, p)
	claims.Email = ""
	if _, err := p.CompleteLogin(signToken(t, "k", claims)); err == nil {
		t.Error("CompleteLogin() accepted a token without email")
	}
}

func TestLoginURLGeneratesState(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "identity.toml"), testOIDC, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(p.LoginURL(""))
	if err != nil {
		t.Fatal(err)
	}
	if u.Query().Get("state") == "" {
		t.Error("LoginURL(\"\") did not generate a state")
	}
}

func TestCompleteLoginChecksAudienceAndState(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		edit   func(c *Claims)
	}{
		{"other client signed", "k", func(c *Claims) { c.Audience = jwt.ClaimStrings{"someone-else"} }},
		{"no audience signed", "k", func(c *Claims) { c.Audience = nil }},
		{"other client unverified", "", func(c *Claims) { c.Audience = jwt.ClaimStrings{"someone-else"} }},
		{"stale state", "k", func(c *Claims) { c.Nonce = "an-older-login" }},
		{"no state", "", func(c *Claims) { c.Nonce = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewFileProvider(filepath.Join(t.TempDir(), "identity.toml"), testOIDC, tt.secret, nil)
			if err != nil {
				t.Fatal(err)
			}
			claims := aliceClaims(t, p)
			tt.edit(&claims)
			if _, err := p.CompleteLogin(signToken(t, "k", claims)); err == nil {
				t.Error("CompleteLogin() accepted the token")
			}
			if p.Current() != nil {
				t.Error("rejected login left an identity behind")
			}
		})
	}
}

func TestCompleteLoginNeedsPendingLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.toml")
	p, err := NewFileProvider(path, testOIDC, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	claims := aliceClaims(t, p)
	token := signToken(t, "k", claims)

	// Another process of the session completes the login started here.
	other, err := NewFileProvider(path, testOIDC, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.CompleteLogin(token); err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}

	// The state is spent, replaying the token fails.
	if _, err := other.CompleteLogin(token); !errors.Is(err, ErrNoPendingLogin) {
		t.Errorf("replay err = %v, want ErrNoPendingLogin", err)
	}
}

func TestLoginURLKeepsPendingState(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "identity.toml"), testOIDC, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first, second := startLogin(t, p), startLogin(t, p); first != second {
		t.Errorf("state changed between login URLs: %q then %q", first, second)
	}
}
