package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileProvider keeps the logged-in identity in a TOML file of the session directory.
type FileProvider struct {
	mu     sync.Mutex
	path   string
	oidc   OIDC
	secret []byte
	logger *zap.Logger
	id     *Identity
}

// ErrNoPendingLogin is returned by CompleteLogin when no login was started.
var ErrNoPendingLogin = errors.New("no login in progress, request a login URL first")

// NewFileProvider loads the identity stored at path, if any. When secret is
// non-empty, ID tokens must carry a valid HS256 signature.
func NewFileProvider(path string, oidc OIDC, secret string, logger *zap.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &FileProvider{path: path, oidc: oidc, logger: logger}
	if secret != "" {
		p.secret = []byte(secret)
	}

	var id Identity
	_, err := toml.DecodeFile(path, &id)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read identity: %w", err)
	case id.Valid():
		p.id = &id
	}
	return p, nil
}

func (p *FileProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.id == nil {
		return nil
	}
	id := *p.id
	return &id
}

// LoginURL builds the authorize URL and records its state until the login
// completes. An empty state reuses the pending one or gets a random one.
func (p *FileProvider) LoginURL(state string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state == "" {
		state = p.pendingState()
	}
	if state == "" {
		state = uuid.NewString()
	}
	u, err := p.oidc.AuthorizeURL(state)
	if err != nil {
		p.logger.Warn("bad authorize url", zap.Error(err))
		return ""
	}
	if err := p.writeState(state); err != nil {
		p.logger.Warn("save login state", zap.Error(err))
		return ""
	}
	return u
}

func (p *FileProvider) statePath() string { return p.path + ".state" }

// pendingState reads the file so a login started by another process of the
// session can be completed here.
func (p *FileProvider) pendingState() string {
	b, err := os.ReadFile(p.statePath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (p *FileProvider) writeState(state string) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(p.statePath(), []byte(state+"\n"), 0600)
}

// Logout forgets the identity and removes the file.
func (p *FileProvider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = nil
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	p.logger.Info("logged out")
	return nil
}

// Claims are the ID token claims trueque reads.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Nonce   string `json:"nonce,omitempty"`
	jwt.RegisteredClaims
}

// CompleteLogin parses the ID token returned by the identity provider,
// persists the identity and returns it. The token must answer the login
// URL handed out last: its nonce is the pending state.
func (p *FileProvider) CompleteLogin(idToken string) (*Identity, error) {
	p.mu.Lock()
	state := p.pendingState()
	p.mu.Unlock()
	if state == "" {
		return nil, ErrNoPendingLogin
	}

	claims, err := p.parse(idToken)
	if err != nil {
		return nil, err
	}
	if claims.Nonce != state {
		return nil, errors.New("id token does not answer the pending login, request a new login URL")
	}
	if claims.Email == "" {
		return nil, errors.New("id token has no email claim")
	}
	id := &Identity{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}
	if err := p.save(id); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.id = id
	if err := os.Remove(p.statePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("clear login state", zap.Error(err))
	}
	p.mu.Unlock()
	p.logger.Info("logged in", zap.String("email", id.Email))
	return id, nil
}

// parse decodes the token. Tokens issued to another client are rejected.
func (p *FileProvider) parse(idToken string) (*Claims, error) {
	claims := &Claims{}
	if p.secret == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
			return nil, fmt.Errorf("invalid id token: %w", err)
		}
		if p.oidc.ClientID != "" && !slices.Contains(claims.Audience, p.oidc.ClientID) {
			return nil, fmt.Errorf("invalid id token: audience %v is not %s", claims.Audience, p.oidc.ClientID)
		}
		return claims, nil
	}

	var opts []jwt.ParserOption
	if p.oidc.ClientID != "" {
		opts = append(opts, jwt.WithAudience(p.oidc.ClientID))
	}
	token, err := jwt.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid id token claims")
	}
	return claims, nil
}

func (p *FileProvider) save(id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(id)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
