package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Deal concurrency modes.
const (
	LastWriteWins = "last_write_wins"
	Optimistic    = "optimistic"
)

// Duration is a time.Duration written as a string ("2m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.trueque/config.toml.
type Config struct {
	DefaultSession string   `toml:"default_session"`
	CatalogURL     string   `toml:"catalog_url"`
	Identity       Identity `toml:"identity"`
	Chat           Chat     `toml:"chat"`
	Inbox          Inbox    `toml:"inbox"`
	Deal           Deal     `toml:"deal"`
}

// Identity configures the redirect-based login.
type Identity struct {
	AuthorizeURL string `toml:"authorize_url"`
	ClientID     string `toml:"client_id"`
	RedirectURL  string `toml:"redirect_url"`
	// Secret enables HS256 verification of returned ID tokens.
	Secret string `toml:"secret,omitempty"`
}

type Chat struct {
	ReconcileInterval Duration `toml:"reconcile_interval"`
}

type Inbox struct {
	RecencyWindow Duration `toml:"recency_window"`
	Limit         int      `toml:"limit"`
}

type Deal struct {
	Concurrency string `toml:"concurrency"`
	AllowReopen bool   `toml:"allow_reopen"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		CatalogURL: "http://localhost:8080",
		Identity: Identity{
			AuthorizeURL: "https://auth.trueque.app/authorize",
			ClientID:     "trueque-cli",
			RedirectURL:  "http://localhost:5173/callback",
		},
		Chat:  Chat{ReconcileInterval: Duration{30 * time.Second}},
		Inbox: Inbox{RecencyWindow: Duration{2 * time.Minute}, Limit: 5},
		Deal:  Deal{Concurrency: LastWriteWins, AllowReopen: true},
	}
}

// Load reads config from the given path over the defaults. Keys missing from
// the file keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load that treats a missing file as the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	switch c.Deal.Concurrency {
	case LastWriteWins, Optimistic:
	default:
		return fmt.Errorf("deal.concurrency: unknown mode %q", c.Deal.Concurrency)
	}
	if c.Inbox.Limit <= 0 {
		return fmt.Errorf("inbox.limit must be positive, got %d", c.Inbox.Limit)
	}
	if c.Inbox.RecencyWindow.Duration <= 0 {
		return errors.New("inbox.recency_window must be positive")
	}
	if c.Chat.ReconcileInterval.Duration <= 0 {
		return errors.New("chat.reconcile_interval must be positive")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
