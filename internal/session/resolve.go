package session

import (
	"os"

	"github.com/matheus3301/trueque/internal/config"
)

const (
	DefaultSessionName = "main"
	// EnvSession names the session when no --session flag is given.
	EnvSession = "TRUEQUE_SESSION"
)

// Resolve picks the session of a trueque process: the --session flag, then
// $TRUEQUE_SESSION, then default_session of cfg, then "main". cfg may be nil.
func Resolve(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if name := os.Getenv(EnvSession); name != "" {
		return name
	}
	if cfg != nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
