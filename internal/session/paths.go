package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.trueque, or $TRUEQUE_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("TRUEQUE_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trueque")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// SocketPath returns the UDS socket path for a session.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath returns the lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the realtime store database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "trueque.db")
}

// IdentityPath returns the file holding the logged-in identity.
func IdentityPath(name string) string {
	return filepath.Join(Dir(name), "identity.toml")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// DaemonLogPath returns the daemon log file path.
func DaemonLogPath(name string) string {
	return filepath.Join(LogDir(name), "truequed.log")
}

// ClientLogPath returns the terminal client log file path.
func ClientLogPath(name string) string {
	return filepath.Join(LogDir(name), "trueque.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
