// Package realtimetest builds throwaway Local stores for tests.
package realtimetest

import (
	"path/filepath"
	"testing"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap/zaptest"
)

// New opens a migrated SQLite store under t.TempDir and wraps it in a Local
// store with its own bus. Everything is closed on test cleanup.
func New(t testing.TB) (*realtime.Local, *bus.Bus) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "trueque.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	b := bus.New()
	return realtime.NewLocal(db, b, zaptest.NewLogger(t)), b
}
