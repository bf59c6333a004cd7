package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/trueque/internal/api"
	"github.com/matheus3301/trueque/internal/lock"
	"github.com/matheus3301/trueque/internal/session"
)

// DaemonBinary is the executable started by EnsureDaemon.
const DaemonBinary = "truequed"

// Probe checks if a daemon is running and responsive on the socket.
func Probe(socketPath string) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Session.GetSessionStatus(ctx, &api.GetSessionStatusRequest{})
	return err == nil
}

// EnsureDaemon returns once a daemon serves sessionName, starting one next
// to the current executable when the session lock is free.
func EnsureDaemon(sessionName string, timeout time.Duration) error {
	socketPath := session.SocketPath(sessionName)
	if Probe(socketPath) {
		return nil
	}
	// A held lock means a daemon is still booting; only wait for it.
	if held, _ := lock.Probe(session.Dir(sessionName)); !held {
		fmt.Fprintf(os.Stderr, "daemon not running for session %q, starting...\n", sessionName)
		if err := startDaemon(sessionName); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return nil
		}
		time.Sleep(300 * time.Millisecond)
	}
	return fmt.Errorf("daemon for session %q did not become ready", sessionName)
}

func startDaemon(sessionName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	bin := filepath.Join(filepath.Dir(executable), DaemonBinary)
	if _, err := os.Stat(bin); err != nil {
		bin = DaemonBinary
	}

	cmd := exec.Command(bin, "--session", sessionName)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
