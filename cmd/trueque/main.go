package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/trueque/internal/client"
	"github.com/matheus3301/trueque/internal/config"
	"github.com/matheus3301/trueque/internal/logging"
	"github.com/matheus3301/trueque/internal/session"
	"github.com/matheus3301/trueque/internal/tui"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default ~/.trueque/config.toml)")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fail("load config: %v", err)
	}
	sessionName := session.Resolve(*sessionFlag, cfg)
	if err := session.ValidateName(sessionName); err != nil {
		fail("%v", err)
	}

	if err := client.EnsureDaemon(sessionName, 10*time.Second); err != nil {
		fail("daemon for session %q: %v", sessionName, err)
	}
	if err := session.EnsureDir(sessionName); err != nil {
		fail("session dir: %v", err)
	}
	logger, err := logging.NewFileOnly(session.ClientLogPath(sessionName), sessionName)
	if err != nil {
		fail("open log: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		fail("connect to daemon: %v", err)
	}
	defer func() { _ = c.Close() }()

	svc, err := client.NewServices(sessionName, cfg, c.Remote(logger.Named("remote")), logger)
	if err != nil {
		fail("%v", err)
	}

	app := tui.NewApp(svc, c.Session, sessionName)
	if err := app.Run(); err != nil {
		fail("%v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
