package main

import (
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/trueque/internal/client"
	"github.com/matheus3301/trueque/internal/config"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/logging"
	"github.com/matheus3301/trueque/internal/session"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "truequectl",
		Usage: "Scriptable access to trueque trade chats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Usage:   "session name (overrides config default)",
				EnvVars: []string{"TRUEQUE_SESSION"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file (default ~/.trueque/config.toml)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output in JSON format",
			},
		},
		Commands: allCommands(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func allCommands() []*cli.Command {
	return []*cli.Command{
		LoginCommand(),
		TokenCommand(),
		LogoutCommand(),
		WhoamiCommand(),
		ProposeCommand(),
		ChatsCommand(),
		InboxCommand(),
		HistoryCommand(),
		SendCommand(),
		ConfirmCommand(),
		WatchCommand(),
		StatusCommand(),
		DealsCommand(),
	}
}

// env is the per-invocation connection to the session daemon.
type env struct {
	session string
	client  *client.Client
	svc     *client.Services
	json    bool
}

func connect(c *cli.Context) (*env, error) {
	configPath := c.String("config")
	if configPath == "" {
		configPath = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	name := session.Resolve(c.String("session"), cfg)
	if err := session.ValidateName(name); err != nil {
		return nil, err
	}

	if err := client.EnsureDaemon(name, 10*time.Second); err != nil {
		return nil, fmt.Errorf("daemon for session %q: %w", name, err)
	}
	if err := session.EnsureDir(name); err != nil {
		return nil, err
	}
	logger, err := logging.NewFileOnly(session.ClientLogPath(name), name)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	rpc, err := client.New(session.SocketPath(name))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	svc, err := client.NewServices(name, cfg, rpc.Remote(logger.Named("remote")), logger.Named("ctl"))
	if err != nil {
		_ = rpc.Close()
		return nil, err
	}
	return &env{session: name, client: rpc, svc: svc, json: c.Bool("json")}, nil
}

func (e *env) Close() {
	_ = e.svc.Logger.Sync()
	_ = e.client.Close()
}

// me returns the logged-in identity or explains how to log in.
func (e *env) me() (*identity.Identity, error) {
	return identity.Require(e.svc.Identity, e.explainLogin)
}

func (e *env) explainLogin(loginURL string) {
	fmt.Fprintf(os.Stderr, "Not logged in. Open %s\nthen run: truequectl token <id_token>\n", loginURL)
}
