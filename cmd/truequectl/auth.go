package main

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
)

// LoginCommand prints the authorize URL, as text and as a QR code.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Show the login URL",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "qr", Usage: "also print a QR code"},
		},
		Action: func(c *cli.Context) error {
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			loginURL := e.svc.Identity.LoginURL("")
			if loginURL == "" {
				return errors.New("identity provider is not configured")
			}
			if e.json {
				return printJSON(map[string]string{"login_url": loginURL})
			}
			fmt.Println(loginURL)
			if c.Bool("qr") {
				q, err := qrcode.New(loginURL, qrcode.Low)
				if err != nil {
					return fmt.Errorf("qr code: %w", err)
				}
				fmt.Print(q.ToSmallString(false))
			}
			fmt.Println("After logging in, run: truequectl token <id_token>")
			return nil
		},
	}
}

// TokenCommand completes the login with the ID token of the provider.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Complete login with the ID token answering the last login URL",
		ArgsUsage: "<id_token>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			id, err := e.svc.Identity.CompleteLogin(c.Args().First())
			if err != nil {
				return err
			}
			if e.json {
				return printJSON(id)
			}
			fmt.Printf("Logged in as %s <%s>\n", id.DisplayName(), id.Email)
			return nil
		},
	}
}

// LogoutCommand forgets the stored identity.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the logged-in identity",
		Action: func(c *cli.Context) error {
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.svc.Identity.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

// WhoamiCommand prints the logged-in identity.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in identity",
		Action: func(c *cli.Context) error {
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			id, err := e.me()
			if err != nil {
				return err
			}
			if e.json {
				return printJSON(id)
			}
			fmt.Printf("%s <%s>\n", id.DisplayName(), id.Email)
			return nil
		},
	}
}
