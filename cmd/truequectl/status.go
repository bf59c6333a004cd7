package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/trueque/internal/api"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/store"
	"github.com/urfave/cli/v2"
)

// StatusCommand shows the daemon status of the session.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show session status",
		Action: func(c *cli.Context) error {
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := e.client.Session.GetSessionStatus(c.Context, &api.GetSessionStatusRequest{})
			if err != nil {
				return err
			}
			if e.json {
				return printJSON(resp)
			}
			fmt.Printf("Session:       %s\n", resp.Session)
			fmt.Printf("Daemon PID:    %d\n", resp.Pid)
			fmt.Printf("Uptime:        %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Truncate(time.Second))
			fmt.Printf("Conversations: %d\n", resp.Conversations)
			fmt.Printf("Subscribers:   %d\n", resp.Subscribers)
			return nil
		},
	}
}

// DealsCommand lists the completed trades of a participant, the caller by default.
func DealsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deals",
		Usage: "List completed trades, yours or another participant's",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "count the trades of this participant instead"},
		},
		Action: func(c *cli.Context) error {
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			email := c.String("email")
			if email == "" {
				me, err := e.me()
				if err != nil {
					return err
				}
				email = me.Email
			}
			n, err := deal.CompletedCount(c.Context, e.svc.Store, email)
			if err != nil {
				return err
			}
			done, err := e.svc.Store.FindConversations(c.Context, store.ConversationQuery{
				Participants: []string{email},
				DealState:    store.DealCompleted,
			})
			if err != nil {
				return err
			}
			if e.json {
				return printJSON(map[string]any{"completed": n, "conversations": done})
			}

			fmt.Printf("%d completed trade(s)\n", n)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, conv := range done {
				fmt.Fprintf(w, "%s\t%s\t%s\n", conv.ID, conv.Title, stamp(conv.DealCompletedAt))
			}
			return w.Flush()
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONLine(v any) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
