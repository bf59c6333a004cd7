package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/inbox"
	"github.com/matheus3301/trueque/internal/room"
	"github.com/matheus3301/trueque/internal/store"
	"github.com/urfave/cli/v2"
)

// ProposeCommand opens or reuses the trade chat with the owner of a product.
func ProposeCommand() *cli.Command {
	return &cli.Command{
		Name:      "propose",
		Usage:     "Start or reopen the trade chat for a product",
		ArgsUsage: "<product_id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "offer", Usage: "product you offer in exchange"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			me, err := e.me()
			if err != nil {
				return err
			}
			res, err := e.svc.Resolver.Propose(c.Context, e.svc.Catalog, c.Args().First(), me, c.String("offer"))
			if err != nil {
				return err
			}
			if e.json {
				return printJSON(res)
			}
			verb := "Reusing"
			if res.Created {
				verb = "Created"
			}
			fmt.Printf("%s conversation %s\n", verb, res.ConversationID)
			return nil
		},
	}
}

// ChatsCommand lists every conversation of the logged-in user.
func ChatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "chats",
		Usage: "List your conversations, most recent first",
		Action: func(c *cli.Context) error {
			return listEntries(c, func(ctx context.Context, in *inbox.Inbox) ([]inbox.Entry, error) {
				return in.All(ctx)
			})
		},
	}
}

// InboxCommand shows the inbox popover contents.
func InboxCommand() *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "Show the latest conversations and whether any is unread",
		Action: func(c *cli.Context) error {
			return listEntries(c, func(ctx context.Context, in *inbox.Inbox) ([]inbox.Entry, error) {
				if in.Unread() {
					fmt.Fprintln(os.Stderr, "* new activity")
				}
				return in.Open(ctx)
			})
		},
	}
}

func listEntries(c *cli.Context, load func(context.Context, *inbox.Inbox) ([]inbox.Entry, error)) error {
	e, err := connect(c)
	if err != nil {
		return err
	}
	defer e.Close()

	in := e.svc.Inbox(e.explainLogin)
	if err := in.Start(c.Context); err != nil {
		return err
	}
	defer in.Stop()

	entries, err := load(c.Context, in)
	if err != nil {
		return err
	}
	if e.json {
		return printJSON(entries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWITH\tTITLE\tDEAL\tLAST MESSAGE\tAT")
	for _, en := range entries {
		conv := en.Conversation
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			conv.ID, en.Name, conv.Title, conv.DealState,
			oneLine(conv.LastMessage, 40), stamp(conv.LastMessageAt))
	}
	return w.Flush()
}

// HistoryCommand prints the thread grouped by day.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Print the messages of a conversation",
		ArgsUsage: "<conversation_id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := openRoom(c.Context, e, c.Args().First())
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			v := r.View()
			if e.json {
				return printJSON(v.Messages)
			}
			fmt.Printf("%s  [%s]\n", v.Conversation.Title, v.Badge)
			for _, day := range v.Days {
				fmt.Printf("\n--- %s ---\n", day.Label())
				for _, m := range day.Messages {
					printMessage(m, v.Me)
				}
			}
			return nil
		},
	}
}

// SendCommand posts one message through the room controller.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a message",
		ArgsUsage: "<conversation_id> <text...>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.ShowSubcommandHelp(c)
			}
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := openRoom(c.Context, e, c.Args().First())
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			if err := compose(r.Composer(), c.Args().Tail()); err != nil {
				return err
			}
			if err := r.Send(c.Context); err != nil {
				return err
			}
			fmt.Println("Sent")
			return nil
		},
	}
}

var errEmptyMessage = errors.New("nothing to send: the message is blank")

// compose loads the words into the draft. A blank draft is never sent.
func compose(draft *chat.Composer, words []string) error {
	draft.SetDraft(strings.Join(words, " "))
	if !draft.CanSend() {
		return errEmptyMessage
	}
	return nil
}

// ConfirmCommand toggles the caller's trade confirmation.
func ConfirmCommand() *cli.Command {
	return &cli.Command{
		Name:      "confirm",
		Usage:     "Confirm the trade, or withdraw your confirmation",
		ArgsUsage: "<conversation_id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := openRoom(c.Context, e, c.Args().First())
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			if !r.View().CanToggle {
				return errors.New("the trade is completed and can no longer be changed by you")
			}
			if err := r.ToggleDeal(c.Context); err != nil {
				return err
			}
			v := r.View()
			if e.json {
				return printJSON(v.Conversation)
			}
			fmt.Println(v.Badge)
			return nil
		},
	}
}

// WatchCommand follows a conversation until interrupted.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follow new messages of a conversation",
		ArgsUsage: "<conversation_id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			e, err := connect(c)
			if err != nil {
				return err
			}
			defer e.Close()

			me, err := e.me()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			msgs, unsubscribe, err := e.svc.Stream.Subscribe(ctx, c.Args().First())
			if err != nil {
				return err
			}
			defer unsubscribe()

			for m := range msgs {
				if e.json {
					if err := printJSONLine(m); err != nil {
						return err
					}
					continue
				}
				printMessage(m, me.Email)
			}
			return nil
		},
	}
}

// openRoom loads a room and fails unless it reaches Live.
func openRoom(ctx context.Context, e *env, id string) (*room.Room, error) {
	r := e.svc.Room(id, e.explainLogin)
	if err := r.Open(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func printMessage(m store.Message, me string) {
	who := m.SenderName
	switch {
	case chat.IsSystem(m):
		fmt.Printf("%s  * %s\n", chat.Clock(m, nil), m.Body)
		return
	case m.SenderEmail == me:
		who = "You"
	case who == "":
		who = inbox.Humanize(m.SenderEmail)
	}
	fmt.Printf("%s  %s: %s\n", chat.Clock(m, nil), who, m.Body)
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func stamp(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
