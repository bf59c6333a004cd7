// Package tui is the terminal front end: the conversation list, the inbox
// popover and one chat room at a time.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/trueque/internal/api"
	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/client"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/inbox"
	"github.com/matheus3301/trueque/internal/room"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/tui/keys"
	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/matheus3301/trueque/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	roomScope       = "room"
	refreshInterval = 5 * time.Second
)

// SessionStatus reports daemon health.
type SessionStatus interface {
	GetSessionStatus(ctx context.Context, in *api.GetSessionStatusRequest) (*api.GetSessionStatusResponse, error)
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	svc      *client.Services
	sessions SessionStatus
	logger   *zap.Logger
	theme    *ui.Theme
	registry *keys.Registry
	flash    *ui.FlashModel

	body      *tview.Flex
	pages     *ui.Pages
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	prompt    *ui.Prompt
	flashBar  *ui.FlashBar
	statusBar *views.StatusBar
	list      *views.ConversationList
	help      *views.HelpView
	auth      *views.AuthView
	inboxView *views.InboxView

	// Touched only on the UI goroutine.
	inbox     *inbox.Inbox
	stopInbox func()
	room      *room.Room
	chatView  *views.ChatRoom

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(svc *client.Services, sessions SessionStatus, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		svc:       svc,
		sessions:  sessions,
		logger:    svc.Logger.Named("tui"),
		theme:     theme,
		registry:  keys.NewRegistry(),
		flash:     ui.NewFlashModel(),
		pages:     ui.NewPages(),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(theme),
		list:      views.NewConversationList(theme),
		help:      views.NewHelpView(theme),
		auth:      views.NewAuthView(theme),
		inboxView: views.NewInboxView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetSession(sessionName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	r := a.registry
	r.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "Quit", Visible: true,
		Handler: a.Stop,
	})
	r.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Description: "Inbox", Visible: true,
		Handler: a.openInbox,
	})
	r.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "Help", Visible: true,
		Handler: a.showHelp,
	})
	r.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "Command", Visible: true,
		Handler: func() { a.showPrompt("") },
	})

	r.AddView(a.list.Name(), &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Handler: func() { a.showPrompt("filter ") },
	})

	r.AddView(roomScope, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Handler: a.focusComposer,
	})
	r.AddView(roomScope, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Handler: func() {
			if a.chatView != nil {
				a.chatView.Toggle()
			}
		},
	})
	r.AddView(roomScope, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Handler: a.retryRoom,
	})
}

func (a *App) setupCallbacks() {
	a.pages.SetOnChange(func(stack []ui.Component) {
		top := stack[len(stack)-1]
		a.menu.Update(append(top.Hints(), a.registry.Hints("")...))
		a.crumbs.Update(a.pages.Names())
	})

	a.list.SetSelectedFunc(func(row, col int) {
		if id := a.list.Selected(); id != "" {
			a.openRoom(id)
		}
	})

	a.inboxView.SetOnOpen(func(id string) {
		a.closeInbox()
		a.openRoom(id)
	})
	a.inboxView.SetOnAll(func() {
		a.closeInbox()
		a.pages.Reset()
		a.focusTop()
		if in := a.inbox; in != nil {
			go a.reloadList(in)
		}
	})
	a.inboxView.SetOnDismiss(a.closeInbox)

	a.prompt.SetOnSubmit(func(text string) {
		a.hidePrompt()
		a.runCommand(text)
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(a.crumbs, 1, 0, false).
			AddItem(a.menu, 0, 1, false), 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 26, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 3, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.capture)
	a.pages.Push(a.list, a.list)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	// Text inputs get every key; Esc leaves the composer.
	switch a.app.GetFocus().(type) {
	case *ui.Prompt, *tview.InputField:
		return ev
	case *tview.TextArea:
		if ev.Key() == tcell.KeyEscape {
			a.focusTop()
			return nil
		}
		return ev
	}

	if a.pages.Top() == a.inboxView {
		if a.inboxView.Handles(ev) {
			return ev
		}
		a.closeInbox()
	}
	if ev.Key() == tcell.KeyEscape {
		if a.pages.Pop() != nil {
			a.focusTop()
		}
		return nil
	}
	if a.registry.HandleEvent(a.scope(), ev) {
		return nil
	}
	return ev
}

func (a *App) scope() string {
	top := a.pages.Top()
	switch {
	case top == nil:
		return ""
	case a.chatView != nil && top == a.chatView:
		return roomScope
	default:
		return top.Name()
	}
}

func (a *App) focusTop() {
	switch top := a.pages.Top().(type) {
	case *views.ChatRoom:
		a.app.SetFocus(top.Messages())
	case *views.InboxView:
		a.app.SetFocus(top.List())
	case tview.Primitive:
		a.app.SetFocus(top)
	}
}

func (a *App) showPrompt(text string) {
	a.body.ResizeItem(a.prompt, 3, 0)
	a.prompt.SetText(text)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.focusTop()
}

func (a *App) showHelp() {
	if a.pages.Top() != a.help {
		a.pages.Push(a.help, a.help)
	}
	a.focusTop()
}

// redirect is the login hook handed to rooms and the inbox. It runs on
// background goroutines.
func (a *App) redirect(loginURL string) {
	a.app.QueueUpdateDraw(func() { a.showLogin(loginURL) })
}

func (a *App) showLogin(loginURL string) {
	a.auth.ShowLogin(loginURL)
	a.statusBar.SetUser("")
	if a.pages.Top() != a.auth {
		a.pages.Reset()
		a.pages.Push(a.auth, a.auth)
	}
	a.focusTop()
}

func (a *App) report(err error) {
	a.logger.Warn("action failed", zap.Error(err))
	a.app.QueueUpdateDraw(func() {
		a.flash.Err(err)
		a.updateFlash()
	})
}

func (a *App) updateFlash() {
	a.flashBar.Update(a.flash.Current())
}

func (a *App) runCommand(text string) {
	cmd, err := ParseCommand(text)
	if err != nil {
		a.flash.Err(err)
		a.updateFlash()
		return
	}

	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.showHelp()
	case "inbox":
		a.openInbox()
	case "filter":
		a.pages.Reset()
		a.list.SetFilter(cmd.Rest(0))
		a.focusTop()
	case "open":
		a.openRoom(cmd.Arg(0))
	case "propose":
		a.propose(cmd.Arg(0), cmd.Arg(1))
	case "token":
		a.login(cmd.Arg(0))
	case "logout":
		a.logout()
	}
}

func (a *App) propose(target, offer string) {
	go func() {
		me, err := identity.Require(a.svc.Identity, a.redirect)
		if err != nil {
			return
		}
		res, err := a.svc.Resolver.Propose(a.ctx, a.svc.Catalog, target, me, offer)
		if err != nil {
			a.report(err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			if res.Created {
				a.flash.Info("Trade chat started")
			} else {
				a.flash.Info("Opened the existing trade chat")
			}
			a.updateFlash()
			a.openRoom(res.ConversationID)
		})
	}()
}

func (a *App) login(token string) {
	id, err := a.svc.Identity.CompleteLogin(token)
	if err != nil {
		a.flash.Err(err)
		a.updateFlash()
		return
	}
	a.statusBar.SetUser(id.DisplayName())
	a.flash.Info("Logged in as " + id.Email)
	a.updateFlash()
	a.pages.Reset()
	a.focusTop()
	go a.startInbox()
}

func (a *App) logout() {
	if err := a.svc.Identity.Logout(); err != nil {
		a.flash.Err(err)
		a.updateFlash()
		return
	}
	if a.stopInbox != nil {
		a.stopInbox()
		a.inbox, a.stopInbox = nil, nil
	}
	a.list.Update(nil)
	a.statusBar.SetUnread(false)
	a.showLogin(a.svc.Identity.LoginURL(""))
}

// startInbox runs on a background goroutine.
func (a *App) startInbox() {
	in := a.svc.Inbox(a.redirect)
	if err := in.Start(a.ctx); err != nil {
		if !errors.Is(err, identity.ErrLoginRequired) {
			a.report(err)
		}
		return
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.app.QueueUpdateDraw(func() {
		if a.stopInbox != nil {
			a.stopInbox()
		}
		a.inbox = in
		a.stopInbox = func() {
			cancel()
			in.Stop()
		}
		a.statusBar.SetUnread(in.Unread())
	})
	a.reloadList(in)

	for {
		select {
		case <-ctx.Done():
			return
		case <-in.Updates():
			a.app.QueueUpdateDraw(func() {
				if a.inbox != in {
					return
				}
				a.statusBar.SetUnread(in.Unread())
				if in.IsOpen() {
					a.inboxView.Update(in.Entries())
				}
			})
			a.reloadList(in)
		}
	}
}

func (a *App) reloadList(in *inbox.Inbox) {
	entries, err := in.All(a.ctx)
	if err != nil {
		a.report(err)
		return
	}
	a.app.QueueUpdateDraw(func() { a.list.Update(entries) })
}

func (a *App) openInbox() {
	in := a.inbox
	if in == nil {
		a.flash.Warn("Log in to see your conversations")
		a.updateFlash()
		return
	}
	go func() {
		entries, err := in.Open(a.ctx)
		if err != nil {
			a.report(err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.inboxView.Update(entries)
			a.statusBar.SetUnread(false)
			if a.pages.Top() != a.inboxView {
				a.pages.Push(a.inboxView, a.inboxView)
			}
			a.focusTop()
		})
	}()
}

func (a *App) closeInbox() {
	if a.inbox != nil {
		a.inbox.Dismiss()
	}
	if a.pages.Top() == a.inboxView {
		a.pages.Pop()
	}
	a.focusTop()
}

func (a *App) openRoom(id string) {
	if a.room != nil && a.room.ID() == id {
		a.focusTop()
		return
	}
	a.pages.Reset()

	r := a.svc.Room(id, a.redirect)
	cv := views.NewChatRoom(a.theme, "Chat", r.Composer())
	ctx, cancel := context.WithCancel(a.ctx)

	cv.SetOnSend(func() {
		go func() {
			if err := r.Send(ctx); err != nil {
				a.report(err)
			}
		}()
	})
	cv.SetOnToggle(func() {
		go func() {
			if err := r.ToggleDeal(ctx); err != nil {
				a.report(err)
			}
		}()
	})
	cv.SetOnClose(func() {
		cancel()
		if a.room == r {
			a.room, a.chatView = nil, nil
		}
		go func() {
			if err := r.Close(); err != nil {
				a.logger.Warn("close room", zap.String("conversation", id), zap.Error(err))
			}
		}()
	})

	a.room, a.chatView = r, cv
	a.pages.Push(cv, cv)
	a.focusTop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.Updates():
				a.render(r, cv)
			}
		}
	}()
	go func() {
		if err := r.Open(ctx); err != nil && !errors.Is(err, identity.ErrLoginRequired) {
			a.report(err)
		}
		if other := r.View().Counterpart; other != "" {
			a.svc.Names.Name(ctx, other)
		}
		a.render(r, cv)
	}()
}

// render snapshots the room on the UI goroutine so a queued draw never
// overwrites a draft typed after it was queued.
func (a *App) render(r *room.Room, cv *views.ChatRoom) {
	a.app.QueueUpdateDraw(func() {
		cv.Render(r.View(), a.svc.Names.Cached)
	})
}

func (a *App) retryRoom() {
	r := a.room
	if r == nil {
		return
	}
	go func() {
		if err := r.Retry(a.ctx); err != nil && !errors.Is(err, room.ErrNotFailed) {
			a.report(err)
		}
	}()
}

func (a *App) focusComposer() {
	if a.chatView != nil {
		a.app.SetFocus(a.chatView.Composer())
	}
}

func (a *App) boot() {
	id, err := identity.Require(a.svc.Identity, a.redirect)
	if err != nil {
		return
	}
	a.app.QueueUpdateDraw(func() { a.statusBar.SetUser(id.DisplayName()) })
	a.startInbox()
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		a.refreshStatus()
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) refreshStatus() {
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()

	daemon := "offline"
	if resp, err := a.sessions.GetSessionStatus(ctx, &api.GetSessionStatusRequest{}); err == nil {
		uptime := (time.Duration(resp.UptimeMs) * time.Millisecond).Truncate(time.Second)
		daemon = fmt.Sprintf("pid %d up %s", resp.Pid, uptime)
	}

	deals := int64(-1)
	if id := a.svc.Identity.Current(); id.Valid() {
		if n, err := deal.CompletedCount(ctx, a.svc.Store, id.Email); err == nil {
			deals = n
		}
	}

	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetDaemon(daemon)
		if deals >= 0 {
			a.statusBar.SetDeals(deals)
		}
		a.updateFlash()
	})
}

// watchRooms flashes the status changes of the open room.
func (a *App) watchRooms() {
	events, unsubscribe := a.svc.Bus.Subscribe(bus.KindRoomStatusChanged, 16)
	defer unsubscribe()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-events:
			change, ok := ev.Payload.(status.StatusChange)
			if !ok {
				continue
			}
			text, warn := roomNotice(change)
			if text == "" {
				continue
			}
			a.app.QueueUpdateDraw(func() {
				if a.room == nil || a.room.ID() != change.Room {
					return
				}
				if warn {
					a.flash.Warn(text)
				} else {
					a.flash.Info(text)
				}
				a.updateFlash()
			})
		}
	}
}

func roomNotice(c status.StatusChange) (text string, warn bool) {
	switch {
	case c.To == status.Degraded:
		return "Live updates interrupted, catching up", true
	case c.To == status.Failed:
		return "Could not load the chat, press r to retry", true
	case c.From == status.Degraded && c.To == status.Live:
		return "Live updates restored", false
	}
	return "", false
}

// Run starts the TUI application and blocks until it quits.
func (a *App) Run() error {
	go a.boot()
	go a.refreshLoop()
	go a.watchRooms()
	err := a.app.Run()

	a.cancel()
	if a.stopInbox != nil {
		a.stopInbox()
	}
	if a.room != nil {
		_ = a.room.Close()
	}
	return err
}

// Stop quits the application; Run returns after cleanup.
func (a *App) Stop() {
	a.app.Stop()
}
