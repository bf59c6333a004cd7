package client

import (
	"fmt"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/catalog"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/config"
	"github.com/matheus3301/trueque/internal/conversation"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/inbox"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/room"
	"github.com/matheus3301/trueque/internal/session"
	"go.uber.org/zap"
)

// Services are the chat components of one front-end process, all backed by
// the same realtime.Store. Rooms publish their status changes on Bus.
type Services struct {
	Bus      *bus.Bus
	Config   *config.Config
	Identity *identity.FileProvider
	Catalog  *catalog.Client
	Store    realtime.Store
	Stream   *chat.Stream
	Resolver *conversation.Resolver
	Deals    *deal.Machine
	Names    *inbox.Names
	Logger   *zap.Logger
}

// NewServices builds the components for sessionName over s.
func NewServices(sessionName string, cfg *config.Config, s realtime.Store, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ident, err := identity.NewFileProvider(
		session.IdentityPath(sessionName),
		identity.OIDC{
			AuthorizeEndpoint: cfg.Identity.AuthorizeURL,
			ClientID:          cfg.Identity.ClientID,
			RedirectURL:       cfg.Identity.RedirectURL,
		},
		cfg.Identity.Secret,
		logger.Named("identity"),
	)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	cat := catalog.New(cfg.CatalogURL, catalog.WithLogger(logger.Named("catalog")))
	stream := chat.NewStream(s, logger.Named("chat"))
	return &Services{
		Bus:      bus.New(),
		Config:   cfg,
		Identity: ident,
		Catalog:  cat,
		Store:    s,
		Stream:   stream,
		Resolver: conversation.NewResolver(s, stream, logger.Named("resolver")),
		Deals: deal.NewMachine(s, stream, deal.Options{
			Mode:        deal.Mode(cfg.Deal.Concurrency),
			AllowReopen: cfg.Deal.AllowReopen,
		}, logger.Named("deal")),
		Names:  inbox.NewNames(cat, logger.Named("names")),
		Logger: logger,
	}, nil
}

// Room creates the controller for one conversation. redirect receives the
// login URL when nobody is logged in.
func (s *Services) Room(conversationID string, redirect func(string)) *room.Room {
	return room.New(conversationID, room.Deps{
		Bus:      s.Bus,
		Store:    s.Store,
		Stream:   s.Stream,
		Deals:    s.Deals,
		Identity: s.Identity,
		Logger:   s.Logger.Named("room"),
	}, room.Options{
		ReconcileInterval: s.Config.Chat.ReconcileInterval.Duration,
		Redirect:          redirect,
	})
}

// Inbox creates the notification component of the current identity.
func (s *Services) Inbox(redirect func(string)) *inbox.Inbox {
	return inbox.New(s.Store, s.Identity, s.Names, inbox.Options{
		RecencyWindow: s.Config.Inbox.RecencyWindow.Duration,
		Limit:         s.Config.Inbox.Limit,
		Redirect:      redirect,
	}, s.Logger.Named("inbox"))
}
