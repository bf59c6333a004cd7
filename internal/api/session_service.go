package api

import (
	"context"
	"os"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
)

// SessionService reports daemon health for one session.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	store       realtime.Store
	bus         *bus.Bus
}

// NewSessionService creates a new session service.
func NewSessionService(sessionName string, s realtime.Store, b *bus.Bus) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		store:       s,
		bus:         b,
	}
}

func (s *SessionService) GetSessionStatus(ctx context.Context, _ *GetSessionStatusRequest) (*GetSessionStatusResponse, error) {
	resp := &GetSessionStatusResponse{
		Session:  s.sessionName,
		Pid:      os.Getpid(),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}

	// Counts are best effort; a busy database should not fail a health probe.
	if s.store != nil {
		if n, err := s.store.CountConversations(ctx, store.ConversationQuery{}); err == nil {
			resp.Conversations = n
		}
	}
	if s.bus != nil {
		resp.Subscribers = s.bus.Subscribers()
	}
	return resp, nil
}
