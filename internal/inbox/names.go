package inbox

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/matheus3301/trueque/internal/catalog"
	"go.uber.org/zap"
)

// UserFinder looks a user up by email.
type UserFinder interface {
	FindUser(ctx context.Context, email string) (*catalog.User, error)
}

var separators = regexp.MustCompile(`[._-]+`)

// Humanize derives a display name from the local part of an email address:
// "ana.maria_lopez@x.com" becomes "Ana Maria Lopez".
func Humanize(email string) string {
	local, _, _ := strings.Cut(email, "@")
	words := strings.Fields(separators.ReplaceAllString(local, " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Names caches email to display name. Lookup failures fall back to
// Humanize and are never returned.
type Names struct {
	finder UserFinder
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewNames creates a cache backed by finder, which may be nil.
func NewNames(finder UserFinder, logger *zap.Logger) *Names {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Names{finder: finder, logger: logger, cache: make(map[string]string)}
}

// Cached returns the cached name or the humanized fallback without a lookup.
func (n *Names) Cached(email string) string {
	n.mu.Lock()
	name, ok := n.cache[email]
	n.mu.Unlock()
	if ok {
		return name
	}
	return Humanize(email)
}

// Name returns the display name of email, looking it up once.
func (n *Names) Name(ctx context.Context, email string) string {
	if email == "" {
		return ""
	}
	n.mu.Lock()
	name, ok := n.cache[email]
	n.mu.Unlock()
	if ok {
		return name
	}

	name = Humanize(email)
	if n.finder != nil {
		u, err := n.finder.FindUser(ctx, email)
		switch {
		case err != nil:
			n.logger.Debug("name lookup failed", zap.String("email", email), zap.Error(err))
		case u.PreferredName() != "":
			name = u.PreferredName()
		}
	}

	n.mu.Lock()
	n.cache[email] = name
	n.mu.Unlock()
	return name
}

// Resolve looks up every email not yet cached, concurrently.
func (n *Names) Resolve(ctx context.Context, emails []string) {
	var wg sync.WaitGroup
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			n.Name(ctx, email)
		}(e)
	}
	wg.Wait()
}
