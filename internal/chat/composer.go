package chat

import (
	"strings"
	"sync"
)

// Composer is the draft of one chat input plus its in-flight flag.
type Composer struct {
	mu      sync.Mutex
	draft   string
	sending bool
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Composer) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

func (c *Composer) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// CanSend reports whether the send control is enabled.
func (c *Composer) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.sending && strings.TrimSpace(c.draft) != ""
}

// Enter handles the submit key. With the modifier held it replaces the
// draft bytes [from, to), the cursor or selection, with a line break and
// returns false; otherwise it returns true and the caller sends.
func (c *Composer) Enter(modifier bool, from, to int) bool {
	if !modifier {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	from = min(max(from, 0), len(c.draft))
	to = min(max(to, from), len(c.draft))
	c.draft = c.draft[:from] + "\n" + c.draft[to:]
	return false
}

// begin claims the in-flight flag and returns the trimmed body.
func (c *Composer) begin() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body := strings.TrimSpace(c.draft)
	if body == "" || c.sending {
		return "", false
	}
	c.sending = true
	return body, true
}

// finish releases the in-flight flag; the draft is cleared only when sent.
func (c *Composer) finish(sent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if sent {
		c.draft = ""
	}
}
