package tui

import (
	"testing"

	"github.com/matheus3301/trueque/internal/status"
)

func TestRoomNotice(t *testing.T) {
	tests := []struct {
		name     string
		from, to status.State
		warn     bool
		silent   bool
	}{
		{"feed lost", status.Live, status.Degraded, true, false},
		{"load failed", status.Loading, status.Failed, true, false},
		{"feed back", status.Degraded, status.Live, false, false},
		{"first load", status.Loading, status.Live, false, true},
		{"closing", status.Live, status.Closed, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, warn := roomNotice(status.StatusChange{Room: "c1", From: tt.from, To: tt.to})
			if (text == "") != tt.silent {
				t.Errorf("text = %q, silent want %v", text, tt.silent)
			}
			if warn != tt.warn {
				t.Errorf("warn = %v, want %v", warn, tt.warn)
			}
		})
	}
}
