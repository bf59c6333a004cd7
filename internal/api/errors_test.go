package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/matheus3301/trueque/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func TestErrorMappingRoundTrip(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{store.ErrNotFound, codes.NotFound},
		{store.ErrVersionConflict, codes.Aborted},
		{store.ErrInvalid, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			wrapped := fmt.Errorf("update: %w", tt.err)
			st := toStatus("op", wrapped)
			if got := grpcstatus.Code(st); got != tt.code {
				t.Fatalf("code = %v, want %v", got, tt.code)
			}
			if back := FromStatus(st); !errors.Is(back, tt.err) {
				t.Errorf("FromStatus() = %v, want errors.Is %v", back, tt.err)
			}
		})
	}
}

func TestUnknownErrorsAreInternal(t *testing.T) {
	st := toStatus("op", errors.New("disk on fire"))
	if grpcstatus.Code(st) != codes.Internal {
		t.Errorf("code = %v, want Internal", grpcstatus.Code(st))
	}
	back := FromStatus(st)
	if errors.Is(back, store.ErrNotFound) || errors.Is(back, store.ErrInvalid) {
		t.Errorf("internal error restored as sentinel: %v", back)
	}
}

func TestCodecName(t *testing.T) {
	var c jsonCodec
	if c.Name() != "json" {
		t.Errorf("Name() = %q", c.Name())
	}
	data, err := c.Marshal(&GetConversationRequest{ID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	var req GetConversationRequest
	if err := c.Unmarshal(data, &req); err != nil {
		t.Fatal(err)
	}
	if req.ID != "c1" {
		t.Errorf("id = %q", req.ID)
	}
}
