package session

import (
	"context"
	"errors"
	"testing"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/logger"
)

type fakePresence struct {
	up   []string
	down []string
}

func (p *fakePresence) Up(_ context.Context, _, sessionID string) error {
	p.up = append(p.up, sessionID)
	return nil
}

func (p *fakePresence) Down(_ context.Context, _, sessionID string) error {
	p.down = append(p.down, sessionID)
	return nil
}

func TestRegistryRegisterLookupDeregister(t *testing.T) {
	pres := &fakePresence{}
	r := NewRegistry(pres, logger.Nop())
	ctx := context.Background()

	s := r.Register(ctx, "user-1", "a@example.com")
	if s.UserID != "user-1" || s.Email != "a@example.com" {
		t.Fatalf("session identity wrong: %+v", s)
	}
	got, err := r.Lookup(s.ID)
	if err != nil || got != s {
		t.Fatalf("lookup: %v %v", got, err)
	}
	if len(pres.up) != 1 || pres.up[0] != s.ID {
		t.Fatalf("presence up not recorded: %v", pres.up)
	}

	r.Deregister(ctx, s.ID)
	if _, err := r.Lookup(s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("lookup after deregister: got %v, want ErrNotFound", err)
	}
	if len(pres.down) != 1 || pres.down[0] != s.ID {
		t.Fatalf("presence down not recorded: %v", pres.down)
	}
	if s.Deliver([]byte("x")) {
		t.Fatal("deliver to a closed session must report a drop")
	}

	// deregistering twice is harmless
	r.Deregister(ctx, s.ID)
}

func TestRegistryByUserTracksMultipleDevices(t *testing.T) {
	r := NewRegistry(nil, logger.Nop())
	ctx := context.Background()

	s1 := r.Register(ctx, "user-1", "a@example.com")
	s2 := r.Register(ctx, "user-1", "a@example.com")
	r.Register(ctx, "user-2", "b@example.com")

	sessions := r.ByUser("user-1")
	if len(sessions) != 2 {
		t.Fatalf("sessions for user-1 = %d, want 2", len(sessions))
	}

	r.Deregister(ctx, s1.ID)
	sessions = r.ByUser("user-1")
	if len(sessions) != 1 || sessions[0] != s2 {
		t.Fatalf("expected only the second device to remain: %v", sessions)
	}
	if len(r.ByUser("missing")) != 0 {
		t.Fatal("unknown user must yield no sessions")
	}
}

func TestSessionDeliverDropsWhenBufferFull(t *testing.T) {
	s := newSession("user-1", "a@example.com")
	for i := 0; i < sendBuffer; i++ {
		if !s.Deliver([]byte("frame")) {
			t.Fatalf("delivery %d should fit the buffer", i)
		}
	}
	if s.Deliver([]byte("overflow")) {
		t.Fatal("full buffer must drop, not block")
	}
}
