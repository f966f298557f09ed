package user

import (
	"context"
	"errors"
	"testing"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/logger"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/store/memory"
)

func TestBlock(t *testing.T) {
	users := memory.NewUserStore()
	svc := NewService(users, logger.Nop())
	ctx := context.Background()
	for _, id := range []string{"u1", "u2"} {
		if err := users.CreateUser(ctx, &model.User{ID: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	if err := svc.Block(ctx, "u1", "u1"); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("self block: got %v, want ErrInvalidTarget", err)
	}
	if err := svc.Block(ctx, "u1", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown target: got %v, want ErrNotFound", err)
	}

	if err := svc.Block(ctx, "u1", "u2"); err != nil {
		t.Fatalf("block: %v", err)
	}
	// idempotent
	if err := svc.Block(ctx, "u1", "u2"); err != nil {
		t.Fatalf("repeat block: %v", err)
	}
	u, _ := svc.Get(ctx, "u1")
	if len(u.Blocked) != 1 || !u.HasBlocked("u2") {
		t.Fatalf("blocked list wrong: %v", u.Blocked)
	}
}

func TestTrustScore(t *testing.T) {
	users := memory.NewUserStore()
	svc := NewService(users, logger.Nop())
	ctx := context.Background()
	if err := users.CreateUser(ctx, &model.User{ID: "u1", TrustScore: 3}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	score, err := svc.TrustScore(ctx, "u1")
	if err != nil || score != 3 {
		t.Fatalf("score = %d, %v; want 3", score, err)
	}
	if _, err := svc.TrustScore(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown user: got %v, want ErrNotFound", err)
	}
}
