package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/logger"
	"github.com/localgroup/localgroup-server/internal/store/memory"
)

// peekOTP reads the pending code straight out of the store; delivery is
// log-only so tests have no other channel to receive it on.
func peekOTP(t *testing.T, s *MemoryOTPStore, email, phone string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[otpKey(email, phone)]
	if !ok {
		t.Fatalf("no pending otp for %s/%s", email, phone)
	}
	return e.otp
}

func newAuthService() (*Service, *memory.UserStore, *MemoryOTPStore, *TokenManager) {
	users := memory.NewUserStore()
	otps := NewMemoryOTPStore()
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewService(users, otps, tokens, logger.Nop()), users, otps, tokens
}

func TestRequestOTPValidation(t *testing.T) {
	svc, _, _, _ := newAuthService()
	ctx := context.Background()
	if err := svc.RequestOTP(ctx, "", "123"); !errors.Is(err, apperr.ErrBadRequest) {
		t.Fatalf("missing email: got %v, want ErrBadRequest", err)
	}
	if err := svc.RequestOTP(ctx, "a@example.com", ""); !errors.Is(err, apperr.ErrBadRequest) {
		t.Fatalf("missing phone: got %v, want ErrBadRequest", err)
	}
}

func TestVerifyOTPFirstLoginCreatesUser(t *testing.T) {
	svc, users, otps, tokens := newAuthService()
	ctx := context.Background()

	if err := svc.RequestOTP(ctx, "a@example.com", "+111"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := peekOTP(t, otps, "a@example.com", "+111")
	if len(code) != 6 {
		t.Fatalf("otp %q is not 6 digits", code)
	}

	token, err := svc.VerifyOTP(ctx, "a@example.com", "+111", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	u, err := users.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if claims.UserID != u.ID || claims.Email != "a@example.com" || claims.Phone != "+111" {
		t.Fatalf("claims %+v do not match user %s", claims, u.ID)
	}
	if !u.Verified {
		t.Fatal("first login must mark the user verified")
	}

	// the code is consumed on success
	if _, err := svc.VerifyOTP(ctx, "a@example.com", "+111", code); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("replayed otp: got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	svc, _, otps, _ := newAuthService()
	ctx := context.Background()
	if err := svc.RequestOTP(ctx, "a@example.com", "+111"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := peekOTP(t, otps, "a@example.com", "+111")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := svc.VerifyOTP(ctx, "a@example.com", "+111", wrong); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("wrong code: got %v, want ErrUnauthorized", err)
	}
	// a failed attempt does not consume the code
	if _, err := svc.VerifyOTP(ctx, "a@example.com", "+111", code); err != nil {
		t.Fatalf("correct code after failure: %v", err)
	}
}

func TestVerifyOTPPhoneMismatchForExistingUser(t *testing.T) {
	svc, _, otps, _ := newAuthService()
	ctx := context.Background()

	if err := svc.RequestOTP(ctx, "a@example.com", "+111"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if _, err := svc.VerifyOTP(ctx, "a@example.com", "+111", peekOTP(t, otps, "a@example.com", "+111")); err != nil {
		t.Fatalf("first login: %v", err)
	}

	// same email, different phone
	if err := svc.RequestOTP(ctx, "a@example.com", "+222"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := peekOTP(t, otps, "a@example.com", "+222")
	if _, err := svc.VerifyOTP(ctx, "a@example.com", "+222", code); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("phone mismatch: got %v, want ErrUnauthorized", err)
	}
}

func TestMemoryOTPStoreExpiry(t *testing.T) {
	s := NewMemoryOTPStore()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.Put(ctx, "k", "123456"); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = base.Add(otpTTL - time.Second)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("code expired early")
	}
	now = base.Add(otpTTL + time.Second)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("code survived past its ttl")
	}
}

func TestTokenManagerRejectsBadTokens(t *testing.T) {
	m := NewTokenManager("secret-a", time.Hour)
	other := NewTokenManager("secret-b", time.Hour)

	token, err := m.Issue("u1", "a@example.com", "+111")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Validate(token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("foreign secret: got %v, want ErrUnauthorized", err)
	}
	if _, err := m.Validate("not-a-token"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("garbage token: got %v, want ErrUnauthorized", err)
	}

	expired := NewTokenManager("secret-a", -time.Minute)
	token, _ = expired.Issue("u1", "a@example.com", "+111")
	if _, err := m.Validate(token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expired token: got %v, want ErrUnauthorized", err)
	}
}
