package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/metrics"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/store"
)

// Service implements the OTP login flow. OTP delivery is mocked: codes are
// written to the log only, real SMS/email delivery belongs to an external
// collaborator.
type Service struct {
	users  store.UserStore
	otps   OTPStore
	tokens *TokenManager
	log    *zap.SugaredLogger
}

func NewService(users store.UserStore, otps OTPStore, tokens *TokenManager, log *zap.SugaredLogger) *Service {
	return &Service{users: users, otps: otps, tokens: tokens, log: log}
}

func (s *Service) RequestOTP(ctx context.Context, email, phone string) error {
	if email == "" || phone == "" {
		return fmt.Errorf("%w: email and phone are required", apperr.ErrBadRequest)
	}
	otp := generateOTP()
	if err := s.otps.Put(ctx, otpKey(email, phone), otp); err != nil {
		return err
	}
	metrics.OTPIssued.Inc()
	// dev-only delivery
	s.log.Infow("otp issued", "email", email, "phone", phone, "otp", otp)
	return nil
}

// VerifyOTP checks and consumes the code, creates the user on first login
// and returns a signed bearer token.
func (s *Service) VerifyOTP(ctx context.Context, email, phone, otp string) (string, error) {
	key := otpKey(email, phone)
	stored, ok, err := s.otps.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(otp)) != 1 {
		return "", fmt.Errorf("%w: invalid otp", apperr.ErrUnauthorized)
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		u = &model.User{
			ID:         uuid.NewString(),
			Email:      email,
			Phone:      phone,
			Verified:   true,
			TrustScore: 0,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return "", err
		}
		s.log.Infow("user created", "user", u.ID, "email", email)
	case err != nil:
		return "", err
	case u.Phone != phone:
		return "", fmt.Errorf("%w: email and phone mismatch", apperr.ErrUnauthorized)
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Phone)
	if err != nil {
		return "", err
	}
	_ = s.otps.Delete(ctx, key)
	return token, nil
}
