package user

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/store"
)

type Service struct {
	users store.UserStore
	log   *zap.SugaredLogger
}

func NewService(users store.UserStore, log *zap.SugaredLogger) *Service {
	return &Service{users: users, log: log}
}

func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *Service) TrustScore(ctx context.Context, userID string) (int, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.TrustScore, nil
}

// Block is idempotent; blocking yourself is rejected.
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return fmt.Errorf("%w: cannot block yourself", apperr.ErrInvalidTarget)
	}
	if _, err := s.users.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.users.BlockUser(ctx, userID, targetID); err != nil {
		return err
	}
	s.log.Infow("user blocked", "user", userID, "target", targetID)
	return nil
}
