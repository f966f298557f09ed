// Package logger hands out the process-wide zap logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

type Config struct {
	Development bool
}

var (
	buildOnce sync.Once
	shared    *zap.SugaredLogger
)

// New builds the shared sugared logger on first call; later calls get
// the same instance regardless of cfg.
func New(cfg Config) (*zap.SugaredLogger, error) {
	var buildErr error
	buildOnce.Do(func() {
		build := zap.NewProduction
		if cfg.Development {
			build = zap.NewDevelopment
		}
		l, err := build()
		if err != nil {
			buildErr = err
			return
		}
		shared = l.Sugar()
	})
	return shared, buildErr
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
