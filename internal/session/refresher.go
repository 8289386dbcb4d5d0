package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultRefreshInterval = 15 * time.Minute

// Refresher renews the access token on a fixed interval and ends the session
// on the first failure.
type Refresher struct {
	Session  *Session
	Refresh  func(ctx context.Context) error
	Interval time.Duration
	Logger   *zap.Logger
}

// Run blocks until ctx is done or a refresh fails.
func (r *Refresher) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !r.Session.Authenticated() {
			continue
		}
		if err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("token refresh failed", zap.Error(err))
			if endErr := r.Session.End(context.WithoutCancel(ctx), "refresh failed"); endErr != nil {
				logger.Warn("end session", zap.Error(endErr))
			}
			return fmt.Errorf("refresh session: %w", err)
		}
		logger.Debug("token refreshed")
	}
}
