package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredAccountDeleter removes accounts whose expiration date has passed.
type ExpiredAccountDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AccountSweeper periodically purges expired accounts. The default interval
// approximates a monthly run; each sweep is idempotent, so overlapping or
// repeated runs delete nothing extra.
type AccountSweeper struct {
	accounts ExpiredAccountDeleter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewAccountSweeper(accounts ExpiredAccountDeleter, logger *slog.Logger, interval time.Duration) *AccountSweeper {
	return &AccountSweeper{
		accounts: accounts,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (s *AccountSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("account sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("account sweeper context cancelled")
			return
		}
	}
}

// Sweep deletes every account whose expiration date is at or before now and
// logs the count removed.
func (s *AccountSweeper) Sweep(ctx context.Context) {
	s.logger.Info("starting expired account sweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := s.accounts.DeleteExpired(sweepCtx, time.Now())
	if err != nil {
		s.logger.Error("failed to sweep expired accounts", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		s.logger.Info("expired account sweep completed", slog.Int64("accounts_deleted", deleted))
	}
}

// Stop signals the sweeper to stop
func (s *AccountSweeper) Stop() {
	close(s.stopCh)
}
