package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/coffeeshop/account-service/app/errors"
	"github.com/coffeeshop/account-service/app/metrics"
)

// UserSweeper is the service dependency of the sweeper.
type UserSweeper interface {
	SweepUnverified(ctx context.Context, olderThan time.Duration) (int, *appErrors.AppError)
}

// Sweeper periodically removes unverified accounts past their retention
// window.
type Sweeper struct {
	users     UserSweeper
	interval  time.Duration
	retention time.Duration
	log       zerolog.Logger
}

func New(users UserSweeper, interval, retention time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		users:     users,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Run starts the sweep loop. One sweep fires immediately so a restart does
// not postpone cleanup by a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info().
		Dur("interval", s.interval).
		Dur("retention", s.retention).
		Msg("sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, appErr := s.users.SweepUnverified(ctx, s.retention)
	if appErr != nil {
		s.log.Error().Err(appErr).Msg("sweep of unverified users failed")
		return
	}
	if deleted > 0 {
		metrics.RecordSweepDeleted(deleted)
		s.log.Info().Int("deleted", deleted).Msg("swept unverified users")
	}
}
