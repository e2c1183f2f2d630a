package worker

import (
	"context"
	"time"

	"github.com/rollcall/rollcall-backend/internal/metrics"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rollcall/rollcall-backend/internal/service"
	"github.com/rs/zerolog"
)

// SweepWorker periodically deactivates sessions whose expiry passed without
// anyone resolving them. Resolution already flips stale sessions lazily; the
// sweeper is a backstop so abandoned sessions do not stay active forever.
type SweepWorker struct {
	sessions       repository.SessionRepository
	sessionService *service.SessionService
	interval       time.Duration
	log            zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker.
func NewSweepWorker(sessions repository.SessionRepository, sessionService *service.SessionService, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sessions:       sessions,
		sessionService: sessionService,
		interval:       interval,
		log:            log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	courses, err := w.sessions.DeactivateExpired(ctx, time.Now().UnixMilli())
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed, will retry next tick")
		return
	}
	if len(courses) == 0 {
		return
	}

	for _, code := range courses {
		metrics.SessionsExpired.WithLabelValues("sweep").Inc()
		w.sessionService.EvictCurrent(ctx, code)
	}

	w.log.Info().Int("count", len(courses)).Msg("Expired sessions deactivated")
}
