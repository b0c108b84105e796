package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/service"
)

// ReminderWorker periodically sweeps due schedule reminders. The sweep
// itself is idempotent (reminders are claimed before dispatch), so an
// overlapping or restarted worker is harmless.
type ReminderWorker struct {
	scheduler *service.PracticeScheduler
	interval  time.Duration
	log       zerolog.Logger
}

func NewReminderWorker(scheduler *service.PracticeScheduler, interval time.Duration, log zerolog.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{
		scheduler: scheduler,
		interval:  interval,
		log:       log.With().Str("component", "reminder_worker").Logger(),
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ReminderWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return
		case <-ticker.C:
			sent, err := w.scheduler.SweepReminders(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("reminder sweep failed")
				}
				continue
			}
			if sent > 0 {
				w.log.Info().Int("sent", sent).Msg("reminders dispatched")
			}
		}
	}
}
