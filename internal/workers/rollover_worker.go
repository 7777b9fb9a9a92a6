package workers

import (
	"context"
	"time"

	"mediminds/internal/session"

	"go.uber.org/zap"
)

// DayRolloverWorker re-derives reminders for sessions whose calendar day
// has ended.
type DayRolloverWorker struct {
	sessions interface{ Sessions() []*session.Session }
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewDayRolloverWorker(manager *session.Manager, interval time.Duration, logger *zap.Logger) *DayRolloverWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DayRolloverWorker{
		sessions: manager,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

func (w *DayRolloverWorker) Name() string {
	return "day-rollover"
}

func (w *DayRolloverWorker) Interval() time.Duration {
	return w.interval
}

func (w *DayRolloverWorker) Run(ctx context.Context) error {
	now := w.now()
	rolled := 0
	for _, s := range w.sessions.Sessions() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Rollover(now) {
			rolled++
		}
	}
	if rolled > 0 {
		w.logger.Info("sessions rolled over", zap.Int("sessions", rolled))
	}
	return nil
}
