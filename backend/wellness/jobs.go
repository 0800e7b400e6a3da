package wellness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jghoshh/bienestar/backend/metrics"
	"github.com/jghoshh/bienestar/backend/queue"
	storage "github.com/jghoshh/bienestar/backend/storage/persistent"
	"github.com/jghoshh/bienestar/backend/streak"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	streakJobName    = "streak_at_risk"
	streakJobTimeout = 5 * time.Minute
)

// StreakWatcher warns users whose streak ends tonight unless they log.
type StreakWatcher struct {
	svc       *Service
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewStreakWatcher(svc *Service, publisher queue.Publisher, logger *zap.Logger) *StreakWatcher {
	return &StreakWatcher{svc: svc, publisher: publisher, logger: logger}
}

// Run checks every user once and returns how many were warned. A failure
// for one user does not stop the walk; the failures are joined.
func (w *StreakWatcher) Run(ctx context.Context) (int, error) {
	ids, err := w.svc.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}
	today := w.svc.Today()
	warned := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sent, err := w.check(ctx, id, today)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", id, err))
			continue
		}
		if sent {
			warned++
		}
	}
	return warned, errors.Join(errs...)
}

func (w *StreakWatcher) check(ctx context.Context, userID, today string) (bool, error) {
	stats, err := w.svc.store.FindStats(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if !streak.AtRisk(*stats, today) {
		return false, nil
	}
	if _, err := w.svc.store.FindRecord(ctx, userID, today); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	user, err := w.svc.store.FindUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	body := fmt.Sprintf("You have not logged anything today. Log now to keep your %d day streak alive.", stats.CurrentStreak)
	msg := queue.NewNotification(queue.KindStreakAtRisk, user.Email, "Your streak is at risk!", body)
	if err := w.publisher.PublishNotification(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

// Start runs the watcher on a standard five-field cron schedule in the
// service's time zone. The caller stops the returned cron.
func (w *StreakWatcher) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(w.svc.location))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), streakJobTimeout)
		defer cancel()

		start := time.Now()
		warned, err := w.Run(ctx)
		metrics.RecordJobRun(streakJobName, time.Since(start), err == nil)
		if err != nil {
			w.logger.Error("streak check failed", zap.Int("warned", warned), zap.Error(err))
			return
		}
		w.logger.Info("streak check done", zap.Int("warned", warned))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid streak check schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
