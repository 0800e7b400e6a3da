package reminders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jghoshh/bienestar/backend/metrics"
	"github.com/jghoshh/bienestar/backend/models"
	"go.uber.org/zap"
)

// ErrStopped is returned when scheduling on a scheduler that has been stopped.
var ErrStopped = errors.New("scheduler stopped")

// notifyTimeout bounds a single delivery hand-off to the notifier.
const notifyTimeout = 10 * time.Second

// Notifier receives reminders when their trigger time is reached.
type Notifier interface {
	NotifyReminder(ctx context.Context, userID string, reminder models.Reminder, at time.Time) error
}

// ReminderSource lists every stored reminder across users.
type ReminderSource interface {
	FindAllReminders(ctx context.Context) ([]models.Reminder, error)
}

// Timer is the part of *time.Timer the scheduler relies on.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Pending describes one armed reminder.
type Pending struct {
	ReminderID string    `json:"reminderId"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Next       time.Time `json:"next"`
	Recurring  bool      `json:"recurring"`
}

type entry struct {
	userID     string
	reminder   models.Reminder
	next       time.Time
	timer      Timer
	generation uint64
}

// Scheduler keeps one timer per reminder, keyed by owner and reminder id.
// One-shot reminders are re-resolved after each firing so the next enabled
// weekday is armed; recurring reminders fire every RepeatIntervalHours from
// their first trigger.
type Scheduler struct {
	mu         sync.Mutex
	entries    map[string]*entry
	generation uint64
	stopped    bool
	inflight   sync.WaitGroup

	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
	after    AfterFunc
}

func entryKey(userID, reminderID string) string {
	return userID + "/" + reminderID
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLocation resolves reminder times of day and weekdays in loc instead
// of the clock's own location.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(after AfterFunc) Option {
	return func(s *Scheduler) { s.after = after }
}

// NewScheduler creates a scheduler that hands fired reminders to notifier.
func NewScheduler(notifier Notifier, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries:  make(map[string]*entry),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		after: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load arms every enabled reminder found in src. Reminders that cannot be
// resolved are skipped.
func (s *Scheduler) Load(ctx context.Context, src ReminderSource) (int, error) {
	all, err := src.FindAllReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading reminders: %w", err)
	}
	armed := 0
	for _, r := range all {
		if !r.Enabled {
			continue
		}
		if err := s.Schedule(r.UserID, r); err != nil {
			if errors.Is(err, ErrStopped) {
				return armed, err
			}
			continue
		}
		armed++
	}
	return armed, nil
}

// Schedule arms (or re-arms) the reminder. A disabled reminder is cancelled.
// ErrNoTrigger means the reminder was not scheduled.
func (s *Scheduler) Schedule(userID string, reminder models.Reminder) error {
	if !reminder.Enabled {
		s.Cancel(userID, reminder.ID)
		return nil
	}

	at, err := NextTrigger(reminder, s.clock())
	if err != nil {
		s.Cancel(userID, reminder.ID)
		s.logger.Warn("reminder not scheduled",
			zap.String("reminder_id", reminder.ID),
			zap.String("time", reminder.Time),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	key := entryKey(userID, reminder.ID)
	if old, ok := s.entries[key]; ok {
		old.timer.Stop()
	}
	e := &entry{userID: userID, reminder: reminder}
	s.armLocked(e, at)
	s.entries[key] = e
	metrics.SetRemindersArmed(len(s.entries))

	s.logger.Debug("reminder scheduled",
		zap.String("reminder_id", reminder.ID),
		zap.String("user_id", userID),
		zap.Time("next", at),
		zap.Duration("repeat", RepeatInterval(reminder)))
	return nil
}

// Cancel disarms a user's reminder. Unknown ids are ignored.
func (s *Scheduler) Cancel(userID, reminderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey(userID, reminderID)
	if e, ok := s.entries[key]; ok {
		e.timer.Stop()
		delete(s.entries, key)
		metrics.SetRemindersArmed(len(s.entries))
	}
}

// Next returns the armed trigger time of a reminder.
func (s *Scheduler) Next(userID, reminderID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryKey(userID, reminderID)]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

// Pending lists armed reminders ordered by next trigger time.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	out := make([]Pending, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Pending{
			ReminderID: e.reminder.ID,
			UserID:     e.userID,
			Title:      e.reminder.Title,
			Next:       e.next,
			Recurring:  RepeatInterval(e.reminder) > 0,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// Stop disarms every reminder and waits for in-flight notifications.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, key)
	}
	metrics.SetRemindersArmed(0)
	s.mu.Unlock()

	s.inflight.Wait()
}

// clock is the current time in the scheduling location.
func (s *Scheduler) clock() time.Time {
	now := s.now()
	if s.location != nil {
		now = now.In(s.location)
	}
	return now
}

// armLocked must be called with s.mu held.
func (s *Scheduler) armLocked(e *entry, at time.Time) {
	s.generation++
	gen := s.generation
	key := entryKey(e.userID, e.reminder.ID)
	e.next = at
	e.generation = gen
	e.timer = s.after(at.Sub(s.now()), func() { s.fire(key, gen) })
}

// nextSlot is the first from+k*interval (k >= 1) strictly after now.
func nextSlot(from time.Time, interval time.Duration, now time.Time) time.Time {
	next := from.Add(interval)
	if !next.After(now) {
		next = next.Add((now.Sub(next)/interval + 1) * interval)
	}
	return next
}

func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.generation != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	defer s.inflight.Done()

	firedAt := e.next
	userID := e.userID
	reminder := e.reminder
	reminderID := reminder.ID

	// a late firing (process stall) is delivered once, then the schedule
	// resumes from now
	now := s.clock()
	base := firedAt
	if now.After(base) {
		base = now
	}
	if interval := RepeatInterval(reminder); interval > 0 {
		s.armLocked(e, nextSlot(firedAt, interval, now))
	} else if next, err := NextTrigger(reminder, base); err == nil {
		s.armLocked(e, next)
	} else {
		delete(s.entries, key)
		metrics.SetRemindersArmed(len(s.entries))
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyReminder(ctx, userID, reminder, firedAt); err != nil {
		metrics.RecordReminderFired(false)
		s.logger.Error("reminder notification failed",
			zap.String("reminder_id", reminderID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	metrics.RecordReminderFired(true)
	s.logger.Info("reminder fired",
		zap.String("reminder_id", reminderID),
		zap.String("user_id", userID),
		zap.Time("at", firedAt))
}
