package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeTimers struct {
	mu    sync.Mutex
	armed []*fakeTimer
	clock time.Time
}

func (f *fakeTimers) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fakeTimers) set(t time.Time) {
	f.mu.Lock()
	f.clock = t
	f.mu.Unlock()
}

func (f *fakeTimers) after(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.armed = append(f.armed, t)
	return t
}

func (f *fakeTimers) last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed[len(f.armed)-1]
}

func (f *fakeTimers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.armed)
}

type notification struct {
	userID   string
	reminder models.Reminder
	at       time.Time
}

type recordingNotifier struct {
	mu    sync.Mutex
	got   []notification
	err   error
	fired chan struct{}
}

func (n *recordingNotifier) NotifyReminder(_ context.Context, userID string, r models.Reminder, at time.Time) error {
	n.mu.Lock()
	n.got = append(n.got, notification{userID: userID, reminder: r, at: at})
	n.mu.Unlock()
	if n.fired != nil {
		n.fired <- struct{}{}
	}
	return n.err
}

func (n *recordingNotifier) calls() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.got...)
}

type staticSource []models.Reminder

func (s staticSource) FindAllReminders(context.Context) ([]models.Reminder, error) {
	return s, nil
}

func newTestScheduler(t *testing.T, start time.Time) (*Scheduler, *fakeTimers, *recordingNotifier) {
	t.Helper()
	timers := &fakeTimers{clock: start}
	notifier := &recordingNotifier{}
	s := NewScheduler(notifier, zap.NewNop(), WithClock(timers.now), WithAfterFunc(timers.after))
	t.Cleanup(s.Stop)
	return s, timers, notifier
}

func TestScheduleOneShotRearmsNextDay(t *testing.T) {
	s, timers, notifier := newTestScheduler(t, friday)
	r := reminderAt("08:00 AM", models.AllWeekdays()...)

	require.NoError(t, s.Schedule("u1", r))
	saturday := time.Date(2025, time.November, 29, 8, 0, 0, 0, time.UTC)
	next, ok := s.Next("u1", r.ID)
	require.True(t, ok)
	assert.Equal(t, saturday, next)
	assert.Equal(t, saturday.Sub(friday), timers.last().delay)

	timers.set(saturday)
	timers.last().fn()

	calls := notifier.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "u1", calls[0].userID)
	assert.Equal(t, saturday, calls[0].at)

	next, ok = s.Next("u1", r.ID)
	require.True(t, ok)
	assert.Equal(t, saturday.AddDate(0, 0, 1), next)
	assert.Equal(t, 24*time.Hour, timers.last().delay)
}

func TestScheduleOneShotFollowsWeekdays(t *testing.T) {
	s, timers, _ := newTestScheduler(t, friday)
	// Monday and Wednesday
	r := reminderAt("07:00", 2, 4)

	require.NoError(t, s.Schedule("u1", r))
	monday := time.Date(2025, time.December, 1, 7, 0, 0, 0, time.UTC)
	next, _ := s.Next("u1", r.ID)
	assert.Equal(t, monday, next)

	timers.set(monday)
	timers.last().fn()

	next, _ = s.Next("u1", r.ID)
	assert.Equal(t, monday.AddDate(0, 0, 2), next)
}

func TestScheduleRecurring(t *testing.T) {
	s, timers, notifier := newTestScheduler(t, friday)
	r := reminderAt("11:00 AM", models.AllWeekdays()...)
	r.RepeatIntervalHours = 2

	require.NoError(t, s.Schedule("u1", r))
	first := time.Date(2025, time.November, 28, 11, 0, 0, 0, time.UTC)

	timers.set(first)
	timers.last().fn()
	next, _ := s.Next("u1", r.ID)
	assert.Equal(t, first.Add(2*time.Hour), next)

	timers.set(first.Add(2 * time.Hour))
	timers.last().fn()
	next, _ = s.Next("u1", r.ID)
	assert.Equal(t, first.Add(4*time.Hour), next)

	assert.Len(t, notifier.calls(), 2)
	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Recurring)
}

func TestRescheduleReplacesTimer(t *testing.T) {
	s, timers, notifier := newTestScheduler(t, friday)
	r := reminderAt("09:00 PM", models.AllWeekdays()...)

	require.NoError(t, s.Schedule("u1", r))
	stale := timers.last()

	r.Time = "10:00 PM"
	require.NoError(t, s.Schedule("u1", r))

	assert.True(t, stale.stopped)
	assert.Len(t, s.Pending(), 1)

	// a stale callback that raced the stop must not deliver
	stale.fn()
	assert.Empty(t, notifier.calls())

	next, _ := s.Next("u1", r.ID)
	assert.Equal(t, 22, next.Hour())
}

func TestScheduleDisabledCancels(t *testing.T) {
	s, timers, _ := newTestScheduler(t, friday)
	r := reminderAt("09:00 PM", models.AllWeekdays()...)
	require.NoError(t, s.Schedule("u1", r))
	armed := timers.last()

	r.Enabled = false
	require.NoError(t, s.Schedule("u1", r))

	assert.True(t, armed.stopped)
	assert.Empty(t, s.Pending())
	_, ok := s.Next("u1", r.ID)
	assert.False(t, ok)
}

func TestScheduleUnresolvableIsSkipped(t *testing.T) {
	s, timers, _ := newTestScheduler(t, friday)

	err := s.Schedule("u1", reminderAt("whenever", models.AllWeekdays()...))
	assert.ErrorIs(t, err, ErrNoTrigger)

	err = s.Schedule("u1", reminderAt("08:00 AM"))
	assert.ErrorIs(t, err, ErrNoTrigger)

	assert.Empty(t, s.Pending())
	assert.Zero(t, timers.count())
}

func TestCancel(t *testing.T) {
	s, timers, _ := newTestScheduler(t, friday)
	require.NoError(t, s.Schedule("u1", reminderAt("09:00 PM", 6)))

	s.Cancel("u1", "r1")
	s.Cancel("u1", "unknown")
	s.Cancel("u2", "r1")

	assert.True(t, timers.last().stopped)
	assert.Empty(t, s.Pending())
}

func TestPendingIsOrdered(t *testing.T) {
	s, _, _ := newTestScheduler(t, friday)
	late := reminderAt("11:00 PM", models.AllWeekdays()...)
	late.ID = "late"
	early := reminderAt("11:00 AM", models.AllWeekdays()...)
	early.ID = "early"

	require.NoError(t, s.Schedule("u1", late))
	require.NoError(t, s.Schedule("u2", early))

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].ReminderID)
	assert.Equal(t, "u2", pending[0].UserID)
	assert.Equal(t, "late", pending[1].ReminderID)
}

func TestStop(t *testing.T) {
	s, timers, notifier := newTestScheduler(t, friday)
	require.NoError(t, s.Schedule("u1", reminderAt("09:00 PM", 6)))
	armed := timers.last()

	s.Stop()
	s.Stop()

	assert.True(t, armed.stopped)
	assert.Empty(t, s.Pending())
	assert.ErrorIs(t, s.Schedule("u1", reminderAt("09:00 PM", 6)), ErrStopped)

	armed.fn()
	assert.Empty(t, notifier.calls())
}

func TestLoad(t *testing.T) {
	s, _, _ := newTestScheduler(t, friday)
	disabled := reminderAt("09:00 PM", 6)
	disabled.ID = "off"
	disabled.Enabled = false
	broken := reminderAt("later", 6)
	broken.ID = "broken"
	ok := reminderAt("09:00 PM", 6)
	ok.ID = "ok"
	ok.UserID = "u9"

	armed, err := s.Load(context.Background(), staticSource{disabled, broken, ok})

	require.NoError(t, err)
	assert.Equal(t, 1, armed)
	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "u9", pending[0].UserID)
}

func TestNotifierFailureKeepsSchedule(t *testing.T) {
	s, timers, notifier := newTestScheduler(t, friday)
	notifier.err = errors.New("queue down")
	require.NoError(t, s.Schedule("u1", reminderAt("09:00 PM", models.AllWeekdays()...)))

	timers.set(time.Date(2025, time.November, 28, 21, 0, 0, 0, time.UTC))
	timers.last().fn()

	assert.Len(t, notifier.calls(), 1)
	assert.Len(t, s.Pending(), 1)
}

func TestRealTimersDoNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	// the clock sits just before the trigger so the real timer fires quickly
	trigger := time.Date(2025, time.November, 28, 21, 0, 0, 0, time.UTC)
	clock := trigger.Add(-20 * time.Millisecond)
	notifier := &recordingNotifier{fired: make(chan struct{}, 1)}
	s := NewScheduler(notifier, zap.NewNop(), WithClock(func() time.Time { return clock }))

	require.NoError(t, s.Schedule("u1", reminderAt("09:00 PM", models.AllWeekdays()...)))

	select {
	case <-notifier.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("reminder did not fire")
	}
	s.Stop()

	calls := notifier.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, trigger, calls[0].at)
}

func TestScheduleUsesLocation(t *testing.T) {
	bogota := time.FixedZone("COT", -5*60*60)
	// Saturday 03:00 UTC is still Friday 22:00 in Bogota.
	clock := time.Date(2025, time.November, 29, 3, 0, 0, 0, time.UTC)
	timers := &fakeTimers{clock: clock}
	s := NewScheduler(&recordingNotifier{}, zap.NewNop(),
		WithClock(timers.now), WithAfterFunc(timers.after), WithLocation(bogota))
	t.Cleanup(s.Stop)

	morning := reminderAt("08:00 AM", models.AllWeekdays()...)
	morning.ID = "morning"
	require.NoError(t, s.Schedule("u1", morning))
	next, ok := s.Next("u1", "morning")
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2025, time.November, 29, 8, 0, 0, 0, bogota)), next)
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 10*time.Hour, timers.last().delay)

	// Friday only, resolved on Bogota's Friday rather than the UTC Saturday
	late := reminderAt("11:00 PM", 6)
	late.ID = "late"
	require.NoError(t, s.Schedule("u1", late))
	next, _ = s.Next("u1", "late")
	assert.True(t, next.Equal(time.Date(2025, time.November, 28, 23, 0, 0, 0, bogota)), next)
	assert.Equal(t, time.Hour, timers.last().delay)
}

func TestSameReminderIDAcrossUsers(t *testing.T) {
	s, timers, _ := newTestScheduler(t, friday)
	require.NoError(t, s.Schedule("alice", reminderAt("09:00 PM", models.AllWeekdays()...)))
	alice := timers.last()
	require.NoError(t, s.Schedule("mallory", reminderAt("10:00 PM", models.AllWeekdays()...)))

	assert.False(t, alice.stopped)
	assert.Len(t, s.Pending(), 2)

	s.Cancel("mallory", "r1")
	assert.False(t, alice.stopped)
	next, ok := s.Next("alice", "r1")
	require.True(t, ok)
	assert.Equal(t, 21, next.Hour())
	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].UserID)
	assert.Equal(t, "r1", pending[0].ReminderID)
}

func TestLateRecurringFiringSkipsMissedSlots(t *testing.T) {
	s, timers, notifier := newTestScheduler(t, friday)
	r := reminderAt("11:00 AM", models.AllWeekdays()...)
	r.RepeatIntervalHours = 2
	require.NoError(t, s.Schedule("u1", r))
	first := time.Date(2025, time.November, 28, 11, 0, 0, 0, time.UTC)

	// the process stalled for five hours past the trigger
	timers.set(first.Add(5 * time.Hour))
	timers.last().fn()

	next, _ := s.Next("u1", r.ID)
	assert.Equal(t, first.Add(6*time.Hour), next)
	assert.Equal(t, time.Hour, timers.last().delay)
	calls := notifier.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, first, calls[0].at)
}

func TestLateOneShotFiringResumesFromNow(t *testing.T) {
	s, timers, _ := newTestScheduler(t, friday)
	r := reminderAt("09:00 PM", models.AllWeekdays()...)
	require.NoError(t, s.Schedule("u1", r))

	sunday := time.Date(2025, time.November, 30, 10, 0, 0, 0, time.UTC)
	timers.set(sunday)
	timers.last().fn()

	next, _ := s.Next("u1", r.ID)
	assert.Equal(t, time.Date(2025, time.November, 30, 21, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 11*time.Hour, timers.last().delay)
}

func TestNextSlot(t *testing.T) {
	from := time.Date(2025, time.November, 28, 11, 0, 0, 0, time.UTC)
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{from, from.Add(2 * time.Hour)},
		{from.Add(2 * time.Hour), from.Add(4 * time.Hour)},
		{from.Add(5*time.Hour + 30*time.Minute), from.Add(6 * time.Hour)},
		{from.Add(-time.Hour), from.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextSlot(from, 2*time.Hour, tt.now), tt.now)
	}
}
