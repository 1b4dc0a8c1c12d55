package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/domain"
	"github.com/joanne1229/DressToWeather/internal/weather"
)

// ErrStopped is returned by Schedule after Stop.
var ErrStopped = errors.New("scheduler stopped")

const defaultFireTimeout = 30 * time.Second

// Preferences is the read side of the preference store.
type Preferences interface {
	Get(userID int64) (domain.UserPreference, bool)
}

// Notifier delivers a report built from snap to the user's destination.
// telegram.Sender implements this.
type Notifier interface {
	Notify(ctx context.Context, pref domain.UserPreference, snap weather.Snapshot) error
}

// Options tune a Scheduler. Zero values pick defaults.
type Options struct {
	Clock       clockwork.Clock
	Location    *time.Location // reference zone for preferred times
	FireTimeout time.Duration
}

// Scheduler keeps at most one recurring daily task per user.
type Scheduler struct {
	prefs    Preferences
	weather  weather.Provider
	notifier Notifier
	log      *zap.Logger

	clock       clockwork.Clock
	loc         *time.Location
	fireTimeout time.Duration

	root    context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	tasks   map[int64]*task
	stopped bool

	// testHookArmed, if set, runs once a task's timer is registered.
	testHookArmed func(userID int64, at time.Time)
}

// task is one armed recurring delivery. next is guarded by Scheduler.mu.
type task struct {
	id     uuid.UUID
	userID int64
	next   time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler. Tasks run until Cancel, re-Schedule or Stop.
func New(prefs Preferences, provider weather.Provider, notifier Notifier, log *zap.Logger, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FireTimeout <= 0 {
		opts.FireTimeout = defaultFireTimeout
	}
	root, stop := context.WithCancel(context.Background())
	return &Scheduler{
		prefs:       prefs,
		weather:     provider,
		notifier:    notifier,
		log:         log,
		clock:       opts.Clock,
		loc:         opts.Location,
		fireTimeout: opts.FireTimeout,
		root:        root,
		stopAll:     stop,
		tasks:       make(map[int64]*task),
	}
}

// Schedule arms the daily delivery for userID at the given wall-clock time,
// replacing any task the user already has. The first fire is strictly in the
// future and at most 24h away.
func (s *Scheduler) Schedule(userID int64, at domain.TimeOfDay) (domain.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return domain.ScheduledTask{}, ErrStopped
	}

	// The old task is cancelled before the new one is installed; a replacement
	// waits for its predecessor to exit before its first fire.
	var prev <-chan struct{}
	if old, ok := s.tasks[userID]; ok {
		old.cancel()
		prev = old.done
		delete(s.tasks, userID)
	}

	ctx, cancel := context.WithCancel(s.root)
	t := &task{
		id:     uuid.New(),
		userID: userID,
		next:   domain.NextOccurrence(s.clock.Now(), at, s.loc),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.tasks[userID] = t

	s.wg.Add(1)
	go s.run(ctx, t, prev)

	s.log.Info("schedule armed",
		zap.Int64("userID", userID),
		zap.String("task", t.id.String()),
		zap.String("at", at.String()),
		zap.Time("nextFireAt", t.next),
	)
	return domain.ScheduledTask{ID: t.id, UserID: userID, NextFireAt: t.next}, nil
}

// Cancel stops the user's task. It reports whether one was armed.
func (s *Scheduler) Cancel(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[userID]
	if !ok {
		return false
	}
	t.cancel()
	delete(s.tasks, userID)
	s.log.Info("schedule cancelled", zap.Int64("userID", userID), zap.String("task", t.id.String()))
	return true
}

// Rehydrate arms a task for every stored preference and returns how many were armed.
func (s *Scheduler) Rehydrate(prefs []domain.UserPreference) int {
	n := 0
	for _, p := range prefs {
		if _, err := s.Schedule(p.UserID, p.PreferredTime); err != nil {
			s.log.Warn("rehydrate failed", zap.Int64("userID", p.UserID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// NextFireAt returns when the user's task fires next.
func (s *Scheduler) NextFireAt(userID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[userID]
	if !ok {
		return time.Time{}, false
	}
	return t.next, true
}

// Tasks returns the armed tasks ordered by next fire time.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	res := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		res = append(res, domain.ScheduledTask{ID: t.id, UserID: t.userID, NextFireAt: t.next})
	}
	s.mu.Unlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].NextFireAt.Equal(res[j].NextFireAt) {
			return res[i].UserID < res[j].UserID
		}
		return res[i].NextFireAt.Before(res[j].NextFireAt)
	})
	return res
}

// Stop cancels every task and waits for in-flight fire actions to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.tasks = make(map[int64]*task)
	s.mu.Unlock()

	s.stopAll()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// run sleeps until the task's next fire time, fires, and re-arms at
// previous fire time + 24h until ctx is cancelled.
func (s *Scheduler) run(ctx context.Context, t *task, prev <-chan struct{}) {
	defer s.wg.Done()
	defer close(t.done)

	// Even a cancelled task waits out its predecessor, so a chain of
	// replacements never lets two fires for one user overlap. Every
	// predecessor is already cancelled and its fire is bounded by fireTimeout.
	if prev != nil {
		<-prev
	}
	if ctx.Err() != nil {
		return
	}

	for {
		s.mu.Lock()
		next := t.next
		s.mu.Unlock()

		if !s.sleepUntil(ctx, t.userID, next) {
			return
		}
		s.fire(ctx, t)

		// Cancelled while firing: the fire completed but must not re-arm.
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		t.next = next.Add(domain.Day)
		s.mu.Unlock()
	}
}

// sleepUntil blocks until at or ctx cancellation. It reports whether at was reached.
func (s *Scheduler) sleepUntil(ctx context.Context, userID int64, at time.Time) bool {
	if d := at.Sub(s.clock.Now()); d > 0 {
		timer := s.clock.NewTimer(d)
		if s.testHookArmed != nil {
			s.testHookArmed(userID, at)
		}
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.Chan():
		}
	}
	return ctx.Err() == nil
}

// fire performs one delivery. It re-reads the preference by key so updates made
// since arming are honored. Every failure is logged and skipped.
func (s *Scheduler) fire(ctx context.Context, t *task) {
	log := s.log.With(zap.Int64("userID", t.userID), zap.String("task", t.id.String()))

	pref, ok := s.prefs.Get(t.userID)
	if !ok {
		log.Info("no preference at fire time; skipping")
		return
	}

	// An in-flight fire outlives cancellation of its task.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fireTimeout)
	defer cancel()

	snap, err := s.weather.FetchCurrent(fctx, pref.Location)
	if err != nil {
		log.Warn("scheduled fetch failed; skipping cycle", zap.String("location", pref.Location), zap.Error(err))
		return
	}
	if err := s.notifier.Notify(fctx, pref, snap); err != nil {
		log.Error("scheduled delivery failed", zap.Error(err))
		return
	}
	log.Info("scheduled report delivered", zap.String("location", snap.Location))
}
