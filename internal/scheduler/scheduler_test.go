package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/domain"
	"github.com/joanne1229/DressToWeather/internal/store"
	"github.com/joanne1229/DressToWeather/internal/weather"
)

const waitTimeout = 2 * time.Second

func at(day, hh, mm int) time.Time {
	return time.Date(2025, time.March, day, hh, mm, 0, 0, time.UTC)
}

type fakeProvider struct {
	mu     sync.Mutex
	calls  []string
	fail   bool
	block  chan struct{}
	called chan string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{called: make(chan string, 16)}
}

func (f *fakeProvider) FetchCurrent(_ context.Context, location string) (weather.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, location)
	fail, block := f.fail, f.block
	f.mu.Unlock()

	f.called <- location
	if block != nil {
		<-block
	}
	if fail {
		return weather.Snapshot{}, &domain.FetchFailure{Location: location, Err: fmt.Errorf("provider down")}
	}
	return weather.Snapshot{Location: location + ", US", Temperature: 70, Condition: "clear sky"}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type delivery struct {
	pref domain.UserPreference
	snap weather.Snapshot
}

type fakeNotifier struct{ sent chan delivery }

func (n *fakeNotifier) Notify(_ context.Context, pref domain.UserPreference, snap weather.Snapshot) error {
	n.sent <- delivery{pref: pref, snap: snap}
	return nil
}

type armed struct {
	userID int64
	at     time.Time
}

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type harness struct {
	clock    fakeClock
	prefs    *store.PreferenceStore
	provider *fakeProvider
	notifier *fakeNotifier
	sched    *Scheduler
	armed    chan armed
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	h := &harness{
		clock:    clockwork.NewFakeClockAt(now),
		prefs:    store.NewPreferenceStore(nil),
		provider: newFakeProvider(),
		notifier: &fakeNotifier{sent: make(chan delivery, 16)},
		armed:    make(chan armed, 256),
	}
	h.sched = New(h.prefs, h.provider, h.notifier, zap.NewNop(), Options{Clock: h.clock})
	h.sched.testHookArmed = func(userID int64, when time.Time) {
		select {
		case h.armed <- armed{userID: userID, at: when}:
		default:
		}
	}
	t.Cleanup(func() {
		if h.provider.block != nil {
			select {
			case <-h.provider.block:
			default:
				close(h.provider.block)
			}
		}
		h.sched.Stop()
	})
	return h
}

func (h *harness) register(t *testing.T, userID int64, location, clock string) domain.ScheduledTask {
	t.Helper()
	p, err := h.prefs.Set(context.Background(), userID, "@u", location, clock, nil)
	require.NoError(t, err)
	task, err := h.sched.Schedule(userID, p.PreferredTime)
	require.NoError(t, err)
	return task
}

// waitArmed blocks until userID's timer for when is registered.
func (h *harness) waitArmed(t *testing.T, userID int64, when time.Time) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case a := <-h.armed:
			if a.userID == userID && a.at.Equal(when) {
				return
			}
		case <-deadline:
			t.Fatalf("user %d was never armed for %s", userID, when)
		}
	}
}

func (h *harness) waitDelivery(t *testing.T) delivery {
	t.Helper()
	select {
	case d := <-h.notifier.sent:
		return d
	case <-time.After(waitTimeout):
		t.Fatal("no delivery")
	}
	return delivery{}
}

func (h *harness) waitFetch(t *testing.T) string {
	t.Helper()
	select {
	case loc := <-h.provider.called:
		return loc
	case <-time.After(waitTimeout):
		t.Fatal("no fetch")
	}
	return ""
}

func (h *harness) noDelivery(t *testing.T) {
	t.Helper()
	select {
	case d := <-h.notifier.sent:
		t.Fatalf("unexpected delivery to %d", d.pref.UserID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedule_Rollover(t *testing.T) {
	h := newHarness(t, at(1, 9, 0))
	task := h.register(t, 1, "Austin", "08:00")
	assert.Equal(t, at(2, 8, 0), task.NextFireAt)
	assert.Equal(t, int64(1), task.UserID)
	assert.NotEqual(t, uuid.Nil, task.ID)
}

func TestSchedule_SameDay(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	task := h.register(t, 1, "Austin", "08:00")
	assert.Equal(t, at(1, 8, 0), task.NextFireAt)

	next, ok := h.sched.NextFireAt(1)
	require.True(t, ok)
	assert.Equal(t, at(1, 8, 0), next)
}

func TestSchedule_AtMostOneTaskPerUser(t *testing.T) {
	h := newHarness(t, at(1, 12, 0))
	for id := int64(1); id <= 5; id++ {
		_, err := h.prefs.Set(context.Background(), id, "", "Austin", "08:00", nil)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := int64(i%5 + 1)
			clock := domain.TimeOfDay{Hour: i % 24, Minute: i % 60}
			_, err := h.sched.Schedule(userID, clock)
			assert.NoError(t, err)
			if i%7 == 0 {
				h.sched.Cancel(userID)
				_, err = h.sched.Schedule(userID, clock)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	tasks := h.sched.Tasks()
	require.Len(t, tasks, 5)
	seen := map[int64]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.UserID], "duplicate task for user %d", task.UserID)
		seen[task.UserID] = true
	}
}

func TestSchedule_AustinScenario(t *testing.T) {
	h := newHarness(t, at(1, 20, 0))

	task := h.register(t, 42, "Austin", "07:30")
	require.Equal(t, at(2, 7, 30), task.NextFireAt)
	h.waitArmed(t, 42, at(2, 7, 30))

	// Day 2 06:00: re-register for 18:00 before the first fire.
	h.clock.Advance(10 * time.Hour)
	h.noDelivery(t)
	task = h.register(t, 42, "Austin", "18:00")
	require.Equal(t, at(2, 18, 0), task.NextFireAt)
	h.waitArmed(t, 42, at(2, 18, 0))
	require.Len(t, h.sched.Tasks(), 1)

	// Passing the old 07:30 slot delivers nothing.
	h.clock.Advance(2 * time.Hour)
	h.noDelivery(t)

	// Day 2 18:00.
	h.clock.Advance(10 * time.Hour)
	d := h.waitDelivery(t)
	assert.Equal(t, int64(42), d.pref.UserID)
	assert.Equal(t, "Austin, US", d.snap.Location)
	h.waitArmed(t, 42, at(3, 18, 0))

	next, ok := h.sched.NextFireAt(42)
	require.True(t, ok)
	assert.Equal(t, at(3, 18, 0), next)

	// Day 3 18:00.
	h.clock.Advance(24 * time.Hour)
	h.waitDelivery(t)
	h.waitArmed(t, 42, at(4, 18, 0))
	h.noDelivery(t)
	assert.Equal(t, 2, h.provider.callCount())
}

func TestFire_RearmIgnoresFireDuration(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.provider.block = make(chan struct{})

	h.register(t, 1, "Austin", "08:00")
	h.waitArmed(t, 1, at(1, 8, 0))
	h.clock.Advance(time.Hour)
	h.waitFetch(t)

	// The fetch takes 90 minutes of clock time.
	h.clock.Advance(90 * time.Minute)
	close(h.provider.block)
	h.waitDelivery(t)

	h.waitArmed(t, 1, at(2, 8, 0))
	next, _ := h.sched.NextFireAt(1)
	assert.Equal(t, at(2, 8, 0), next)

	// 22.5h later is exactly the next slot.
	h.clock.Advance(22*time.Hour + 30*time.Minute)
	h.waitFetch(t)
	h.waitDelivery(t)
}

func TestFire_FetchFailureSkipsDeliveryAndRearms(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.provider.fail = true

	h.register(t, 1, "Atlantis", "08:00")
	h.waitArmed(t, 1, at(1, 8, 0))
	h.clock.Advance(time.Hour)

	assert.Equal(t, "Atlantis", h.waitFetch(t))
	h.waitArmed(t, 1, at(2, 8, 0))
	h.noDelivery(t)

	// Provider recovers the next day.
	h.provider.mu.Lock()
	h.provider.fail = false
	h.provider.mu.Unlock()
	h.clock.Advance(24 * time.Hour)
	d := h.waitDelivery(t)
	assert.Equal(t, "Atlantis, US", d.snap.Location)
}

func TestFire_ReadsPreferenceAtFireTime(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.register(t, 1, "Austin", "08:00")
	h.waitArmed(t, 1, at(1, 8, 0))

	// Updated without going through Schedule.
	channel := int64(-500)
	_, err := h.prefs.Set(context.Background(), 1, "@u", "Boston", "08:00", &channel)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	assert.Equal(t, "Boston", h.waitFetch(t))
	d := h.waitDelivery(t)
	assert.Equal(t, "Boston", d.pref.Location)
	assert.Equal(t, int64(-500), d.pref.Destination())
}

func TestFire_MissingPreferenceSkipsAndRearms(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.register(t, 1, "Austin", "08:00")
	h.waitArmed(t, 1, at(1, 8, 0))

	_, err := h.prefs.Delete(context.Background(), 1)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	h.waitArmed(t, 1, at(2, 8, 0))
	h.noDelivery(t)
	assert.Zero(t, h.provider.callCount())
}

func TestCancel_InFlightFireCompletesWithoutRearm(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.provider.block = make(chan struct{})

	h.register(t, 1, "Austin", "08:00")
	h.waitArmed(t, 1, at(1, 8, 0))
	h.clock.Advance(time.Hour)
	h.waitFetch(t)

	assert.True(t, h.sched.Cancel(1))
	close(h.provider.block)
	h.waitDelivery(t)

	_, ok := h.sched.NextFireAt(1)
	assert.False(t, ok)
	assert.Empty(t, h.sched.Tasks())

	h.clock.Advance(48 * time.Hour)
	h.noDelivery(t)
	assert.Equal(t, 1, h.provider.callCount())
}

func TestCancel_Idempotent(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	assert.False(t, h.sched.Cancel(1))

	h.register(t, 1, "Austin", "08:00")
	assert.True(t, h.sched.Cancel(1))
	assert.False(t, h.sched.Cancel(1))

	h.clock.Advance(2 * time.Hour)
	h.noDelivery(t)
}

func TestSchedule_ReplacementNeverOverlapsInFlightFire(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.provider.block = make(chan struct{})

	h.register(t, 1, "Austin", "07:30")
	h.waitArmed(t, 1, at(1, 7, 30))
	h.clock.Advance(30 * time.Minute)
	h.waitFetch(t)

	// Re-register while the 07:30 fire is still fetching; the new slot passes.
	h.register(t, 1, "Austin", "08:00")
	h.clock.Advance(time.Hour)
	assert.Never(t, func() bool { return h.provider.callCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	close(h.provider.block)
	h.waitDelivery(t)
	h.waitFetch(t)
	h.waitDelivery(t)
	h.waitArmed(t, 1, at(2, 8, 0))
	require.Len(t, h.sched.Tasks(), 1)
}

func TestSchedule_ChainedReplacementsNeverOverlapInFlightFire(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.provider.block = make(chan struct{})

	h.register(t, 1, "Austin", "07:30")
	h.waitArmed(t, 1, at(1, 7, 30))
	h.clock.Advance(30 * time.Minute)
	h.waitFetch(t)

	// Two re-registrations while the 07:30 fetch is blocked. The middle task is
	// cancelled before it ever arms; the last one's 07:40 slot passes.
	h.register(t, 1, "Austin", "08:00")
	h.register(t, 1, "Austin", "07:40")
	h.clock.Advance(15 * time.Minute)
	assert.Never(t, func() bool { return h.provider.callCount() > 1 }, 200*time.Millisecond, 10*time.Millisecond)

	close(h.provider.block)
	h.waitDelivery(t)
	h.waitFetch(t)
	h.waitDelivery(t)
	h.waitArmed(t, 1, at(2, 7, 40))

	tasks := h.sched.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, at(2, 7, 40), tasks[0].NextFireAt)
	assert.Equal(t, 2, h.provider.callCount())
}

func TestRehydrate(t *testing.T) {
	h := newHarness(t, at(1, 12, 0))
	ctx := context.Background()
	_, err := h.prefs.Set(ctx, 1, "", "Austin", "08:00", nil)
	require.NoError(t, err)
	_, err = h.prefs.Set(ctx, 2, "", "Oslo", "13:15", nil)
	require.NoError(t, err)

	n := h.sched.Rehydrate(h.prefs.All())
	assert.Equal(t, 2, n)

	tasks := h.sched.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(2), tasks[0].UserID)
	assert.Equal(t, at(1, 13, 15), tasks[0].NextFireAt)
	assert.Equal(t, int64(1), tasks[1].UserID)
	assert.Equal(t, at(2, 8, 0), tasks[1].NextFireAt)

	assert.Zero(t, h.sched.Rehydrate(nil))
}

func TestStop(t *testing.T) {
	h := newHarness(t, at(1, 7, 0))
	h.register(t, 1, "Austin", "08:00")

	h.sched.Stop()
	assert.Empty(t, h.sched.Tasks())
	_, err := h.sched.Schedule(1, domain.MustTimeOfDay("09:00"))
	assert.ErrorIs(t, err, ErrStopped)

	h.clock.Advance(2 * time.Hour)
	h.noDelivery(t)
}
