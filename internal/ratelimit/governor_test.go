package ratelimit

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock advances only when told to, making window math deterministic.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGovernor(t *testing.T, policy Policy, clock *fakeClock) *Governor {
	t.Helper()
	g, err := New(Config{Policy: policy, Now: clock.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGovernor_MinuteCap(t *testing.T) {
	clock := newFakeClock()
	g := newTestGovernor(t, DefaultPolicy(), clock)

	for i := 0; i < 5; i++ {
		if !g.Allow("fetch") {
			t.Fatalf("request %d: denied, want admitted", i+1)
		}
		g.Record("fetch")
		clock.Advance(time.Second)
	}
	if g.Allow("fetch") {
		t.Fatal("sixth request within the minute window admitted, want denied")
	}
}

func TestGovernor_WindowSlidesOpen(t *testing.T) {
	clock := newFakeClock()
	g := newTestGovernor(t, DefaultPolicy(), clock)

	for i := 0; i < 5; i++ {
		g.Record("fetch")
	}
	if g.Allow("fetch") {
		t.Fatal("expected denial at cap")
	}

	// All five stamps share one instant; one tick past the window frees
	// all five slots.
	clock.Advance(time.Minute + time.Second)
	if !g.Allow("fetch") {
		t.Fatal("expected admission after minute window passed")
	}
}

func TestGovernor_DayCap(t *testing.T) {
	clock := newFakeClock()
	policy := Policy{PerMinute: 100, PerDay: 3, MinuteWindow: time.Minute, DayWindow: 24 * time.Hour}
	g := newTestGovernor(t, policy, clock)

	for i := 0; i < 3; i++ {
		if !g.Allow("fetch") {
			t.Fatalf("request %d: denied, want admitted", i+1)
		}
		g.Record("fetch")
		// Space the requests out so the minute window never binds.
		clock.Advance(2 * time.Minute)
	}
	if g.Allow("fetch") {
		t.Fatal("fourth request of the day admitted, want denied")
	}

	clock.Advance(24 * time.Hour)
	if !g.Allow("fetch") {
		t.Fatal("expected admission after day window passed")
	}
}

func TestGovernor_AllowDoesNotRecord(t *testing.T) {
	clock := newFakeClock()
	g := newTestGovernor(t, DefaultPolicy(), clock)

	for i := 0; i < 100; i++ {
		if !g.Allow("fetch") {
			t.Fatal("Allow alone must never consume quota")
		}
	}
	minute, day := g.Usage("fetch")
	if minute != 0 || day != 0 {
		t.Fatalf("usage after Allow-only: got minute=%d day=%d, want 0/0", minute, day)
	}
}

func TestGovernor_EndpointsIsolated(t *testing.T) {
	clock := newFakeClock()
	g := newTestGovernor(t, DefaultPolicy(), clock)

	for i := 0; i < 5; i++ {
		g.Record("fetch")
	}
	if g.Allow("fetch") {
		t.Fatal("fetch should be at cap")
	}
	if !g.Allow("other") {
		t.Fatal("other endpoint must not share fetch's window")
	}
}

func TestGovernor_RetryAfter(t *testing.T) {
	clock := newFakeClock()
	g := newTestGovernor(t, DefaultPolicy(), clock)

	if got := g.RetryAfter("fetch"); got != 0 {
		t.Fatalf("RetryAfter with free slots: got %v, want 0", got)
	}

	for i := 0; i < 5; i++ {
		g.Record("fetch")
	}
	clock.Advance(20 * time.Second)

	// Oldest stamp is 20s old; the slot frees 40s from now.
	if got := g.RetryAfter("fetch"); got != 40*time.Second {
		t.Fatalf("RetryAfter: got %v, want 40s", got)
	}
}

func TestGovernor_Usage(t *testing.T) {
	clock := newFakeClock()
	g := newTestGovernor(t, DefaultPolicy(), clock)

	g.Record("fetch")
	g.Record("fetch")
	clock.Advance(2 * time.Minute)
	g.Record("fetch")

	minute, day := g.Usage("fetch")
	if minute != 1 || day != 3 {
		t.Fatalf("usage: got minute=%d day=%d, want 1/3", minute, day)
	}
}

func TestGovernor_ReserveChargesAtomically(t *testing.T) {
	clock := newFakeClock()
	policy := Policy{PerMinute: 1, PerDay: 500, MinuteWindow: time.Minute, DayWindow: 24 * time.Hour}
	g := newTestGovernor(t, policy, clock)

	// Two back-to-back reservations for one slot: the second must lose,
	// even though a peek between them would still have said "admitted".
	ok, wait := g.Reserve("fetch")
	if !ok || wait != 0 {
		t.Fatalf("first reservation: got ok=%v wait=%v, want admitted", ok, wait)
	}
	ok, wait = g.Reserve("fetch")
	if ok {
		t.Fatal("second reservation won the only slot")
	}
	if wait != time.Minute {
		t.Errorf("wait hint: got %v, want 1m", wait)
	}
	minute, day := g.Usage("fetch")
	if minute != 1 || day != 1 {
		t.Errorf("usage after denial: got minute=%d day=%d, want 1/1", minute, day)
	}
}

func TestGovernor_ConcurrentReserveSingleSlot(t *testing.T) {
	clock := newFakeClock()
	policy := Policy{PerMinute: 1, PerDay: 500, MinuteWindow: time.Minute, DayWindow: 24 * time.Hour}
	g := newTestGovernor(t, policy, clock)

	const workers = 16
	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Reserve("fetch"); ok {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Fatalf("admitted: got %d, want exactly 1", admitted)
	}
	minute, day := g.Usage("fetch")
	if minute != 1 || day != 1 {
		t.Errorf("usage: got minute=%d day=%d, want 1/1", minute, day)
	}
}

func TestGovernor_ReserveDayCapHasNoShortWait(t *testing.T) {
	clock := newFakeClock()
	policy := Policy{PerMinute: 100, PerDay: 1, MinuteWindow: time.Minute, DayWindow: 24 * time.Hour}
	g := newTestGovernor(t, policy, clock)

	if ok, _ := g.Reserve("fetch"); !ok {
		t.Fatal("first reservation denied")
	}
	ok, wait := g.Reserve("fetch")
	if ok {
		t.Fatal("reservation past the day cap admitted")
	}
	if wait != 0 {
		t.Errorf("day-cap denial wait hint: got %v, want 0", wait)
	}
}

func TestGovernor_JournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.db")
	journal, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer journal.Close()

	clock := newFakeClock()
	g1, err := New(Config{Policy: DefaultPolicy(), Journal: journal, Now: clock.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 5; i++ {
		g1.Record("fetch")
	}

	// A second governor over the same journal sees the same day usage.
	g2, err := New(Config{Policy: DefaultPolicy(), Journal: journal, Now: clock.Now})
	if err != nil {
		t.Fatalf("New (restore): %v", err)
	}
	_, day := g2.Usage("fetch")
	if day != 5 {
		t.Fatalf("restored day usage: got %d, want 5", day)
	}
	if g2.Allow("fetch") {
		t.Fatal("restored governor must deny at the minute cap")
	}
}

func TestJournal_LoadDropsExpiredRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.db")
	journal, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer journal.Close()

	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	if err := journal.Append("fetch", now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := journal.Append("fetch", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	restored, err := journal.Load(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(restored["fetch"]); got != 1 {
		t.Fatalf("restored stamps: got %d, want 1", got)
	}
}
