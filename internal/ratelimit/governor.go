// Package ratelimit implements a two-tier sliding-window request governor
// protecting the quota-limited market-data provider. Admission is checked
// against both a per-minute and a per-day cap for each logical endpoint.
package ratelimit

import (
	"log"
	"sync"
	"time"
)

// Policy holds the window caps. These mirror the provider tier in use and
// must come from configuration, not code.
type Policy struct {
	PerMinute    int
	PerDay       int
	MinuteWindow time.Duration
	DayWindow    time.Duration
}

// DefaultPolicy matches the provider's published free tier: 5 requests per
// minute, 500 per day.
func DefaultPolicy() Policy {
	return Policy{
		PerMinute:    5,
		PerDay:       500,
		MinuteWindow: time.Minute,
		DayWindow:    24 * time.Hour,
	}
}

// Journal persists request timestamps so the day window survives restarts.
type Journal interface {
	Append(endpoint string, t time.Time) error
	Load(since time.Time) (map[string][]time.Time, error)
}

// Config configures a Governor.
type Config struct {
	Policy  Policy
	Journal Journal          // optional; nil disables persistence
	Now     func() time.Time // optional; defaults to time.Now, injectable for tests
}

// Governor tracks request timestamps per endpoint and decides admission.
// All methods are safe for concurrent use. Reserve is the admission path
// for outbound calls: it checks and charges under one mutex hold, so two
// concurrent callers can never both win the last slot. Allow is a
// side-effect-free peek for introspection and tests.
type Governor struct {
	mu       sync.Mutex
	policy   Policy
	now      func() time.Time
	journal  Journal
	requests map[string][]time.Time
}

// New creates a Governor, restoring prior timestamps from the journal when
// one is configured.
func New(cfg Config) (*Governor, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	g := &Governor{
		policy:   cfg.Policy,
		now:      now,
		journal:  cfg.Journal,
		requests: make(map[string][]time.Time),
	}
	if cfg.Journal != nil {
		restored, err := cfg.Journal.Load(now().Add(-cfg.Policy.DayWindow))
		if err != nil {
			return nil, err
		}
		g.requests = restored
		total := 0
		for _, stamps := range restored {
			total += len(stamps)
		}
		if total > 0 {
			log.Printf("[ratelimit] restored %d request timestamps from journal", total)
		}
	}
	return g, nil
}

// Allow reports whether one more request to the endpoint fits in both
// windows. It prunes expired timestamps but records nothing and reserves
// no slot; outbound calls must go through Reserve instead.
func (g *Governor) Allow(endpoint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	stamps := g.prune(endpoint, now)

	inMinute := 0
	for _, t := range stamps {
		if now.Sub(t) < g.policy.MinuteWindow {
			inMinute++
		}
	}
	return inMinute < g.policy.PerMinute && len(stamps) < g.policy.PerDay
}

// Reserve atomically checks admission for the endpoint and, when granted,
// charges one request, all under a single mutex hold. When denied it
// returns the minute-window wait hint; a day-cap denial has no short-term
// retry and reports 0.
func (g *Governor) Reserve(endpoint string) (bool, time.Duration) {
	g.mu.Lock()
	now := g.now()
	stamps := g.prune(endpoint, now)

	var oldest time.Time
	inMinute := 0
	for _, t := range stamps {
		if now.Sub(t) < g.policy.MinuteWindow {
			if inMinute == 0 || t.Before(oldest) {
				oldest = t
			}
			inMinute++
		}
	}

	if inMinute >= g.policy.PerMinute {
		g.mu.Unlock()
		return false, oldest.Add(g.policy.MinuteWindow).Sub(now)
	}
	if len(stamps) >= g.policy.PerDay {
		g.mu.Unlock()
		return false, 0
	}

	g.requests[endpoint] = append(g.requests[endpoint], now)
	g.mu.Unlock()

	if g.journal != nil {
		if err := g.journal.Append(endpoint, now); err != nil {
			log.Printf("[ratelimit] journal append failed: %v", err)
		}
	}
	return true, 0
}

// Record charges one request against the endpoint without an admission
// check. Use it for the follow-up calls of an already-reserved analysis;
// the charge is final once the call was attempted, regardless of outcome.
func (g *Governor) Record(endpoint string) {
	g.mu.Lock()
	now := g.now()
	g.requests[endpoint] = append(g.requests[endpoint], now)
	g.mu.Unlock()

	if g.journal != nil {
		if err := g.journal.Append(endpoint, now); err != nil {
			log.Printf("[ratelimit] journal append failed: %v", err)
		}
	}
}

// RetryAfter returns how long until the minute window frees a slot for the
// endpoint, or 0 if one is free now. It is a hint for the caller, not a
// schedule; the day window offers no short-term retry and reports 0 here.
func (g *Governor) RetryAfter(endpoint string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	stamps := g.prune(endpoint, now)

	var oldest time.Time
	inMinute := 0
	for _, t := range stamps {
		if now.Sub(t) < g.policy.MinuteWindow {
			if inMinute == 0 || t.Before(oldest) {
				oldest = t
			}
			inMinute++
		}
	}
	if inMinute < g.policy.PerMinute {
		return 0
	}
	return oldest.Add(g.policy.MinuteWindow).Sub(now)
}

// Usage returns the current minute- and day-window counts for an endpoint.
func (g *Governor) Usage(endpoint string) (minute, day int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	stamps := g.prune(endpoint, now)
	for _, t := range stamps {
		if now.Sub(t) < g.policy.MinuteWindow {
			minute++
		}
	}
	return minute, len(stamps)
}

// prune drops timestamps older than the day window. Caller must hold g.mu.
func (g *Governor) prune(endpoint string, now time.Time) []time.Time {
	stamps := g.requests[endpoint]
	kept := stamps[:0]
	for _, t := range stamps {
		if now.Sub(t) < g.policy.DayWindow {
			kept = append(kept, t)
		}
	}
	g.requests[endpoint] = kept
	return kept
}
