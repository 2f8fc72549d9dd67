// Package ratelimit implements an in-memory, multi-tier moving-window request
// limiter keyed by client identity. Counters are process-local and reset on
// restart; rate limiting is a soft protection, not a security boundary.
package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Tier is a single rate-limit rule: at most Limit requests within a trailing
// Window. A policy may combine several tiers; all of them must pass.
type Tier struct {
	Limit  int
	Window time.Duration
}

// String renders the tier in the "10/minute" form used in configuration.
func (t Tier) String() string {
	switch t.Window {
	case 24 * time.Hour:
		return fmt.Sprintf("%d/day", t.Limit)
	case time.Hour:
		return fmt.Sprintf("%d/hour", t.Limit)
	case time.Minute:
		return fmt.Sprintf("%d/minute", t.Limit)
	case time.Second:
		return fmt.Sprintf("%d/second", t.Limit)
	}

	return fmt.Sprintf("%d/%s", t.Limit, t.Window)
}

var windowUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseTiers parses a policy string such as "200/day;50/hour;10/minute".
// Both the "10/minute" and the "10 per minute" forms are accepted.
func ParseTiers(s string) ([]Tier, error) {
	const op = "ratelimit.ParseTiers"

	var tiers []Tier

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var countStr, unitStr string
		if idx := strings.Index(part, "/"); idx != -1 {
			countStr, unitStr = part[:idx], part[idx+1:]
		} else if idx := strings.Index(part, " per "); idx != -1 {
			countStr, unitStr = part[:idx], part[idx+len(" per "):]
		} else {
			return nil, fmt.Errorf("%s: malformed tier %q", op, part)
		}

		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("%s: malformed tier count in %q", op, part)
		}

		unit := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unitStr)), "s")
		window, ok := windowUnits[unit]
		if !ok {
			return nil, fmt.Errorf("%s: unknown tier window in %q", op, part)
		}

		tiers = append(tiers, Tier{Limit: count, Window: window})
	}

	if len(tiers) == 0 {
		return nil, fmt.Errorf("%s: empty policy %q", op, s)
	}

	return tiers, nil
}

// Limiter tracks request timestamps per client identity and admits a request
// only when every configured tier has room in its trailing window.
type Limiter struct {
	tiers     []Tier
	maxWindow time.Duration
	now       func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLog
	lastEvict time.Time
}

// clientLog carries its own lock so that clients only contend with themselves
// once their entry exists.
type clientLog struct {
	mu    sync.Mutex
	times []time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(tiers []Tier, opts ...Option) *Limiter {
	l := &Limiter{
		tiers:   tiers,
		now:     time.Now,
		clients: make(map[string]*clientLog),
	}

	for _, tier := range tiers {
		if tier.Window > l.maxWindow {
			l.maxWindow = tier.Window
		}
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// evictIdle drops clients whose newest request left the widest window, so the
// map does not grow with every distinct client seen over the process lifetime.
// Runs at most once per maxWindow. Callers must hold l.mu.
func (l *Limiter) evictIdle(now time.Time) {
	if now.Sub(l.lastEvict) < l.maxWindow {
		return
	}
	l.lastEvict = now

	cutoff := now.Add(-l.maxWindow)
	for key, log := range l.clients {
		log.mu.Lock()
		idle := len(log.times) == 0 || !log.times[len(log.times)-1].After(cutoff)
		log.mu.Unlock()

		if idle {
			delete(l.clients, key)
		}
	}
}

// Allow records a request for key if every tier admits it. A request at time
// T against an "N/minute" tier counts requests in (T-60s, T], not since the
// last minute boundary. On rejection the violated tier is returned and the
// request is not recorded.
func (l *Limiter) Allow(key string) (bool, Tier) {
	now := l.now()

	l.mu.Lock()
	l.evictIdle(now)
	log, ok := l.clients[key]
	if !ok {
		log = &clientLog{}
		l.clients[key] = log
	}
	l.mu.Unlock()

	log.mu.Lock()
	defer log.mu.Unlock()

	// Entries older than the widest window can never count again.
	cutoff := now.Add(-l.maxWindow)
	kept := log.times[:0]
	for _, ts := range log.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	log.times = kept

	for _, tier := range l.tiers {
		start := now.Add(-tier.Window)

		count := 0
		for _, ts := range log.times {
			if ts.After(start) {
				count++
			}
		}

		if count >= tier.Limit {
			return false, tier
		}
	}

	log.times = append(log.times, now)

	return true, Tier{}
}
