package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TierLimit bounds one tier. A zero DailyQuota means unlimited; a zero
// RequestsPerSecond disables pacing.
type TierLimit struct {
	DailyQuota        int
	RequestsPerSecond float64
	Burst             int
}

type tierState struct {
	limiter *rate.Limiter
	quota   int
	used    int
	day     string
}

// Limited paces calls per tier and enforces a daily request quota. A call
// over quota fails without reaching the wrapped client.
type Limited struct {
	next  Client
	now   func() time.Time
	mu    sync.Mutex
	tiers map[Tier]*tierState
}

// NewLimited wraps next with per-tier limits.
func NewLimited(next Client, limits map[Tier]TierLimit) *Limited {
	l := &Limited{
		next:  next,
		now:   time.Now,
		tiers: make(map[Tier]*tierState, len(limits)),
	}
	for tier, lim := range limits {
		st := &tierState{quota: lim.DailyQuota}
		if lim.RequestsPerSecond > 0 {
			burst := lim.Burst
			if burst < 1 {
				burst = 1
			}
			st.limiter = rate.NewLimiter(rate.Limit(lim.RequestsPerSecond), burst)
		}
		l.tiers[tier] = st
	}
	return l
}

// Call implements Client.
func (l *Limited) Call(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error) {
	st, day, err := l.reserve(tier)
	if err != nil {
		return "", err
	}
	if st != nil && st.limiter != nil {
		if err := st.limiter.Wait(ctx); err != nil {
			l.refund(st, day)
			return "", fmt.Errorf("rate limiter error: %w", err)
		}
	}
	return l.next.Call(ctx, messages, tier, temperature)
}

// Remaining reports the calls left today for tier, or -1 when unlimited.
func (l *Limited) Remaining(tier Tier) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.tiers[tier]
	if !ok || st.quota == 0 {
		return -1
	}
	l.rollover(st)
	return st.quota - st.used
}

// reserve takes one unit of today's quota and returns the day it was
// charged to.
func (l *Limited) reserve(tier Tier) (*tierState, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.tiers[tier]
	if !ok {
		return nil, "", nil
	}
	l.rollover(st)
	if st.quota > 0 && st.used >= st.quota {
		return nil, "", fmt.Errorf("%w: %s tier used %d/%d today", ErrQuotaExhausted, tier, st.used, st.quota)
	}
	st.used++
	return st, st.day, nil
}

// refund returns a unit taken by reserve for a call that never reached the
// provider. A unit charged to an earlier day is not returned.
func (l *Limited) refund(st *tierState, day string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st.day == day && st.used > 0 {
		st.used--
	}
}

// rollover resets the counter when the UTC day changes. Caller holds mu.
func (l *Limited) rollover(st *tierState) {
	day := l.now().UTC().Format(time.DateOnly)
	if st.day != day {
		st.day = day
		st.used = 0
	}
}
