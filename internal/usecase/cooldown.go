package usecase

import (
	"sync"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"golang.org/x/time/rate"
)

const (
	DefaultBroadcastCooldown  = 10 * time.Minute
	DefaultHighlightCooldown  = 10 * time.Minute
	DefaultSubRequestCooldown = 15 * time.Minute
)

// CooldownTracker keeps one single-token limiter per key. A key may fire once per period;
// checks are lazy, nothing expires entries on a timer.
type CooldownTracker struct {
	mu       sync.Mutex
	period   time.Duration
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewCooldownTracker(period time.Duration) *CooldownTracker {
	return &CooldownTracker{
		period:   period,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

func (t *CooldownTracker) Period() time.Duration {
	return t.period
}

// Remaining is zero when the key may fire now.
func (t *CooldownTracker) Remaining(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked(key, t.now())
}

// Mark records a firing at the current time, regardless of whether the key was cooling down.
func (t *CooldownTracker) Mark(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.pruneLocked(now)
	lim := rate.NewLimiter(rate.Every(t.period), 1)
	lim.AllowN(now, 1)
	t.limiters[key] = lim
}

// TryFire marks the key and returns zero when it was free; otherwise it returns the remaining wait.
func (t *CooldownTracker) TryFire(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if remaining := t.remainingLocked(key, now); remaining > 0 {
		return remaining
	}
	t.pruneLocked(now)
	lim := rate.NewLimiter(rate.Every(t.period), 1)
	lim.AllowN(now, 1)
	t.limiters[key] = lim
	return 0
}

func (t *CooldownTracker) Reset(key string) {
	t.mu.Lock()
	delete(t.limiters, key)
	t.mu.Unlock()
}

func (t *CooldownTracker) remainingLocked(key string, now time.Time) time.Duration {
	if t.period <= 0 {
		return 0
	}
	lim, ok := t.limiters[key]
	if !ok {
		return 0
	}
	tokens := lim.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	remaining := time.Duration((1 - tokens) * float64(t.period))
	if remaining < time.Millisecond {
		return 0
	}
	return remaining
}

// pruneLocked drops limiters that have fully refilled.
func (t *CooldownTracker) pruneLocked(now time.Time) {
	for key, lim := range t.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(t.limiters, key)
		}
	}
}

func broadcastCooldownKey(teamID string) string {
	return "broadcast:" + teamID
}

func highlightCooldownKey(key venue.Key) string {
	return "highlight:" + key.String()
}

func subRequestCooldownKey(key venue.Key, pos formation.Position) string {
	return "sub:" + key.String() + ":" + string(pos)
}
