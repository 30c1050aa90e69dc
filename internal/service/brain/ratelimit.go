package brain

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tosachii/ryosa/internal/core"
)

type LimiterConfig struct {
	// MaxGlobal responses per Window, shared across all channels and
	// platforms. The bucket refills continuously, so capacity trickles back
	// instead of snapping open at a window edge.
	MaxGlobal int
	Window    time.Duration

	// UserCooldown is the minimum gap between two charged responses to the
	// same user. Commands skip it; the global bucket still applies.
	UserCooldown time.Duration
}

// Limiter combines the global token bucket with per-user cooldowns. Check is
// a pure read so the decision engine can probe cheaply; Charge consumes
// exactly one global token and stamps the user.
type Limiter struct {
	mu         sync.Mutex
	global     *rate.Limiter
	lastCharge map[string]time.Time
	cooldown   time.Duration
	now        func() time.Time
}

func NewLimiter(cfg LimiterConfig) *Limiter {
	perSecond := float64(cfg.MaxGlobal) / cfg.Window.Seconds()
	return &Limiter{
		global:     rate.NewLimiter(rate.Limit(perSecond), cfg.MaxGlobal),
		lastCharge: make(map[string]time.Time),
		cooldown:   cfg.UserCooldown,
		now:        time.Now,
	}
}

// Check reports whether a response to userID would be allowed right now.
// Nothing is consumed.
func (l *Limiter) Check(userID string, command bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.global.TokensAt(now) < 1 {
		return false
	}
	if command {
		return true
	}
	last, seen := l.lastCharge[core.NormalizeUserID(userID)]
	return !seen || now.Sub(last) >= l.cooldown
}

// Charge consumes one global token and records the user's response time.
// Call once per response, before the model call, so a slow or failing model
// still counts against the budget.
func (l *Limiter) Charge(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.global.AllowN(now, 1)
	l.lastCharge[core.NormalizeUserID(userID)] = now
}
