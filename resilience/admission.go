package resilience

import (
	"context"
	"sync"
	"time"
)

// Default admission limits for the MOT history trade API.
const (
	DefaultDailyQuota    = 500000
	DefaultBurstCapacity = 10
	DefaultRPSLimit      = 15
	DefaultPollInterval  = 100 * time.Millisecond

	quotaPeriod = 24 * time.Hour
	rpsWindow   = time.Second
)

// AdmissionConfig configures the admission controller.
type AdmissionConfig struct {
	// DailyQuota is the number of calls allowed per rolling 24h period.
	// Values <= 0 select the default, so a zero quota cannot be configured.
	// Default: 500000
	DailyQuota int

	// BurstCapacity is the size of the burst allowance.
	// Default: 10
	BurstCapacity int

	// RPSLimit is the maximum number of admissions in any trailing second.
	// Default: 15
	RPSLimit int

	// PollInterval is how long a blocked caller sleeps before re-checking.
	// Default: 100 milliseconds
	PollInterval time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time

	// Sleep suspends the caller for d or until ctx is done.
	// Default: a timer-based sleep that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnWait is called once for every admission that had to wait, with the
	// total time spent waiting. It must not block.
	OnWait func(wait time.Duration)
}

// Budget is a point-in-time view of the admission counters.
type Budget struct {
	DailyRemaining int
	DailyResetAt   time.Time
	DailyQuota     int
	BurstTokens    int
	BurstCapacity  int
	RecentRequests int
	RPSLimit       int
}

// Admission gates outbound calls against a daily quota, a burst allowance
// and a requests-per-second ceiling. All three are checked and updated
// together under a single lock.
type Admission struct {
	config AdmissionConfig

	mu          sync.Mutex
	remaining   int
	resetAt     time.Time
	burstTokens int
	timestamps  []time.Time
}

// NewAdmission creates an admission controller with a full daily quota and
// a saturated burst allowance. Non-positive limits take their defaults.
func NewAdmission(config AdmissionConfig) *Admission {
	if config.DailyQuota <= 0 {
		config.DailyQuota = DefaultDailyQuota
	}
	if config.BurstCapacity <= 0 {
		config.BurstCapacity = DefaultBurstCapacity
	}
	if config.RPSLimit <= 0 {
		config.RPSLimit = DefaultRPSLimit
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}

	return &Admission{
		config:      config,
		remaining:   config.DailyQuota,
		resetAt:     config.Clock().Add(quotaPeriod),
		burstTokens: config.BurstCapacity,
		timestamps:  make([]time.Time, 0, config.RPSLimit),
	}
}

// Allow makes a single admission attempt. It returns true and consumes
// budget if the call may proceed now.
func (a *Admission) Allow() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.config.Clock()
	if !a.admissibleLocked(now) {
		return false
	}
	a.recordLocked(now)
	return true
}

// Await blocks until the call is admitted, polling every PollInterval.
// Waiting is backpressure, not failure: the only error is ctx.Err() when
// the context ends first, in which case no budget is consumed.
func (a *Admission) Await(ctx context.Context) error {
	var start time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.Allow() {
			if !start.IsZero() && a.config.OnWait != nil {
				a.config.OnWait(a.config.Clock().Sub(start))
			}
			return nil
		}
		if start.IsZero() {
			start = a.config.Clock()
		}
		if err := a.config.Sleep(ctx, a.config.PollInterval); err != nil {
			return err
		}
	}
}

// Snapshot returns the current counters.
func (a *Admission) Snapshot() Budget {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Budget{
		DailyRemaining: a.remaining,
		DailyResetAt:   a.resetAt,
		DailyQuota:     a.config.DailyQuota,
		BurstTokens:    a.burstTokens,
		BurstCapacity:  a.config.BurstCapacity,
		RecentRequests: a.recentLocked(a.config.Clock()),
		RPSLimit:       a.config.RPSLimit,
	}
}

// Config returns the effective configuration.
func (a *Admission) Config() AdmissionConfig {
	return a.config
}

// admissibleLocked reports whether all three limits admit a call at now.
// A quota whose reset instant has passed counts as restored.
func (a *Admission) admissibleLocked(now time.Time) bool {
	if a.remaining <= 0 && now.Before(a.resetAt) {
		return false
	}
	if a.burstTokens <= 0 {
		return false
	}
	return a.recentLocked(now) < a.config.RPSLimit
}

// recordLocked applies the post-admission update to all three limits.
func (a *Admission) recordLocked(now time.Time) {
	if !now.Before(a.resetAt) {
		a.remaining = a.config.DailyQuota
		a.resetAt = now.Add(quotaPeriod)
	}
	a.remaining--

	// Refill by one then consume one: the allowance never falls below
	// BurstCapacity-1, so a capacity of 1 admits nothing.
	a.burstTokens = min(a.burstTokens+1, a.config.BurstCapacity)
	a.burstTokens--

	a.timestamps = append(a.timestamps, now)
	cutoff := now.Add(-rpsWindow)
	kept := a.timestamps[:0]
	for _, ts := range a.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	a.timestamps = kept
}

func (a *Admission) recentLocked(now time.Time) int {
	cutoff := now.Add(-rpsWindow)
	n := 0
	for _, ts := range a.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
