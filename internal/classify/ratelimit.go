package classify

import (
	"math"
	"math/rand"
	"time"
)

// Limiter enforces a minimum spacing between successive call starts and
// full exponential backoff on retries. State is owned by one Limiter
// instance so independent pipelines in the same process never share a
// last-request timestamp.
type Limiter struct {
	baseDelay   time.Duration
	lastRequest time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
	randf func() float64
}

// NewLimiter creates a limiter with the given minimum spacing between calls.
func NewLimiter(baseDelay time.Duration) *Limiter {
	return &Limiter{
		baseDelay: baseDelay,
		now:       time.Now,
		sleep:     time.Sleep,
		randf:     rand.Float64,
	}
}

// Wait blocks until the next call may start.
//
// attempt 0 is a normal call: if less than baseDelay (plus up to 0.2s of
// jitter) has elapsed since the previous call started, Wait sleeps for the
// remainder. attempt > 0 is a retry: Wait sleeps baseDelay*2^attempt plus
// up to 1s of jitter regardless of elapsed time. The last-request
// timestamp is stamped after every wait decision, including the no-wait
// branch, so spacing is measured between call starts, not call ends.
func (l *Limiter) Wait(attempt int) {
	if attempt > 0 {
		backoff := time.Duration(float64(l.baseDelay) * math.Pow(2, float64(attempt)))
		jitter := time.Duration(l.randf() * float64(time.Second))
		l.sleep(backoff + jitter)
	} else {
		jitter := time.Duration(l.randf() * 0.2 * float64(time.Second))
		minDelay := l.baseDelay + jitter
		if elapsed := l.now().Sub(l.lastRequest); elapsed < minDelay {
			l.sleep(minDelay - elapsed)
		}
	}
	l.lastRequest = l.now()
}
