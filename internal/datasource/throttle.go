package datasource

import (
	"math"
	"time"
)

// Throttle is the caller-side policy deciding which partial updates are
// worth surfacing: every Nth completion (N = ceil(total/4)) or the final
// one, with a minimum wall-clock gap between emissions. The fetcher
// always offers every update; consumers apply this to coalesce renders.
type Throttle struct {
	step        int
	minInterval time.Duration
	last        time.Time
	now         func() time.Time
}

// NewThrottle builds a throttle for a stream of total completions.
func NewThrottle(total int, minInterval time.Duration) *Throttle {
	step := int(math.Ceil(float64(total) / 4.0))
	if step < 1 {
		step = 1
	}
	return &Throttle{
		step:        step,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// ShouldEmit reports whether this completion should be surfaced. The
// final completion always is.
func (t *Throttle) ShouldEmit(completed, total int) bool {
	if completed >= total {
		return true
	}
	if completed%t.step != 0 {
		return false
	}
	if t.minInterval > 0 && !t.last.IsZero() && t.now().Sub(t.last) < t.minInterval {
		return false
	}
	t.last = t.now()
	return true
}
