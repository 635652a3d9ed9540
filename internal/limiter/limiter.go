// Package limiter provides the process-wide admission gate bounding
// simultaneous external-tool invocations.
package limiter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultCapacity bounds concurrent subprocess executions across all
	// fetch operations.
	DefaultCapacity = 3

	// DefaultAcquireTimeout bounds queuing delay so a hung fetch cannot
	// block callers indefinitely.
	DefaultAcquireTimeout = 60 * time.Second
)

// WaitRecorder observes time spent queued on the gate. Implemented by
// the self-monitoring metrics.
type WaitRecorder interface {
	ObserveGateWait(d time.Duration)
}

// Gate is a reconfigurable counting semaphore. One Gate is shared by
// every controller in the process.
type Gate struct {
	mu             sync.Mutex
	capacity       int64
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
	recorder       WaitRecorder
	logger         *zap.Logger
}

// New returns a gate with the given capacity and acquire timeout.
// Non-positive arguments fall back to the defaults.
func New(capacity int, acquireTimeout time.Duration, logger *zap.Logger) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Gate{
		capacity:       int64(capacity),
		sem:            semaphore.NewWeighted(int64(capacity)),
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

// Acquire takes one slot, waiting up to the gate's acquire timeout.
// On success it returns a release function safe against double release.
// On timeout or cancellation it returns (nil, false); the caller treats
// the fetch as failed for this cycle.
func (g *Gate) Acquire(ctx context.Context) (release func(), ok bool) {
	g.mu.Lock()
	sem := g.sem
	timeout := g.acquireTimeout
	recorder := g.recorder
	g.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := sem.Acquire(acquireCtx, 1)
	if recorder != nil {
		recorder.ObserveGateWait(time.Since(start))
	}
	if err != nil {
		g.logger.Warn("concurrency gate acquire failed",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}, true
}

// SetRecorder installs the wait observer. Call before the gate sees
// traffic; nil disables observation.
func (g *Gate) SetRecorder(r WaitRecorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorder = r
}

// AcquireTimeout returns the configured acquire budget.
func (g *Gate) AcquireTimeout() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquireTimeout
}

// Capacity returns the current slot count.
func (g *Gate) Capacity() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.capacity)
}

// SetCapacity recreates the gate with a new slot count. Holders of the
// previous gate release into the old semaphore through their captured
// release functions; new acquires see only the new one.
func (g *Gate) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if int64(capacity) == g.capacity {
		return
	}
	g.logger.Info("concurrency gate capacity changed",
		zap.Int64("old", g.capacity),
		zap.Int("new", capacity),
	)
	g.capacity = int64(capacity)
	g.sem = semaphore.NewWeighted(int64(capacity))
}
