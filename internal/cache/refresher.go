package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loader is the refresh target: typically the cluster controller's
// full-cycle reload.
type Loader interface {
	Reload(ctx context.Context) error
}

// Refresher drives periodic snapshot refresh against a Loader.
type Refresher struct {
	loader   Loader
	interval time.Duration
	logger   *zap.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isRunning  bool
	lastError  error
	lastUpdate time.Time
}

// NewRefresher creates a refresher with the given interval.
func NewRefresher(loader Loader, interval time.Duration, logger *zap.Logger) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		loader:   loader,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the automatic refresh loop.
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("refresher already running")
	}

	r.logger.Info("Starting snapshot refresher", zap.Duration("interval", r.interval))
	r.isRunning = true
	r.wg.Add(1)
	go r.run()
	return nil
}

// Stop halts the refresh loop and waits for the in-flight cycle.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("refresher not running")
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	r.isRunning = false
	r.mu.Unlock()

	r.logger.Info("Snapshot refresher stopped")
	return nil
}

func (r *Refresher) run() {
	defer r.wg.Done()

	// Initial refresh immediately, then on every tick.
	r.refresh()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("Refresh loop exiting")
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

func (r *Refresher) refresh() {
	start := time.Now()

	err := r.loader.Reload(r.ctx)

	r.mu.Lock()
	r.lastError = err
	if err == nil {
		r.lastUpdate = time.Now()
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Snapshot refresh failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return
	}
	r.logger.Info("Snapshot refreshed", zap.Duration("elapsed", time.Since(start)))
}

// RefreshNow forces an immediate refresh and returns its error.
func (r *Refresher) RefreshNow() error {
	r.refresh()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

// RefresherStatus reports the loop's current state.
type RefresherStatus struct {
	IsRunning  bool
	LastUpdate time.Time
	LastError  error
	Interval   time.Duration
}

// GetStatus returns the current refresher status.
func (r *Refresher) GetStatus() RefresherStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RefresherStatus{
		IsRunning:  r.isRunning,
		LastUpdate: r.lastUpdate,
		LastError:  r.lastError,
		Interval:   r.interval,
	}
}

// SetInterval updates the refresh interval for subsequent restarts.
func (r *Refresher) SetInterval(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("Updating refresh interval",
		zap.Duration("old_interval", r.interval),
		zap.Duration("new_interval", interval),
	)
	r.interval = interval
}
