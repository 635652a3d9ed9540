package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingLoader struct {
	reloads int32
	fail    bool
}

func (l *countingLoader) Reload(ctx context.Context) error {
	atomic.AddInt32(&l.reloads, 1)
	if l.fail {
		return errors.New("cluster unreachable")
	}
	return nil
}

func TestRefresherRunsPeriodically(t *testing.T) {
	loader := &countingLoader{}
	r := NewRefresher(loader, 20*time.Millisecond, zap.NewNop())

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err == nil {
		t.Error("expected second Start to fail")
	}

	time.Sleep(90 * time.Millisecond)
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	if n := atomic.LoadInt32(&loader.reloads); n < 2 {
		t.Errorf("expected at least 2 reloads (initial + tick), got %d", n)
	}

	status := r.GetStatus()
	if status.IsRunning {
		t.Error("expected stopped status")
	}
	if status.LastUpdate.IsZero() {
		t.Error("expected successful refresh to record last update")
	}
}

func TestRefreshNowReportsError(t *testing.T) {
	loader := &countingLoader{fail: true}
	r := NewRefresher(loader, time.Hour, zap.NewNop())

	if err := r.RefreshNow(); err == nil {
		t.Error("expected forced refresh to surface loader error")
	}
}
