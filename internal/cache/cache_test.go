package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSharedCacheTTL(t *testing.T) {
	logger := zap.NewNop()
	shared := NewShared(8, nil, logger)

	clock := time.Now()
	shared.now = func() time.Time { return clock }

	key := NewKey("ctx-a", []string{"get", "nodes", "-o", "json"})
	shared.Put(key, "payload", 20*time.Second)

	if got, ok := shared.Get(key); !ok || got != "payload" {
		t.Fatalf("expected fresh hit, got %q ok=%v", got, ok)
	}

	clock = clock.Add(21 * time.Second)
	if _, ok := shared.Get(key); ok {
		t.Error("expected expired entry to never be returned")
	}
	if shared.Len() != 0 {
		t.Errorf("expected expired entry to be dropped, len=%d", shared.Len())
	}
}

func TestSharedCacheEvictsGloballyOldest(t *testing.T) {
	logger := zap.NewNop()
	shared := NewShared(2, nil, logger)

	clock := time.Now()
	shared.now = func() time.Time { return clock }

	keyA := NewKey("ctx", []string{"get", "a"})
	keyB := NewKey("ctx", []string{"get", "b"})
	keyC := NewKey("ctx", []string{"get", "c"})

	shared.Put(keyA, "a", time.Minute)
	clock = clock.Add(time.Second)
	shared.Put(keyB, "b", time.Minute)
	clock = clock.Add(time.Second)
	shared.Put(keyC, "c", time.Minute)

	if shared.Len() != 2 {
		t.Fatalf("expected capacity bound 2, len=%d", shared.Len())
	}
	if _, ok := shared.Get(keyA); ok {
		t.Error("expected globally-oldest entry to be evicted")
	}
	if _, ok := shared.Get(keyB); !ok {
		t.Error("expected newer entry to survive eviction")
	}
	if _, ok := shared.Get(keyC); !ok {
		t.Error("expected newest entry to survive eviction")
	}
}

func TestCommandCacheCoalescesConcurrentExecutions(t *testing.T) {
	logger := zap.NewNop()
	shared := NewShared(8, nil, logger)
	cc := NewCommandCache(shared, logger)

	key := NewKey("ctx", []string{"get", "pods", "-A", "-o", "json"})

	var invocations int32
	run := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&invocations, 1)
		time.Sleep(100 * time.Millisecond)
		return "result", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			out, err := cc.Execute(context.Background(), key, time.Minute, run)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if out != "result" {
				t.Errorf("unexpected output %q", out)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&invocations); n != 1 {
		t.Errorf("expected exactly one execution, got %d", n)
	}
}

func TestCommandCacheSessionSurvivesSharedExpiry(t *testing.T) {
	logger := zap.NewNop()
	shared := NewShared(8, nil, logger)

	clock := time.Now()
	shared.now = func() time.Time { return clock }

	cc := NewCommandCache(shared, logger)
	key := NewKey("ctx", []string{"get", "nodes", "-o", "json"})

	runs := 0
	run := func(ctx context.Context) (string, error) {
		runs++
		return "nodes", nil
	}

	if _, err := cc.Execute(context.Background(), key, 20*time.Second, run); err != nil {
		t.Fatal(err)
	}

	// Shared entry ages out, but the session tier has no TTL.
	clock = clock.Add(time.Hour)
	if _, err := cc.Execute(context.Background(), key, 20*time.Second, run); err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Errorf("expected session tier to serve the second call, runs=%d", runs)
	}

	// Explicit refresh clears both tiers for this scope.
	cc.InvalidateSession()
	shared.InvalidateContext("ctx")
	if _, err := cc.Execute(context.Background(), key, 20*time.Second, run); err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Errorf("expected re-execution after invalidation, runs=%d", runs)
	}
}

func TestSharedCacheCrossControllerVisibility(t *testing.T) {
	logger := zap.NewNop()
	shared := NewShared(8, nil, logger)

	first := NewCommandCache(shared, logger)
	second := NewCommandCache(shared, logger)

	key := NewKey("ctx", []string{"get", "pdb", "-A", "-o", "json"})
	runs := 0
	run := func(ctx context.Context) (string, error) {
		runs++
		return "pdbs", nil
	}

	if _, err := first.Execute(context.Background(), key, time.Minute, run); err != nil {
		t.Fatal(err)
	}
	out, err := second.Execute(context.Background(), key, time.Minute, run)
	if err != nil {
		t.Fatal(err)
	}
	if out != "pdbs" || runs != 1 {
		t.Errorf("expected shared tier to serve the second controller, runs=%d", runs)
	}
}

func TestExecuteErrorNotCached(t *testing.T) {
	logger := zap.NewNop()
	shared := NewShared(8, nil, logger)
	cc := NewCommandCache(shared, logger)

	key := NewKey("ctx", []string{"get", "events"})
	runs := 0
	run := func(ctx context.Context) (string, error) {
		runs++
		if runs == 1 {
			return "", context.DeadlineExceeded
		}
		return "events", nil
	}

	if _, err := cc.Execute(context.Background(), key, time.Minute, run); err == nil {
		t.Fatal("expected first execution to fail")
	}
	out, err := cc.Execute(context.Background(), key, time.Minute, run)
	if err != nil {
		t.Fatal(err)
	}
	if out != "events" || runs != 2 {
		t.Errorf("expected failed execution to be retried, runs=%d", runs)
	}
}
