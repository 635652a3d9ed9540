// Package cache implements the two-tier command cache: a process-wide
// shared tier with TTL and oldest-entry eviction, and per-controller
// session tiers cleared only by explicit refresh. In-flight executions
// for the same key are coalesced so concurrent identical requests share
// one subprocess invocation.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL bounds how long a shared entry may serve reads.
	DefaultTTL = 20 * time.Second

	// DefaultCapacity bounds the shared table to prevent unbounded
	// memory growth across long sessions.
	DefaultCapacity = 64
)

// Key identifies a cacheable, coalesceable unit of work: one external
// command under one cluster context. Immutable once built.
type Key struct {
	Context string
	Args    string
}

// NewKey builds a key from a context name and an argument vector.
func NewKey(kubeContext string, args []string) Key {
	return Key{Context: kubeContext, Args: strings.Join(args, "\x1f")}
}

func (k Key) String() string {
	return k.Context + "\x1e" + k.Args
}

// Recorder receives cache activity for the metrics layer. All methods
// must be safe for concurrent use.
type Recorder interface {
	Hit(tier string)
	Miss()
	Eviction()
	Coalesced()
}

type nopRecorder struct{}

func (nopRecorder) Hit(string) {}
func (nopRecorder) Miss()      {}
func (nopRecorder) Eviction()  {}
func (nopRecorder) Coalesced() {}

type entry struct {
	payload    string
	capturedAt time.Time
	ttl        time.Duration
}

// Shared is the process-wide cache tier. Construct exactly one at
// startup and inject it into every controller; entries are visible
// across controllers so concurrently open views do not repeat cluster
// calls.
type Shared struct {
	mu       sync.Mutex
	entries  map[Key]entry
	capacity int
	group    singleflight.Group
	rec      Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewShared creates the shared tier. A nil recorder disables metrics.
func NewShared(capacity int, rec Recorder, logger *zap.Logger) *Shared {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Shared{
		entries:  make(map[Key]entry),
		capacity: capacity,
		rec:      rec,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns a live entry's payload. Entries older than their TTL are
// dropped and reported as a miss.
func (s *Shared) Get(key Key) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if s.now().Sub(e.capturedAt) > e.ttl {
		delete(s.entries, key)
		s.logger.Debug("shared cache entry expired", zap.String("context", key.Context))
		return "", false
	}
	return e.payload, true
}

// Put stores a payload under the given TTL, evicting the globally-oldest
// entries while the table exceeds capacity.
func (s *Shared) Put(key Key, payload string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{payload: payload, capturedAt: s.now(), ttl: ttl}

	for len(s.entries) > s.capacity {
		var oldestKey Key
		var oldestAt time.Time
		first := true
		for k, e := range s.entries {
			if first || e.capturedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.capturedAt
				first = false
			}
		}
		delete(s.entries, oldestKey)
		s.rec.Eviction()
	}
}

// Len returns the current entry count.
func (s *Shared) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// InvalidateContext drops every entry belonging to one cluster context.
func (s *Shared) InvalidateContext(kubeContext string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.Context == kubeContext {
			delete(s.entries, k)
		}
	}
}

// Clear drops all entries. Intended for tests and full resets.
func (s *Shared) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]entry)
}

// Session is a per-controller tier with no TTL: entries live until the
// owning controller's explicit refresh.
type Session struct {
	mu      sync.RWMutex
	entries map[Key]string
}

// NewSession returns an empty session tier.
func NewSession() *Session {
	return &Session{entries: make(map[Key]string)}
}

// Get returns the session payload for key if present.
func (s *Session) Get(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Put stores a payload in the session tier.
func (s *Session) Put(key Key, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = payload
}

// Clear drops all session entries.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]string)
}

// CommandCache couples one controller's session tier to the shared tier
// and provides coalesced execution.
type CommandCache struct {
	shared  *Shared
	session *Session
	logger  *zap.Logger
}

// NewCommandCache binds a fresh session tier to the shared tier.
func NewCommandCache(shared *Shared, logger *zap.Logger) *CommandCache {
	return &CommandCache{
		shared:  shared,
		session: NewSession(),
		logger:  logger,
	}
}

// Execute returns a cached payload for key or runs the command once.
// Lookup order: shared tier (TTL-bounded), session tier, then a
// coalesced execution whose result lands in both tiers. Concurrent
// callers for an identical key observe at most one invocation of run.
func (c *CommandCache) Execute(ctx context.Context, key Key, ttl time.Duration, run func(context.Context) (string, error)) (string, error) {
	if out, ok := c.shared.Get(key); ok {
		c.shared.rec.Hit("shared")
		return out, nil
	}
	if out, ok := c.session.Get(key); ok {
		c.shared.rec.Hit("session")
		return out, nil
	}
	c.shared.rec.Miss()

	out, err, coalesced := c.shared.group.Do(key.String(), func() (interface{}, error) {
		return run(ctx)
	})
	if err != nil {
		return "", err
	}
	if coalesced {
		c.shared.rec.Coalesced()
	}

	payload := out.(string)
	c.session.Put(key, payload)
	c.shared.Put(key, payload, ttl)
	return payload, nil
}

// InvalidateSession clears this controller's session tier.
func (c *CommandCache) InvalidateSession() {
	c.session.Clear()
}

// Shared exposes the underlying shared tier for scope-wide invalidation.
func (c *CommandCache) Shared() *Shared {
	return c.shared
}
