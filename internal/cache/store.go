package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the single shared cache of query results. It is mutated only
// through the methods below: optimistic write, reconcile, rollback,
// invalidate, and full clear. Components never hold a mutable copy of an
// entry's value.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	subs    map[Key]map[int]func(Key, interface{})
	nextSub int
	logger  *zap.Logger
	nowFunc func() time.Time
}

type entry struct {
	value     interface{}
	exists    bool
	fetchedAt time.Time
	stale     bool
	lastErr   error
	cancel    context.CancelFunc
	fetchGen  uint64
}

// Snapshot is a verbatim copy of one key's state, taken before an optimistic
// write so a failed mutation can be rolled back exactly.
type Snapshot struct {
	key    Key
	value  interface{}
	exists bool
}

// NewStore creates an empty cache store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[Key]*entry),
		subs:    make(map[Key]map[int]func(Key, interface{})),
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Get returns the cached value for key, if any.
func (s *Store) Get(key Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Take captures the current state of key for a later Rollback. A missing
// entry is captured too, so rollback can restore true absence.
func (s *Store) Take(key Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{key: key}
	}
	return Snapshot{key: key, value: e.value, exists: true}
}

// OptimisticWrite cancels any in-flight refetch for key, then replaces the
// cached value with the locally-synthesized one. The entry's fetch timestamp
// is untouched: the value is provisional until Reconcile or Rollback.
func (s *Store) OptimisticWrite(key Key, value interface{}) {
	s.mu.Lock()
	e := s.ensureLocked(key)
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.value = value
	e.exists = true
	s.mu.Unlock()
	s.notify(key, value)
}

// Reconcile replaces the cached value with the authoritative server state
// and marks the entry fresh.
func (s *Store) Reconcile(key Key, value interface{}) {
	s.mu.Lock()
	e := s.ensureLocked(key)
	e.value = value
	e.exists = true
	e.fetchedAt = s.nowFunc()
	e.stale = false
	e.lastErr = nil
	s.mu.Unlock()
	s.notify(key, value)
}

// Rollback restores the state captured by Take, including absence.
func (s *Store) Rollback(snap Snapshot) {
	s.mu.Lock()
	if !snap.exists {
		delete(s.entries, snap.key)
		s.mu.Unlock()
		s.notify(snap.key, nil)
		return
	}
	e := s.ensureLocked(snap.key)
	e.value = snap.value
	e.exists = true
	s.mu.Unlock()
	s.notify(snap.key, snap.value)
}

// Invalidate marks keys stale so the next Resolve refetches them. Existing
// values stay readable until then.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	marked := make([]Key, 0, len(keys))
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.stale = true
			marked = append(marked, key)
		}
	}
	s.mu.Unlock()
	for _, key := range marked {
		if v, ok := s.Get(key); ok {
			s.notify(key, v)
		}
	}
}

// Clear drops every entry and cancels all in-flight refetches. It runs
// synchronously so no stale response from a previous workshop or session can
// land after the caller has moved on.
func (s *Store) Clear() {
	s.mu.Lock()
	for _, e := range s.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
	s.entries = make(map[Key]*entry)
	s.mu.Unlock()
	s.logger.Info("Cache cleared")
}

// CancelRefetch aborts any in-flight refetch for key so a concurrent
// optimistic write cannot be overwritten by a late response.
func (s *Store) CancelRefetch(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// InErrorState reports whether the last fetch for key failed. Pollers use
// this to suspend periodic refetches until some fetch succeeds again.
func (s *Store) InErrorState(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.lastErr != nil
}

// Subscribe registers a callback invoked after every mutation of key. The
// returned function unsubscribes.
func (s *Store) Subscribe(key Key, fn func(Key, interface{})) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]func(Key, interface{}))
	}
	id := s.nextSub
	s.nextSub++
	s.subs[key][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
	}
}

// Resolve returns the cached value when it is fresh, otherwise runs fetch
// and reconciles the result. staleAfter of zero forces a refetch. A fetch
// cancelled by a concurrent optimistic write returns the current cached
// value without touching the entry.
func (s *Store) Resolve(ctx context.Context, key Key, staleAfter time.Duration, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	s.mu.Lock()
	e := s.ensureLocked(key)
	if e.exists && !e.stale && e.lastErr == nil && staleAfter > 0 && s.nowFunc().Sub(e.fetchedAt) < staleAfter {
		value := e.value
		s.mu.Unlock()
		return value, nil
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	e.fetchGen++
	gen := e.fetchGen
	e.cancel = cancel
	s.mu.Unlock()

	value, err := fetch(fetchCtx)

	s.mu.Lock()
	e = s.ensureLocked(key)
	// A cancelled fetchCtx at this point can only mean OptimisticWrite,
	// CancelRefetch, or Clear aborted this fetch. The check must precede
	// releasing our own context below.
	superseded := fetchCtx.Err() == context.Canceled && ctx.Err() == nil
	owner := e.fetchGen == gen
	if owner {
		e.cancel = nil
	}
	cancel()
	if superseded {
		// The optimistic value wins; hand back whatever the cache holds now.
		current := e.value
		s.mu.Unlock()
		return current, nil
	}
	if err != nil {
		if owner {
			e.lastErr = err
		}
		s.mu.Unlock()
		return nil, err
	}
	if !owner {
		// A newer fetch owns the entry. Return this response to the caller
		// without letting it overwrite the newer result.
		s.mu.Unlock()
		return value, nil
	}
	e.value = value
	e.exists = true
	e.fetchedAt = s.nowFunc()
	e.stale = false
	e.lastErr = nil
	s.mu.Unlock()

	s.notify(key, value)
	return value, nil
}

func (s *Store) ensureLocked(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) notify(key Key, value interface{}) {
	s.mu.Lock()
	fns := make([]func(Key, interface{}), 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(key, value)
	}
}
