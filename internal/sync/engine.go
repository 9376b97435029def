// Package sync owns the optimistic-write protocol between the query cache
// and the workshop backend: submissions apply to the cache immediately, get
// reconciled with the server response, and roll back in full on failure.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"workshop-client/internal/api"
	"workshop-client/internal/cache"
	"workshop-client/internal/models"
	"workshop-client/internal/phase"
)

// ErrSaveInProgress means a save for the same trace (or another
// user-initiated save) is already in flight. The caller should skip, not
// queue: the in-flight save is expected to complete normally.
var ErrSaveInProgress = errors.New("save already in progress")

// Engine coordinates optimistic mutations, retries, and cache invalidation.
type Engine struct {
	api    *api.Client
	cache  *cache.Store
	retry  RetryPolicy
	stale  Staleness
	logger *zap.Logger

	mu             sync.Mutex
	inflightTraces map[string]struct{}
	userSaveActive bool
	lastSaved      map[string]models.Annotation
	submitted      map[string]struct{}
}

// NewEngine creates a sync engine over the given backend client and cache.
func NewEngine(apiClient *api.Client, store *cache.Store, retry RetryPolicy, stale Staleness, logger *zap.Logger) *Engine {
	return &Engine{
		api:            apiClient,
		cache:          store,
		retry:          retry,
		stale:          stale,
		logger:         logger,
		inflightTraces: make(map[string]struct{}),
		lastSaved:      make(map[string]models.Annotation),
		submitted:      make(map[string]struct{}),
	}
}

// Cache exposes the store for subscription by a UI adapter.
func (e *Engine) Cache() *cache.Store {
	return e.cache
}

// IsSubmitted reports whether the trace has been saved (or no-op confirmed)
// in this session.
func (e *Engine) IsSubmitted(traceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.submitted[traceID]
	return ok
}

// SubmittedCount returns how many traces are locally marked submitted.
func (e *Engine) SubmittedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submitted)
}

// SwitchWorkshop synchronously clears every cached query and all local save
// state. Entries from different workshops must never coexist, and no stale
// in-flight response from the previous workshop may land afterwards.
func (e *Engine) SwitchWorkshop(workshopID string) {
	e.cache.Clear()
	e.resetLocal()
	e.logger.Info("Switched workshop", zap.String("workshop_id", workshopID))
}

// Logout clears all cached and local state.
func (e *Engine) Logout() {
	e.cache.Clear()
	e.resetLocal()
	e.logger.Info("Session cleared")
}

func (e *Engine) resetLocal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflightTraces = make(map[string]struct{})
	e.userSaveActive = false
	e.lastSaved = make(map[string]models.Annotation)
	e.submitted = make(map[string]struct{})
}

// ToggleTraceAlignment flips a trace's alignment flag and invalidates the
// trace queries that render it.
func (e *Engine) ToggleTraceAlignment(ctx context.Context, workshopID, traceID string, include bool) (*models.Trace, error) {
	trace, err := e.api.SetTraceAlignment(ctx, workshopID, traceID, include)
	if err != nil {
		return nil, fmt.Errorf("alignment toggle failed: %w", err)
	}
	e.cache.Invalidate(cache.TracesKey(workshopID), cache.TracesForAlignmentKey(workshopID))
	return trace, nil
}

// AdvancePhase moves the workshop to the next phase. Local preconditions
// are checked first and rejected with an explanatory error before any
// network call; inferred completions never factor into this gate.
func (e *Engine) AdvancePhase(ctx context.Context, w *models.Workshop, counts phase.DataCounts) (*models.Workshop, error) {
	if err := phase.CanAdvance(w, w.CurrentPhase, counts); err != nil {
		return nil, err
	}
	updated, err := e.api.AdvancePhase(ctx, w.ID, phase.Next(w.CurrentPhase))
	if err != nil {
		return nil, fmt.Errorf("phase advance failed: %w", err)
	}
	e.cache.Reconcile(cache.WorkshopKey(w.ID), updated)
	e.cache.Invalidate(
		cache.CompletionStatusKey(w.ID),
		cache.IRRKey(w.ID),
	)
	e.logger.Info("Workshop phase advanced",
		zap.String("workshop_id", w.ID),
		zap.String("phase", string(updated.CurrentPhase)))
	return updated, nil
}

func pairKey(traceID, userID string) string {
	return traceID + "|" + userID
}
