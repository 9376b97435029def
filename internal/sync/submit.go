package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workshop-client/internal/api"
	"workshop-client/internal/cache"
	"workshop-client/internal/models"
)

type saveMode int

const (
	saveForeground saveMode = iota
	saveBackground
)

// AnnotationDraft is the participant's current form state for one trace.
type AnnotationDraft struct {
	WorkshopID      string
	TraceID         string
	UserID          string
	Ratings         map[string]float64
	Comment         string
	FreeformAnswers map[string]string
}

func (d AnnotationDraft) clone() AnnotationDraft {
	c := d
	c.Ratings = cloneRatings(d.Ratings)
	c.FreeformAnswers = cloneStrings(d.FreeformAnswers)
	return c
}

// SubmitOutcome describes what happened to a submission. NoOp means the
// draft matched the last saved state and no network call was made; the
// trace is still marked submitted. Background means the save was handed off
// and will be retried out of band.
type SubmitOutcome struct {
	Annotation *models.Annotation
	NoOp       bool
	Background bool
}

// SubmitAnnotation runs the optimistic submission protocol for a
// user-initiated save: cancel any in-flight refetch for the annotations
// query, snapshot it, write a temporary record, call the backend with
// retries, then reconcile and cascade invalidations, or roll back in full.
func (e *Engine) SubmitAnnotation(ctx context.Context, draft AnnotationDraft) (SubmitOutcome, error) {
	return e.submitAnnotation(ctx, draft, saveForeground)
}

// SaveOnNavigate saves the draft when the participant moves to another
// trace. The values are captured synchronously, before the caller resets
// form state for the next trace. The final trace is saved in the foreground
// so the all-complete state is durable before the UI declares completion;
// every other trace saves in the background with automatic retries.
func (e *Engine) SaveOnNavigate(ctx context.Context, draft AnnotationDraft, finalTrace bool) (SubmitOutcome, error) {
	if finalTrace {
		return e.submitAnnotation(ctx, draft, saveForeground)
	}

	captured := draft.clone()
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := e.submitAnnotation(bgCtx, captured, saveBackground); err != nil {
			if errors.Is(err, ErrSaveInProgress) {
				return
			}
			e.logger.Warn("Background save failed",
				zap.String("trace_id", captured.TraceID),
				zap.Error(err))
		}
	}()
	return SubmitOutcome{Background: true}, nil
}

func (e *Engine) submitAnnotation(ctx context.Context, draft AnnotationDraft, mode saveMode) (SubmitOutcome, error) {
	pair := pairKey(draft.TraceID, draft.UserID)

	e.mu.Lock()
	if saved, ok := e.lastSaved[pair]; ok && saved.SameContent(draft.Ratings, draft.Comment, draft.FreeformAnswers) {
		// Nothing changed since the last successful save: no network call,
		// but the trace still counts as submitted.
		e.submitted[draft.TraceID] = struct{}{}
		e.mu.Unlock()
		return SubmitOutcome{NoOp: true}, nil
	}
	if _, busy := e.inflightTraces[draft.TraceID]; busy {
		e.mu.Unlock()
		e.logger.Warn("Skipping save, another is in flight for this trace",
			zap.String("trace_id", draft.TraceID))
		return SubmitOutcome{}, ErrSaveInProgress
	}
	if mode == saveForeground && e.userSaveActive {
		e.mu.Unlock()
		e.logger.Warn("Skipping save, another user-initiated save is active",
			zap.String("trace_id", draft.TraceID))
		return SubmitOutcome{}, ErrSaveInProgress
	}
	e.inflightTraces[draft.TraceID] = struct{}{}
	if mode == saveForeground {
		e.userSaveActive = true
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inflightTraces, draft.TraceID)
		if mode == saveForeground {
			e.userSaveActive = false
		}
		e.mu.Unlock()
	}()

	key := cache.AnnotationsKey(draft.WorkshopID, draft.UserID)
	e.cache.CancelRefetch(key)
	snap := e.cache.Take(key)

	temp := models.Annotation{
		ID:              tempID(),
		WorkshopID:      draft.WorkshopID,
		TraceID:         draft.TraceID,
		UserID:          draft.UserID,
		Ratings:         cloneRatings(draft.Ratings),
		Comment:         draft.Comment,
		FreeformAnswers: cloneStrings(draft.FreeformAnswers),
		CreatedAt:       time.Now(),
	}
	current, _ := e.cache.Get(key)
	e.cache.OptimisticWrite(key, upsertAnnotation(asAnnotations(current), temp))

	attempts := e.retry.SubmissionAttempts
	if mode == saveBackground {
		attempts = e.retry.BackgroundAttempts
	}

	var saved *models.Annotation
	err := e.retry.run(ctx, attempts, e.logger, func() error {
		resp, reqErr := e.api.SubmitAnnotation(ctx, draft.WorkshopID, api.SubmitAnnotationRequest{
			TraceID:         draft.TraceID,
			UserID:          draft.UserID,
			Ratings:         draft.Ratings,
			Comment:         draft.Comment,
			FreeformAnswers: draft.FreeformAnswers,
		})
		if reqErr != nil {
			return reqErr
		}
		saved = resp
		return nil
	})
	if err != nil {
		e.cache.Rollback(snap)
		return SubmitOutcome{}, fmt.Errorf("annotation save failed: %w", err)
	}

	current, _ = e.cache.Get(key)
	e.cache.Reconcile(key, upsertAnnotation(asAnnotations(current), normalizeAnnotation(*saved)))

	e.mu.Lock()
	e.lastSaved[pair] = models.Annotation{
		TraceID:         draft.TraceID,
		UserID:          draft.UserID,
		Ratings:         cloneRatings(draft.Ratings),
		Comment:         draft.Comment,
		FreeformAnswers: cloneStrings(draft.FreeformAnswers),
	}
	e.submitted[draft.TraceID] = struct{}{}
	e.mu.Unlock()

	e.refetchOwnAnnotations(ctx, draft.WorkshopID, draft.UserID)
	e.cache.Invalidate(
		cache.WorkshopKey(draft.WorkshopID),
		cache.IRRKey(draft.WorkshopID),
		cache.AllFindingsKey(draft.WorkshopID),
	)
	return SubmitOutcome{Annotation: saved}, nil
}

// refetchOwnAnnotations forces an immediate refetch of the participant's
// annotations rather than just marking them stale.
func (e *Engine) refetchOwnAnnotations(ctx context.Context, workshopID, userID string) {
	key := cache.AnnotationsKey(workshopID, userID)
	_, err := e.cache.Resolve(ctx, key, 0, func(fctx context.Context) (interface{}, error) {
		return e.fetchAnnotations(fctx, workshopID, userID)
	})
	if err != nil {
		e.logger.Warn("Post-save annotation refetch failed",
			zap.String("workshop_id", workshopID),
			zap.Error(err))
	}
}

// FindingDraft is a participant's discovery insight for one trace.
type FindingDraft struct {
	WorkshopID string
	TraceID    string
	UserID     string
	Insight    string
}

// SubmitFinding runs the optimistic submission protocol for a discovery
// finding, then invalidates the completion and findings queries that depend
// on it.
func (e *Engine) SubmitFinding(ctx context.Context, draft FindingDraft) (*models.Finding, error) {
	e.mu.Lock()
	if _, busy := e.inflightTraces[draft.TraceID]; busy {
		e.mu.Unlock()
		e.logger.Warn("Skipping finding save, another save is in flight for this trace",
			zap.String("trace_id", draft.TraceID))
		return nil, ErrSaveInProgress
	}
	e.inflightTraces[draft.TraceID] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inflightTraces, draft.TraceID)
		e.mu.Unlock()
	}()

	key := cache.FindingsKey(draft.WorkshopID, draft.UserID)
	e.cache.CancelRefetch(key)
	snap := e.cache.Take(key)

	temp := models.Finding{
		ID:         tempID(),
		WorkshopID: draft.WorkshopID,
		TraceID:    draft.TraceID,
		UserID:     draft.UserID,
		Insight:    draft.Insight,
		CreatedAt:  time.Now(),
	}
	current, _ := e.cache.Get(key)
	e.cache.OptimisticWrite(key, upsertFinding(asFindings(current), temp))

	var saved *models.Finding
	err := e.retry.run(ctx, e.retry.SubmissionAttempts, e.logger, func() error {
		resp, reqErr := e.api.SubmitFinding(ctx, draft.WorkshopID, api.SubmitFindingRequest{
			TraceID: draft.TraceID,
			UserID:  draft.UserID,
			Insight: draft.Insight,
		})
		if reqErr != nil {
			return reqErr
		}
		saved = resp
		return nil
	})
	if err != nil {
		e.cache.Rollback(snap)
		return nil, fmt.Errorf("finding save failed: %w", err)
	}

	current, _ = e.cache.Get(key)
	e.cache.Reconcile(key, upsertFinding(asFindings(current), *saved))
	e.cache.Invalidate(
		cache.CompletionStatusKey(draft.WorkshopID),
		cache.UserCompletionKey(draft.WorkshopID, draft.UserID),
		cache.AllFindingsKey(draft.WorkshopID),
		cache.AllFindingsWithDetailsKey(draft.WorkshopID),
	)
	return saved, nil
}

// tempID builds a placeholder id for optimistic records. The prefix keeps
// them distinguishable from server-assigned ids during reconciliation.
func tempID() string {
	return fmt.Sprintf("pending-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

func asAnnotations(v interface{}) []models.Annotation {
	if v == nil {
		return nil
	}
	annotations, _ := v.([]models.Annotation)
	return annotations
}

func asFindings(v interface{}) []models.Finding {
	if v == nil {
		return nil
	}
	findings, _ := v.([]models.Finding)
	return findings
}

// upsertAnnotation replaces the record for record's (trace, user) pair in
// place, or appends when none exists. At most one record per pair survives.
func upsertAnnotation(list []models.Annotation, record models.Annotation) []models.Annotation {
	out := make([]models.Annotation, len(list))
	copy(out, list)
	for i := range out {
		if out[i].TraceID == record.TraceID && out[i].UserID == record.UserID {
			out[i] = record
			return out
		}
	}
	return append(out, record)
}

func upsertFinding(list []models.Finding, record models.Finding) []models.Finding {
	out := make([]models.Finding, len(list))
	copy(out, list)
	for i := range out {
		if out[i].TraceID == record.TraceID && out[i].UserID == record.UserID {
			out[i] = record
			return out
		}
	}
	return append(out, record)
}

func cloneRatings(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
