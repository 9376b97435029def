package sync

import (
	"context"
	"time"

	"workshop-client/internal/cache"
	"workshop-client/internal/models"
)

// Staleness holds the per-resource window after which a cached query is
// refetched on access.
type Staleness struct {
	Workshop    time.Duration
	Traces      time.Duration
	Annotations time.Duration
	Findings    time.Duration
	Rubric      time.Duration
	IRR         time.Duration
}

// DefaultStaleness keeps workshop and progress data fresh while letting the
// mostly-immutable traces and rubric live longer.
func DefaultStaleness() Staleness {
	return Staleness{
		Workshop:    30 * time.Second,
		Traces:      5 * time.Minute,
		Annotations: 30 * time.Second,
		Findings:    30 * time.Second,
		Rubric:      5 * time.Minute,
		IRR:         time.Minute,
	}
}

// Workshop returns the cached workshop, refetching when stale.
func (e *Engine) Workshop(ctx context.Context, workshopID string) (*models.Workshop, error) {
	v, err := e.cache.Resolve(ctx, cache.WorkshopKey(workshopID), e.stale.Workshop, func(fctx context.Context) (interface{}, error) {
		return e.api.GetWorkshop(fctx, workshopID)
	})
	if err != nil {
		return nil, err
	}
	workshop, _ := v.(*models.Workshop)
	return workshop, nil
}

// Traces returns the participant-scoped trace list.
func (e *Engine) Traces(ctx context.Context, workshopID, userID string) ([]models.Trace, error) {
	v, err := e.cache.Resolve(ctx, cache.TracesKey(workshopID), e.stale.Traces, func(fctx context.Context) (interface{}, error) {
		return e.api.GetTraces(fctx, workshopID, userID)
	})
	if err != nil {
		return nil, err
	}
	traces, _ := v.([]models.Trace)
	return traces, nil
}

// TracesForAlignment returns the unscoped trace list facilitators use when
// toggling alignment flags.
func (e *Engine) TracesForAlignment(ctx context.Context, workshopID string) ([]models.Trace, error) {
	v, err := e.cache.Resolve(ctx, cache.TracesForAlignmentKey(workshopID), e.stale.Traces, func(fctx context.Context) (interface{}, error) {
		return e.api.GetAllTraces(fctx, workshopID)
	})
	if err != nil {
		return nil, err
	}
	traces, _ := v.([]models.Trace)
	return traces, nil
}

// OwnAnnotations returns the participant's annotations, refetching when
// stale. Fetched records seed the engine's change detection so resubmitting
// unchanged values stays a no-op across page loads.
func (e *Engine) OwnAnnotations(ctx context.Context, workshopID, userID string) ([]models.Annotation, error) {
	v, err := e.cache.Resolve(ctx, cache.AnnotationsKey(workshopID, userID), e.stale.Annotations, func(fctx context.Context) (interface{}, error) {
		return e.fetchAnnotations(fctx, workshopID, userID)
	})
	if err != nil {
		return nil, err
	}
	annotations, _ := v.([]models.Annotation)
	return annotations, nil
}

func (e *Engine) fetchAnnotations(ctx context.Context, workshopID, userID string) (interface{}, error) {
	fetched, err := e.api.GetAnnotations(ctx, workshopID, userID)
	if err != nil {
		return nil, err
	}
	annotations := make([]models.Annotation, len(fetched))
	for i := range fetched {
		annotations[i] = normalizeAnnotation(fetched[i])
	}

	e.mu.Lock()
	for i := range annotations {
		a := &annotations[i]
		e.lastSaved[pairKey(a.TraceID, a.UserID)] = models.Annotation{
			TraceID:         a.TraceID,
			UserID:          a.UserID,
			Ratings:         cloneRatings(a.Ratings),
			Comment:         a.Comment,
			FreeformAnswers: cloneStrings(a.FreeformAnswers),
		}
		e.submitted[a.TraceID] = struct{}{}
	}
	e.mu.Unlock()
	return annotations, nil
}

// normalizeAnnotation lifts legacy marker-embedded free-form answers out of
// the comment string into the structured field. Business logic only ever
// sees the structured form.
func normalizeAnnotation(a models.Annotation) models.Annotation {
	if a.FreeformAnswers == nil {
		if plain, answers := models.DecodeComment(a.Comment); answers != nil {
			a.Comment = plain
			a.FreeformAnswers = answers
		}
	}
	return a
}

// Findings returns the participant's findings, refetching when stale.
func (e *Engine) Findings(ctx context.Context, workshopID, userID string) ([]models.Finding, error) {
	v, err := e.cache.Resolve(ctx, cache.FindingsKey(workshopID, userID), e.stale.Findings, func(fctx context.Context) (interface{}, error) {
		return e.api.GetFindings(fctx, workshopID, userID)
	})
	if err != nil {
		return nil, err
	}
	findings, _ := v.([]models.Finding)
	return findings, nil
}

// Rubric returns the workshop's rubric. A workshop with no rubric yet
// resolves to nil without an error and is cached as absent.
func (e *Engine) Rubric(ctx context.Context, workshopID string) (*models.Rubric, error) {
	v, err := e.cache.Resolve(ctx, cache.RubricKey(workshopID), e.stale.Rubric, func(fctx context.Context) (interface{}, error) {
		return e.api.GetRubric(fctx, workshopID)
	})
	if err != nil {
		return nil, err
	}
	rubric, _ := v.(*models.Rubric)
	return rubric, nil
}

// IRR returns the backend's inter-rater reliability result for the
// workshop, refetching when stale.
func (e *Engine) IRR(ctx context.Context, workshopID string) (*models.IRRResult, error) {
	v, err := e.cache.Resolve(ctx, cache.IRRKey(workshopID), e.stale.IRR, func(fctx context.Context) (interface{}, error) {
		return e.api.GetIRR(fctx, workshopID)
	})
	if err != nil {
		return nil, err
	}
	result, _ := v.(*models.IRRResult)
	return result, nil
}
