package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"workshop-client/internal/cache"
)

// Poll refreshes one cached query on a fixed interval until ctx is done.
// While the query is in an error state the ticker keeps running but no
// refetch is issued, so a failing backend is not hammered; the next
// successful on-demand fetch clears the error and polling resumes.
func (e *Engine) Poll(ctx context.Context, key cache.Key, interval time.Duration, fetch func(context.Context) (interface{}, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.cache.InErrorState(key) {
				e.logger.Debug("Polling suspended while query is failing",
					zap.String("key", string(key)))
				continue
			}
			if _, err := e.cache.Resolve(ctx, key, 0, fetch); err != nil {
				e.logger.Warn("Periodic refetch failed",
					zap.String("key", string(key)),
					zap.Error(err))
			}
		}
	}
}

// PollWorkshop keeps the workshop record fresh, tracking phase changes made
// by the facilitator or the backend.
func (e *Engine) PollWorkshop(ctx context.Context, workshopID string, interval time.Duration) {
	e.Poll(ctx, cache.WorkshopKey(workshopID), interval, func(fctx context.Context) (interface{}, error) {
		return e.api.GetWorkshop(fctx, workshopID)
	})
}

// PollOwnAnnotations keeps the participant's annotation list fresh.
func (e *Engine) PollOwnAnnotations(ctx context.Context, workshopID, userID string, interval time.Duration) {
	e.Poll(ctx, cache.AnnotationsKey(workshopID, userID), interval, func(fctx context.Context) (interface{}, error) {
		return e.fetchAnnotations(fctx, workshopID, userID)
	})
}
