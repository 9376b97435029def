package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	stdsync "sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"workshop-client/internal/cache"
	"workshop-client/internal/models"
	"workshop-client/internal/phase"

	apiclient "workshop-client/internal/api"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubBackend is an in-memory workshop backend served through gin,
// mirroring the REST contract the engine consumes.
type stubBackend struct {
	mu stdsync.Mutex

	annotations map[string]models.Annotation // keyed by trace|user
	findings    map[string]models.Finding
	workshop    models.Workshop

	annotationPosts int
	annotationGets  int
	findingPosts    int
	workshopGets    int
	irrGets         int
	nextID          int

	// failAnnotationStatus, when nonzero, makes annotation POSTs fail.
	failAnnotationStatus int
	// blockAnnotationPost, when set, stalls annotation POSTs until closed.
	blockAnnotationPost chan struct{}
	postStarted         chan struct{}
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		annotations: make(map[string]models.Annotation),
		findings:    make(map[string]models.Finding),
		workshop: models.Workshop{
			ID:           "w1",
			CurrentPhase: models.PhaseAnnotation,
			CompletedPhases: []models.Phase{
				models.PhaseDiscovery,
				models.PhaseRubric,
			},
		},
	}
}

func (b *stubBackend) router() *gin.Engine {
	r := gin.New()

	r.GET("/workshops/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.workshopGets++
		c.JSON(http.StatusOK, b.workshop)
	})

	r.GET("/workshops/:id/irr", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.irrGets++
		c.JSON(http.StatusOK, models.IRRResult{Score: 0.8, ReadyToProceed: true})
	})

	r.GET("/workshops/:id/annotations", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.annotationGets++
		out := make([]models.Annotation, 0, len(b.annotations))
		for _, a := range b.annotations {
			out = append(out, a)
		}
		c.JSON(http.StatusOK, out)
	})

	r.POST("/workshops/:id/annotations", func(c *gin.Context) {
		b.mu.Lock()
		b.annotationPosts++
		block := b.blockAnnotationPost
		started := b.postStarted
		failStatus := b.failAnnotationStatus
		b.mu.Unlock()

		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		if block != nil {
			<-block
		}
		if failStatus != 0 {
			c.JSON(failStatus, gin.H{"detail": "simulated failure"})
			return
		}

		var req struct {
			TraceID         string             `json:"trace_id"`
			UserID          string             `json:"user_id"`
			Ratings         map[string]float64 `json:"ratings"`
			Comment         string             `json:"comment"`
			FreeformAnswers map[string]string  `json:"freeform_answers"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		record := models.Annotation{
			ID:              fmt.Sprintf("srv-%d", b.nextID),
			WorkshopID:      c.Param("id"),
			TraceID:         req.TraceID,
			UserID:          req.UserID,
			Ratings:         req.Ratings,
			Comment:         req.Comment,
			FreeformAnswers: req.FreeformAnswers,
			CreatedAt:       time.Now(),
		}
		b.annotations[req.TraceID+"|"+req.UserID] = record
		c.JSON(http.StatusOK, record)
	})

	r.POST("/workshops/:id/findings", func(c *gin.Context) {
		var req struct {
			TraceID string `json:"trace_id"`
			UserID  string `json:"user_id"`
			Insight string `json:"insight"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.findingPosts++
		b.nextID++
		record := models.Finding{
			ID:         fmt.Sprintf("srv-%d", b.nextID),
			WorkshopID: c.Param("id"),
			TraceID:    req.TraceID,
			UserID:     req.UserID,
			Insight:    req.Insight,
			CreatedAt:  time.Now(),
		}
		b.findings[req.TraceID+"|"+req.UserID] = record
		c.JSON(http.StatusOK, record)
	})

	r.POST("/workshops/:id/advance-phase", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var req struct {
			Phase models.Phase `json:"phase"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		b.workshop.CompletedPhases = append(b.workshop.CompletedPhases, b.workshop.CurrentPhase)
		b.workshop.CurrentPhase = req.Phase
		c.JSON(http.StatusOK, b.workshop)
	})

	return r
}

type backendCounts struct {
	annotationPosts int
	annotationGets  int
	findingPosts    int
	workshopGets    int
	irrGets         int
}

func (b *stubBackend) counts() backendCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return backendCounts{
		annotationPosts: b.annotationPosts,
		annotationGets:  b.annotationGets,
		findingPosts:    b.findingPosts,
		workshopGets:    b.workshopGets,
		irrGets:         b.irrGets,
	}
}

func fastRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Base:               time.Millisecond,
		Cap:                4 * time.Millisecond,
		JitterMax:          time.Millisecond,
		SubmissionAttempts: 5,
		BackgroundAttempts: 3,
	}
}

func newTestEngine(t *testing.T) (*Engine, *stubBackend) {
	t.Helper()
	backend := newStubBackend()
	server := httptest.NewServer(backend.router())
	t.Cleanup(server.Close)

	client := apiclient.NewClient(server.URL, "", zap.NewNop())
	store := cache.NewStore(zap.NewNop())
	engine := NewEngine(client, store, fastRetryPolicy(), DefaultStaleness(), zap.NewNop())
	return engine, backend
}

func draft(ratings map[string]float64, comment string) AnnotationDraft {
	return AnnotationDraft{
		WorkshopID: "w1",
		TraceID:    "t1",
		UserID:     "u1",
		Ratings:    ratings,
		Comment:    comment,
	}
}

func TestSubmitAnnotationNoOpSecondSave(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	outcome, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "ok"))
	require.NoError(t, err)
	assert.False(t, outcome.NoOp)

	outcome, err = engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "ok"))
	require.NoError(t, err)
	assert.True(t, outcome.NoOp)
	assert.True(t, engine.IsSubmitted("t1"))

	// Exactly one network call total.
	assert.Equal(t, 1, backend.counts().annotationPosts)
}

func TestSubmitAnnotationRemovedRatingKeyIsAChange(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4, "q2": 1}, "ok"))
	require.NoError(t, err)

	_, err = engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "ok"))
	require.NoError(t, err)

	assert.Equal(t, 2, backend.counts().annotationPosts)
}

func TestSubmitAnnotationAtMostOnePerPair(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 2}, "first"))
	require.NoError(t, err)
	_, err = engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 5}, "second"))
	require.NoError(t, err)

	v, ok := engine.Cache().Get(cache.AnnotationsKey("w1", "u1"))
	require.True(t, ok)
	annotations := v.([]models.Annotation)

	matches := 0
	for _, a := range annotations {
		if a.TraceID == "t1" && a.UserID == "u1" {
			matches++
			assert.Equal(t, 5.0, a.Ratings["q1"])
			assert.Equal(t, "second", a.Comment)
		}
	}
	assert.Equal(t, 1, matches)
}

func TestSubmitAnnotationRollbackOnFailure(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	// Seed the cache with a successful save.
	_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 3}, "before"))
	require.NoError(t, err)
	before, ok := engine.Cache().Get(cache.AnnotationsKey("w1", "u1"))
	require.True(t, ok)
	irrGetsBefore := backend.counts().irrGets

	backend.mu.Lock()
	backend.failAnnotationStatus = http.StatusBadRequest
	backend.mu.Unlock()

	_, err = engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 5}, "after"))
	require.Error(t, err)

	after, ok := engine.Cache().Get(cache.AnnotationsKey("w1", "u1"))
	require.True(t, ok)
	assert.Equal(t, before, after)

	// Dependent queries are not refetched on failure.
	assert.Equal(t, irrGetsBefore, backend.counts().irrGets)
}

func TestSubmitAnnotationRetriesTransientFiveTimes(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	backend.mu.Lock()
	backend.failAnnotationStatus = http.StatusServiceUnavailable
	backend.mu.Unlock()

	_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "ok"))
	require.Error(t, err)
	assert.Equal(t, 5, backend.counts().annotationPosts)
}

func TestSubmitAnnotationNoRetryOnValidationError(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	backend.mu.Lock()
	backend.failAnnotationStatus = http.StatusBadRequest
	backend.mu.Unlock()

	_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "ok"))
	require.Error(t, err)
	assert.Equal(t, 1, backend.counts().annotationPosts)
}

func TestConcurrentSaveForSameTraceSkipped(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	backend.mu.Lock()
	backend.blockAnnotationPost = block
	backend.postStarted = started
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "slow"))
		done <- err
	}()

	<-started
	_, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 5}, "fast"))
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, backend.counts().annotationPosts)
}

func TestSubmitAnnotationEndToEndInvalidation(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	// Warm the IRR query.
	_, err := engine.IRR(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.counts().irrGets)

	outcome, err := engine.SubmitAnnotation(ctx, draft(map[string]float64{"q1": 4}, "ok"))
	require.NoError(t, err)
	assert.Contains(t, outcome.Annotation.ID, "srv-")

	// The cache now holds the authoritative server record.
	v, ok := engine.Cache().Get(cache.AnnotationsKey("w1", "u1"))
	require.True(t, ok)
	annotations := v.([]models.Annotation)
	require.Len(t, annotations, 1)
	assert.Contains(t, annotations[0].ID, "srv-")

	// Own annotations were force-refetched, not just invalidated.
	assert.GreaterOrEqual(t, backend.counts().annotationGets, 1)

	// The dependent IRR query is stale and refetches on next access.
	_, err = engine.IRR(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.counts().irrGets)
}

func TestSaveOnNavigateFinalTraceIsForeground(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	outcome, err := engine.SaveOnNavigate(ctx, draft(map[string]float64{"q1": 4}, "ok"), true)
	require.NoError(t, err)
	assert.False(t, outcome.Background)
	require.NotNil(t, outcome.Annotation)

	// Durable before the call returns.
	assert.Equal(t, 1, backend.counts().annotationPosts)
}

func TestSaveOnNavigateBackgroundSave(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	outcome, err := engine.SaveOnNavigate(ctx, draft(map[string]float64{"q1": 4}, "ok"), false)
	require.NoError(t, err)
	assert.True(t, outcome.Background)

	assert.Eventually(t, func() bool {
		return backend.counts().annotationPosts == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitFindingInvalidation(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	finding, err := engine.SubmitFinding(ctx, FindingDraft{
		WorkshopID: "w1",
		TraceID:    "t1",
		UserID:     "u1",
		Insight:    "the output ignores the context document",
	})
	require.NoError(t, err)
	assert.Contains(t, finding.ID, "srv-")
	assert.Equal(t, 1, backend.counts().findingPosts)

	v, ok := engine.Cache().Get(cache.FindingsKey("w1", "u1"))
	require.True(t, ok)
	findings := v.([]models.Finding)
	require.Len(t, findings, 1)
	assert.Equal(t, finding.ID, findings[0].ID)
}

func TestSwitchWorkshopClearsCache(t *testing.T) {
	engine, backend := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Workshop(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.counts().workshopGets)

	engine.SwitchWorkshop("w2")

	_, ok := engine.Cache().Get(cache.WorkshopKey("w1"))
	assert.False(t, ok)

	// A key that existed before the switch refetches fresh data.
	_, err = engine.Workshop(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.counts().workshopGets)
}

func TestAdvancePhaseLocalPreconditionRejectedBeforeNetwork(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	w := &models.Workshop{ID: "w1", CurrentPhase: models.PhaseAnnotation}
	_, err := engine.AdvancePhase(ctx, w, phase.DataCounts{})
	assert.ErrorIs(t, err, phase.ErrPhaseNotReady)

	_, err = engine.AdvancePhase(ctx, w, phase.DataCounts{Annotations: 2})
	require.NoError(t, err)

	v, ok := engine.Cache().Get(cache.WorkshopKey("w1"))
	require.True(t, ok)
	updated := v.(*models.Workshop)
	assert.Equal(t, models.PhaseResults, updated.CurrentPhase)
}
