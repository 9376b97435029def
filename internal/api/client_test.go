package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"workshop-client/internal/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, r *gin.Engine) *Client {
	t.Helper()
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-token", zap.NewNop())
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	r := gin.New()
	r.GET("/workshops/:id", func(c *gin.Context) {
		gotAuth = c.GetHeader("Authorization")
		c.JSON(http.StatusOK, models.Workshop{ID: c.Param("id")})
	})

	client := newTestClient(t, r)
	w, err := client.GetWorkshop(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestErrorDetailFromBody(t *testing.T) {
	r := gin.New()
	r.GET("/workshops/:id", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "workshop_id is malformed"})
	})

	client := newTestClient(t, r)
	_, err := client.GetWorkshop(context.Background(), "w1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "workshop_id is malformed", apiErr.Detail)
	assert.False(t, apiErr.Transient())
}

func TestErrorDetailFallsBackToStatusText(t *testing.T) {
	r := gin.New()
	r.GET("/workshops/:id", func(c *gin.Context) {
		c.String(http.StatusServiceUnavailable, "not json at all")
	})

	client := newTestClient(t, r)
	_, err := client.GetWorkshop(context.Background(), "w1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), apiErr.Detail)
	assert.True(t, apiErr.Transient())
	assert.True(t, IsTransient(err))
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: http.StatusInternalServerError}).Transient())
	assert.True(t, (&APIError{StatusCode: http.StatusServiceUnavailable}).Transient())
	assert.False(t, (&APIError{StatusCode: http.StatusBadRequest}).Transient())
	assert.False(t, (&APIError{StatusCode: http.StatusUnauthorized}).Transient())
	assert.False(t, (&APIError{StatusCode: http.StatusNotFound}).Transient())
}

func TestGetRubricAbsentIsNotAnError(t *testing.T) {
	r := gin.New()
	r.GET("/workshops/:id/rubric", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no rubric yet"})
	})

	client := newTestClient(t, r)
	rubric, err := client.GetRubric(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, rubric)
}

func TestGetRubricPropagatesOtherErrors(t *testing.T) {
	r := gin.New()
	r.GET("/workshops/:id/rubric", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "backend down"})
	})

	client := newTestClient(t, r)
	_, err := client.GetRubric(context.Background(), "w1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGetTracesScopesByUser(t *testing.T) {
	var gotUserID string
	r := gin.New()
	r.GET("/workshops/:id/traces", func(c *gin.Context) {
		gotUserID = c.Query("user_id")
		c.JSON(http.StatusOK, []models.Trace{{ID: "t1"}})
	})

	client := newTestClient(t, r)
	traces, err := client.GetTraces(context.Background(), "w1", "user with spaces")
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, "user with spaces", gotUserID)
}

func TestSetTraceAlignmentQuery(t *testing.T) {
	var gotFlag string
	r := gin.New()
	r.PATCH("/workshops/:id/traces/:trace/alignment", func(c *gin.Context) {
		gotFlag = c.Query("include_in_alignment")
		c.JSON(http.StatusOK, models.Trace{ID: c.Param("trace"), IncludeInAlignment: gotFlag == "true"})
	})

	client := newTestClient(t, r)
	trace, err := client.SetTraceAlignment(context.Background(), "w1", "t1", true)
	require.NoError(t, err)
	assert.Equal(t, "true", gotFlag)
	assert.True(t, trace.IncludeInAlignment)
}

func TestExportJudgeConfigReturnsRawDocument(t *testing.T) {
	const document = `{"judge": {"model": "m", "prompt": "p"}}`
	var gotFormat string
	r := gin.New()
	r.GET("/workshops/:id/judge/prompts/:prompt/export", func(c *gin.Context) {
		gotFormat = c.Query("format")
		c.String(http.StatusOK, document)
	})

	client := newTestClient(t, r)
	raw, err := client.ExportJudgeConfig(context.Background(), "w1", "p1", ExportFormatJSON)
	require.NoError(t, err)
	assert.Equal(t, ExportFormatJSON, gotFormat)
	assert.Equal(t, document, string(raw))
}
