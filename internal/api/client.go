package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"workshop-client/internal/models"
)

// Client is a client for the workshop backend REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new workshop backend client. The token, when set, is
// sent as a bearer credential on every request.
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// do issues one JSON request and decodes the response into out when out is
// non-nil. Error responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetWorkshop fetches a workshop by id. A 404 here is terminal: the workshop
// does not exist and the caller must not retry.
func (c *Client) GetWorkshop(ctx context.Context, workshopID string) (*models.Workshop, error) {
	var workshop models.Workshop
	if err := c.do(ctx, http.MethodGet, "/workshops/"+workshopID, nil, &workshop); err != nil {
		return nil, err
	}
	return &workshop, nil
}

// AdvancePhase asks the backend to move the workshop to the next phase.
// The full updated workshop comes back for reconciliation.
func (c *Client) AdvancePhase(ctx context.Context, workshopID string, to models.Phase) (*models.Workshop, error) {
	reqBody := struct {
		Phase models.Phase `json:"phase"`
	}{Phase: to}

	var workshop models.Workshop
	if err := c.do(ctx, http.MethodPost, "/workshops/"+workshopID+"/advance-phase", reqBody, &workshop); err != nil {
		return nil, err
	}
	return &workshop, nil
}

// GetTraces fetches the traces visible to one participant.
func (c *Client) GetTraces(ctx context.Context, workshopID, userID string) ([]models.Trace, error) {
	var traces []models.Trace
	path := "/workshops/" + workshopID + "/traces?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &traces); err != nil {
		return nil, err
	}
	return traces, nil
}

// GetAllTraces fetches every trace in the workshop without user scoping.
// Facilitator-only semantics are enforced by the caller.
func (c *Client) GetAllTraces(ctx context.Context, workshopID string) ([]models.Trace, error) {
	var traces []models.Trace
	if err := c.do(ctx, http.MethodGet, "/workshops/"+workshopID+"/all-traces", nil, &traces); err != nil {
		return nil, err
	}
	return traces, nil
}

// SetTraceAlignment toggles a trace's include_in_alignment flag. The call is
// idempotent and returns the updated trace.
func (c *Client) SetTraceAlignment(ctx context.Context, workshopID, traceID string, include bool) (*models.Trace, error) {
	var trace models.Trace
	path := fmt.Sprintf("/workshops/%s/traces/%s/alignment?include_in_alignment=%t", workshopID, traceID, include)
	if err := c.do(ctx, http.MethodPatch, path, nil, &trace); err != nil {
		return nil, err
	}
	return &trace, nil
}

// GetCompletionStatus fetches aggregate phase-completion progress.
func (c *Client) GetCompletionStatus(ctx context.Context, workshopID string) (*models.CompletionStatus, error) {
	var status models.CompletionStatus
	if err := c.do(ctx, http.MethodGet, "/workshops/"+workshopID+"/completion-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetUserCompletion fetches one participant's phase-completion progress.
func (c *Client) GetUserCompletion(ctx context.Context, workshopID, userID string) (*models.UserCompletion, error) {
	var completion models.UserCompletion
	path := "/workshops/" + workshopID + "/completion-status/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

// GetIRR triggers and fetches the backend's inter-rater reliability
// computation for the workshop.
func (c *Client) GetIRR(ctx context.Context, workshopID string) (*models.IRRResult, error) {
	var result models.IRRResult
	if err := c.do(ctx, http.MethodGet, "/workshops/"+workshopID+"/irr", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
