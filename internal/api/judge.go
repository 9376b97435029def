package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"workshop-client/internal/models"
)

// CreateJudgePromptRequest is the payload for versioning new judge prompt
// text. The backend assigns the next version number; prompt records are
// immutable once created.
type CreateJudgePromptRequest struct {
	PromptText string `json:"prompt_text"`
	ModelName  string `json:"model_name"`
}

// CreateJudgePrompt stores new prompt text as the next prompt version.
func (c *Client) CreateJudgePrompt(ctx context.Context, workshopID string, req CreateJudgePromptRequest) (*models.JudgePrompt, error) {
	var prompt models.JudgePrompt
	if err := c.do(ctx, http.MethodPost, "/workshops/"+workshopID+"/judge/prompts", req, &prompt); err != nil {
		return nil, err
	}
	return &prompt, nil
}

// ListJudgePrompts fetches the workshop's full prompt history.
func (c *Client) ListJudgePrompts(ctx context.Context, workshopID string) ([]models.JudgePrompt, error) {
	var prompts []models.JudgePrompt
	if err := c.do(ctx, http.MethodGet, "/workshops/"+workshopID+"/judge/prompts", nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// EvaluateJudgePrompt runs a prompt against traces and returns the resulting
// evaluations. An empty traceIDs slice evaluates the whole alignment set.
func (c *Client) EvaluateJudgePrompt(ctx context.Context, workshopID, promptID string, traceIDs []string) ([]models.JudgeEvaluation, error) {
	reqBody := struct {
		TraceIDs []string `json:"trace_ids,omitempty"`
	}{TraceIDs: traceIDs}

	var evaluations []models.JudgeEvaluation
	path := "/workshops/" + workshopID + "/judge/prompts/" + promptID + "/evaluate"
	if err := c.do(ctx, http.MethodPost, path, reqBody, &evaluations); err != nil {
		return nil, err
	}
	return evaluations, nil
}

// GetJudgeEvaluations fetches the stored evaluations for a prompt.
func (c *Client) GetJudgeEvaluations(ctx context.Context, workshopID, promptID string) ([]models.JudgeEvaluation, error) {
	var evaluations []models.JudgeEvaluation
	path := "/workshops/" + workshopID + "/judge/prompts/" + promptID + "/evaluations"
	if err := c.do(ctx, http.MethodGet, path, nil, &evaluations); err != nil {
		return nil, err
	}
	return evaluations, nil
}

// Export formats supported by the backend's judge-config export.
const (
	ExportFormatJSON = "json"
	ExportFormatCode = "code"
)

// ExportJudgeConfig downloads the judge configuration for a prompt in the
// given format and returns the raw document.
func (c *Client) ExportJudgeConfig(ctx context.Context, workshopID, promptID, format string) ([]byte, error) {
	path := fmt.Sprintf("/workshops/%s/judge/prompts/%s/export?format=%s", workshopID, promptID, url.QueryEscape(format))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read export body: %w", err)
	}
	return buf.Bytes(), nil
}
