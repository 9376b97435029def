package api

import (
	"context"
	"net/http"
	"net/url"

	"workshop-client/internal/models"
)

// SubmitAnnotationRequest is the payload for creating or updating one
// participant's annotation of a trace. The backend upserts by
// (trace_id, user_id).
type SubmitAnnotationRequest struct {
	TraceID         string             `json:"trace_id"`
	UserID          string             `json:"user_id"`
	Rating          int                `json:"rating,omitempty"`
	Ratings         map[string]float64 `json:"ratings,omitempty"`
	Comment         string             `json:"comment,omitempty"`
	FreeformAnswers map[string]string  `json:"freeform_answers,omitempty"`
}

// GetAnnotations fetches annotations for a workshop. An empty userID returns
// all annotations; facilitator-only semantics are enforced by the caller.
func (c *Client) GetAnnotations(ctx context.Context, workshopID, userID string) ([]models.Annotation, error) {
	path := "/workshops/" + workshopID + "/annotations"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	var annotations []models.Annotation
	if err := c.do(ctx, http.MethodGet, path, nil, &annotations); err != nil {
		return nil, err
	}
	return annotations, nil
}

// SubmitAnnotation creates or updates an annotation and returns the
// authoritative server record.
func (c *Client) SubmitAnnotation(ctx context.Context, workshopID string, req SubmitAnnotationRequest) (*models.Annotation, error) {
	var annotation models.Annotation
	if err := c.do(ctx, http.MethodPost, "/workshops/"+workshopID+"/annotations", req, &annotation); err != nil {
		return nil, err
	}
	return &annotation, nil
}

// SubmitFindingRequest is the payload for recording a discovery insight.
// The backend upserts by (trace_id, user_id).
type SubmitFindingRequest struct {
	TraceID string `json:"trace_id"`
	UserID  string `json:"user_id"`
	Insight string `json:"insight"`
}

// GetFindings fetches findings for a workshop, optionally scoped to one
// participant by userID.
func (c *Client) GetFindings(ctx context.Context, workshopID, userID string) ([]models.Finding, error) {
	path := "/workshops/" + workshopID + "/findings"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	var findings []models.Finding
	if err := c.do(ctx, http.MethodGet, path, nil, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// SubmitFinding creates or updates a finding and returns the authoritative
// server record.
func (c *Client) SubmitFinding(ctx context.Context, workshopID string, req SubmitFindingRequest) (*models.Finding, error) {
	var finding models.Finding
	if err := c.do(ctx, http.MethodPost, "/workshops/"+workshopID+"/findings", req, &finding); err != nil {
		return nil, err
	}
	return &finding, nil
}
