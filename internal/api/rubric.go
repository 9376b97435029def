package api

import (
	"context"
	"net/http"

	"workshop-client/internal/models"
)

// GetRubric fetches the workshop's rubric. A workshop legitimately has no
// rubric before the rubric phase, so a 404 is an absent result, not an error.
func (c *Client) GetRubric(ctx context.Context, workshopID string) (*models.Rubric, error) {
	var rubric models.Rubric
	err := c.do(ctx, http.MethodGet, "/workshops/"+workshopID+"/rubric", nil, &rubric)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rubric, nil
}

// CreateRubric creates the workshop's rubric.
func (c *Client) CreateRubric(ctx context.Context, workshopID string, rubric models.Rubric) (*models.Rubric, error) {
	var saved models.Rubric
	if err := c.do(ctx, http.MethodPost, "/workshops/"+workshopID+"/rubric", rubric, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateRubric replaces the workshop's rubric.
func (c *Client) UpdateRubric(ctx context.Context, workshopID string, rubric models.Rubric) (*models.Rubric, error) {
	var saved models.Rubric
	if err := c.do(ctx, http.MethodPut, "/workshops/"+workshopID+"/rubric", rubric, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateRubricQuestion updates a single rubric question in place.
func (c *Client) UpdateRubricQuestion(ctx context.Context, workshopID string, question models.RubricQuestion) (*models.RubricQuestion, error) {
	var saved models.RubricQuestion
	path := "/workshops/" + workshopID + "/rubric/questions/" + question.ID
	if err := c.do(ctx, http.MethodPut, path, question, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteRubricQuestion removes a single rubric question.
func (c *Client) DeleteRubricQuestion(ctx context.Context, workshopID, questionID string) error {
	path := "/workshops/" + workshopID + "/rubric/questions/" + questionID
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
