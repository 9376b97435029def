package models

import "time"

// JudgePrompt is one immutable version of the LLM-as-judge prompt for a
// workshop. New prompt text gets a new record with a higher version, never
// an in-place edit, so the full prompt history is preserved.
type JudgePrompt struct {
	ID                 string             `json:"id"`
	WorkshopID         string             `json:"workshop_id"`
	Version            int                `json:"version"`
	PromptText         string             `json:"prompt_text"`
	ModelName          string             `json:"model_name"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// JudgeEvaluation is the result of running one judge prompt against one
// trace, compared to the aggregated human rating for that trace.
type JudgeEvaluation struct {
	ID              string  `json:"id"`
	PromptID        string  `json:"prompt_id"`
	TraceID         string  `json:"trace_id"`
	PredictedRating float64 `json:"predicted_rating"`
	HumanRating     float64 `json:"human_rating"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// IRRResult is the backend's inter-rater reliability computation for a
// workshop.
type IRRResult struct {
	Score          float64    `json:"score"`
	ReadyToProceed bool       `json:"ready_to_proceed"`
	Details        IRRDetails `json:"details"`
}

// IRRDetails carries the per-metric breakdown behind an IRR score.
type IRRDetails struct {
	PerMetricScores     map[string]float64 `json:"per_metric_scores,omitempty"`
	Interpretation      string             `json:"interpretation,omitempty"`
	Suggestions         []string           `json:"suggestions,omitempty"`
	ProblematicPatterns []string           `json:"problematic_patterns,omitempty"`
}
