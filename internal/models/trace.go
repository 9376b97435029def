package models

import "time"

// Trace is one LLM input/output pair under evaluation. Traces are immutable
// once ingested except for the alignment flag, which facilitators toggle.
type Trace struct {
	ID                 string  `json:"id"`
	WorkshopID         string  `json:"workshop_id"`
	Input              string  `json:"input"`
	Output             string  `json:"output"`
	Context            string  `json:"context,omitempty"`
	MLFlowRunID        *string `json:"mlflow_run_id,omitempty"`
	MLFlowTraceID      *string `json:"mlflow_trace_id,omitempty"`
	IncludeInAlignment bool    `json:"include_in_alignment"`
}

// Finding is a free-text discovery-phase insight a participant records about
// a trace. The backend keeps one logical finding per (trace, user) pair and
// updates it on resubmission.
type Finding struct {
	ID         string    `json:"id"`
	WorkshopID string    `json:"workshop_id"`
	TraceID    string    `json:"trace_id"`
	UserID     string    `json:"user_id"`
	Insight    string    `json:"insight"`
	CreatedAt  time.Time `json:"created_at"`
}
