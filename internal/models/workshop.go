package models

// Phase is one step of the workshop's fixed linear progression.
type Phase string

const (
	PhaseIntake      Phase = "intake"
	PhaseDiscovery   Phase = "discovery"
	PhaseRubric      Phase = "rubric"
	PhaseAnnotation  Phase = "annotation"
	PhaseResults     Phase = "results"
	PhaseJudgeTuning Phase = "judge_tuning"
	PhaseUnityVolume Phase = "unity_volume"
)

// PhaseOrder is the forward-only sequence of workshop phases.
var PhaseOrder = []Phase{
	PhaseIntake,
	PhaseDiscovery,
	PhaseRubric,
	PhaseAnnotation,
	PhaseResults,
	PhaseJudgeTuning,
	PhaseUnityVolume,
}

// PhaseIndex returns the position of p in PhaseOrder, or -1 for an unknown phase.
func PhaseIndex(p Phase) int {
	for i, candidate := range PhaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Workshop represents one facilitated calibration session.
// CurrentPhase and CompletedPhases are server-authoritative.
type Workshop struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	CurrentPhase         Phase   `json:"current_phase"`
	CompletedPhases      []Phase `json:"completed_phases"`
	ShowParticipantNotes bool    `json:"show_participant_notes"`
	MLFlowExperimentID   string  `json:"mlflow_experiment_id,omitempty"`
	JudgeModelName       string  `json:"judge_model_name,omitempty"`
}

// PhaseCompleted reports whether the server has marked p complete.
func (w *Workshop) PhaseCompleted(p Phase) bool {
	for _, completed := range w.CompletedPhases {
		if completed == p {
			return true
		}
	}
	return false
}

// CompletionStatus summarizes how far all participants have progressed
// through the current phase.
type CompletionStatus struct {
	WorkshopID        string `json:"workshop_id"`
	TotalParticipants int    `json:"total_participants"`
	CompletedCount    int    `json:"completed_count"`
}

// UserCompletion reports a single participant's progress in the current phase.
type UserCompletion struct {
	WorkshopID      string `json:"workshop_id"`
	UserID          string `json:"user_id"`
	CompletedTraces int    `json:"completed_traces"`
	TotalTraces     int    `json:"total_traces"`
	Done            bool   `json:"done"`
}
