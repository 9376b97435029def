// Package phase derives the workshop's navigable state from the
// server-authoritative workshop record plus locally-observed data counts,
// and gates forward-only progression.
package phase

import (
	"errors"
	"fmt"

	"workshop-client/internal/models"
)

// ErrPhaseNotReady is wrapped by every precondition failure returned from
// CanAdvance, so callers can distinguish a local rejection from a network
// failure.
var ErrPhaseNotReady = errors.New("phase preconditions not met")

// DataCounts is what the client has locally observed in the cache. Used for
// best-effort completion inference and for advance preconditions.
type DataCounts struct {
	RubricQuestions int
	Findings        int
	Annotations     int
	JudgePrompts    int
	IRRReady        bool
}

// Completion merges server-reported completed phases with locally-inferred
// ones. Server entries always win and are never pruned by inference.
// Discovery and annotation completion are strictly server-authoritative;
// rubric, results, and judge tuning may additionally be inferred from data
// presence once the authoritative phase has advanced past them. Inferred
// completion is a display hint only; it never gates an irreversible action.
func Completion(w *models.Workshop, counts DataCounts) map[models.Phase]bool {
	completed := make(map[models.Phase]bool, len(models.PhaseOrder))
	for _, p := range w.CompletedPhases {
		completed[p] = true
	}

	currentIdx := models.PhaseIndex(w.CurrentPhase)
	past := func(p models.Phase) bool {
		return currentIdx > models.PhaseIndex(p)
	}

	if past(models.PhaseIntake) {
		completed[models.PhaseIntake] = true
	}
	if counts.RubricQuestions > 0 && past(models.PhaseRubric) {
		completed[models.PhaseRubric] = true
	}
	if counts.IRRReady && past(models.PhaseResults) {
		completed[models.PhaseResults] = true
	}
	if counts.JudgePrompts > 0 && past(models.PhaseJudgeTuning) {
		completed[models.PhaseJudgeTuning] = true
	}
	return completed
}

// Enabled reports whether p can be navigated to: the first phase always can;
// every other phase requires its immediate predecessor to be complete. There
// is no skip-ahead.
func Enabled(p models.Phase, completed map[models.Phase]bool) bool {
	idx := models.PhaseIndex(p)
	if idx < 0 {
		return false
	}
	if idx == 0 {
		return true
	}
	return completed[models.PhaseOrder[idx-1]]
}

// ProgressPercent is the completed-phase share for display only, never for
// gating.
func ProgressPercent(completed map[models.Phase]bool) float64 {
	count := 0
	for _, p := range models.PhaseOrder {
		if completed[p] {
			count++
		}
	}
	if count > len(models.PhaseOrder) {
		count = len(models.PhaseOrder)
	}
	return float64(count) / float64(len(models.PhaseOrder)) * 100
}

// Next returns the phase after p in the fixed order, or "" when p is last
// or unknown.
func Next(p models.Phase) models.Phase {
	idx := models.PhaseIndex(p)
	if idx < 0 || idx >= len(models.PhaseOrder)-1 {
		return ""
	}
	return models.PhaseOrder[idx+1]
}

// CanAdvance checks the local preconditions for advancing the workshop out
// of `from`. It consults only the server-authoritative current phase and
// hard data-presence requirements, never inferred completions, and rejects
// before any network call with a message distinct from a network failure.
func CanAdvance(w *models.Workshop, from models.Phase, counts DataCounts) error {
	if w.CurrentPhase != from {
		return fmt.Errorf("%w: workshop is in phase %q, not %q", ErrPhaseNotReady, w.CurrentPhase, from)
	}
	if Next(from) == "" {
		return fmt.Errorf("%w: %q is the final phase", ErrPhaseNotReady, from)
	}

	switch from {
	case models.PhaseDiscovery:
		if counts.Findings == 0 {
			return fmt.Errorf("%w: no findings submitted yet", ErrPhaseNotReady)
		}
	case models.PhaseRubric:
		if counts.RubricQuestions == 0 {
			return fmt.Errorf("%w: rubric has no questions", ErrPhaseNotReady)
		}
	case models.PhaseAnnotation:
		if counts.Annotations == 0 {
			return fmt.Errorf("%w: no annotations submitted yet", ErrPhaseNotReady)
		}
	case models.PhaseJudgeTuning:
		if counts.JudgePrompts == 0 {
			return fmt.Errorf("%w: no judge prompt created yet", ErrPhaseNotReady)
		}
	}
	return nil
}
