package models

import "time"

// Annotation is one participant's ratings and comment for a trace. The
// backend keeps at most one current annotation per (trace, user) pair; new
// submissions update in place.
//
// Rating is the legacy single 1-5 value kept for backward compatibility.
// Ratings maps rubric question ids to numeric values; 0 is a valid "fail"
// value for binary questions, so absence is signalled by a missing map key,
// never by a zero value.
type Annotation struct {
	ID              string             `json:"id"`
	WorkshopID      string             `json:"workshop_id"`
	TraceID         string             `json:"trace_id"`
	UserID          string             `json:"user_id"`
	Rating          int                `json:"rating,omitempty"`
	Ratings         map[string]float64 `json:"ratings,omitempty"`
	Comment         string             `json:"comment,omitempty"`
	FreeformAnswers map[string]string  `json:"freeform_answers,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// RatingFor returns the annotator's rating for a rubric question, falling
// back to the legacy single rating when the ratings map has no entry for it.
// The second return value is false when neither form carries a value.
func (a *Annotation) RatingFor(questionID string) (float64, bool) {
	if a.Ratings != nil {
		if v, ok := a.Ratings[questionID]; ok {
			return v, true
		}
	}
	if a.Rating > 0 {
		return float64(a.Rating), true
	}
	return 0, false
}

// SameContent reports whether the given form state matches this annotation's
// saved state exactly. A key present on one side but not the other counts as
// a difference, as does any value change.
func (a *Annotation) SameContent(ratings map[string]float64, comment string, freeform map[string]string) bool {
	if a.Comment != comment {
		return false
	}
	if len(a.Ratings) != len(ratings) {
		return false
	}
	for id, v := range ratings {
		saved, ok := a.Ratings[id]
		if !ok || saved != v {
			return false
		}
	}
	if len(a.FreeformAnswers) != len(freeform) {
		return false
	}
	for id, v := range freeform {
		saved, ok := a.FreeformAnswers[id]
		if !ok || saved != v {
			return false
		}
	}
	return true
}
