// Package irr holds the pure agreement math used on cached rating data:
// per-trace disagreement scoring for facilitator review and judge-vs-human
// agreement for judge tuning.
package irr

import (
	"math"
	"sort"

	"workshop-client/internal/models"
)

// Disagreement is one trace's rating spread for a single rubric question.
// Score is the population standard deviation of the raters' values; lower
// means higher agreement.
type Disagreement struct {
	TraceID    string
	QuestionID string
	Score      float64
	Raters     int
}

// PopulationStdDev computes the population standard deviation of vals.
func PopulationStdDev(vals []float64) float64 {
	n := float64(len(vals))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / n
	var variance float64
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / n)
}

// Disagreement level labels, mapped from stddev ranges.
const (
	LevelPerfect  = "perfect agreement"
	LevelGood     = "good agreement"
	LevelModerate = "moderate disagreement"
	LevelHigh     = "high disagreement, discuss"
	LevelVeryHigh = "very high disagreement, priority discussion"
)

// Level maps a disagreement score to its qualitative bucket.
func Level(score float64) string {
	switch {
	case score < 0.5:
		return LevelPerfect
	case score < 1.0:
		return LevelGood
	case score < 1.5:
		return LevelModerate
	case score < 2.0:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

// TraceDisagreements computes the per-trace disagreement for one rubric
// question across all annotators. Traces with fewer than two ratings produce
// no score. Results come back most-disagreed-first so facilitators triage
// the hardest cases first; equal scores tie-break on trace id to keep the
// order deterministic.
func TraceDisagreements(annotations []models.Annotation, questionID string) []Disagreement {
	byTrace := make(map[string][]float64)
	for i := range annotations {
		if v, ok := annotations[i].RatingFor(questionID); ok {
			byTrace[annotations[i].TraceID] = append(byTrace[annotations[i].TraceID], v)
		}
	}

	results := make([]Disagreement, 0, len(byTrace))
	for traceID, vals := range byTrace {
		if len(vals) < 2 {
			continue
		}
		results = append(results, Disagreement{
			TraceID:    traceID,
			QuestionID: questionID,
			Score:      PopulationStdDev(vals),
			Raters:     len(vals),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].TraceID < results[j].TraceID
	})
	return results
}

// Mode returns the most frequent value in vals. Ties resolve to the lowest
// numeric value so the result is deterministic. The second return value is
// false for an empty input.
func Mode(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	counts := make(map[float64]int)
	for _, v := range vals {
		counts[v]++
	}
	var best float64
	bestCount := -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best = v
			bestCount = n
		}
	}
	return best, true
}

// HumanModeByTrace aggregates each trace's human reference rating as the
// mode of all annotators' values for the given rubric question (with legacy
// single-rating fallback).
func HumanModeByTrace(annotations []models.Annotation, questionID string) map[string]float64 {
	byTrace := make(map[string][]float64)
	for i := range annotations {
		if v, ok := annotations[i].RatingFor(questionID); ok {
			byTrace[annotations[i].TraceID] = append(byTrace[annotations[i].TraceID], v)
		}
	}
	modes := make(map[string]float64, len(byTrace))
	for traceID, vals := range byTrace {
		if m, ok := Mode(vals); ok {
			modes[traceID] = m
		}
	}
	return modes
}
