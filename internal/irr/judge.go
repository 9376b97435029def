package irr

import (
	"math"

	"workshop-client/internal/models"
)

// A judge prediction agrees with the human reference when they differ by at
// most this much.
const agreementTolerance = 1.0

// RatingAgreement is the agreement breakdown for one human rating value.
type RatingAgreement struct {
	Total      int
	Agreements int
}

// JudgeAgreementReport summarizes how well a judge prompt tracks the human
// reference ratings.
//
// SimpleRate is set when fewer than three evaluations were compared: the
// accuracy is then a plain agreement rate, not a statistically meaningful
// coefficient, and consumers must surface that caveat rather than drop it.
type JudgeAgreementReport struct {
	Total        int
	Agreements   int
	ExactMatches int
	Accuracy     float64
	ByRating     map[int]RatingAgreement
	SimpleRate   bool
}

// EvaluateJudgeAgreement compares each evaluation's predicted rating against
// its human reference rating with a tolerance of one point.
func EvaluateJudgeAgreement(evaluations []models.JudgeEvaluation) JudgeAgreementReport {
	report := JudgeAgreementReport{
		ByRating: make(map[int]RatingAgreement),
	}

	for _, eval := range evaluations {
		report.Total++
		diff := math.Abs(eval.PredictedRating - eval.HumanRating)
		agrees := diff <= agreementTolerance

		bucket := report.ByRating[int(eval.HumanRating)]
		bucket.Total++
		if agrees {
			report.Agreements++
			bucket.Agreements++
		}
		if diff == 0 {
			report.ExactMatches++
		}
		report.ByRating[int(eval.HumanRating)] = bucket
	}

	if report.Total > 0 {
		report.Accuracy = float64(report.Agreements) / float64(report.Total)
	}
	report.SimpleRate = report.Total < 3
	return report
}
