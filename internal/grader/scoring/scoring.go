// Package scoring maps an evaluation outcome to a submission score.
package scoring

import "codearena/internal/grader/model"

const (
	acceptedScore    = 100
	partialScoreBase = 50
)

// Score converts an outcome into an integer score in [0, 100].
// Accepted is always full marks; anything else earns partial credit
// capped below the passing threshold. Zero passed tests score zero.
func Score(outcome model.EvaluationOutcome) int {
	if outcome.Class == model.OutcomeAccepted {
		return acceptedScore
	}
	if outcome.TotalTests <= 0 || outcome.PassedTests <= 0 {
		return 0
	}
	return partialScoreBase * outcome.PassedTests / outcome.TotalTests
}
