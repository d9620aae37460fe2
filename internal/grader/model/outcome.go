package model

// OutcomeClass is the terminal classification of one evaluation.
type OutcomeClass string

const (
	OutcomeAccepted          OutcomeClass = "accepted"
	OutcomeWrongAnswer       OutcomeClass = "wrong_answer"
	OutcomeRuntimeError      OutcomeClass = "runtime_error"
	OutcomeTimeLimitExceeded OutcomeClass = "time_limit_exceeded"
)

// Status maps an outcome classification to the submission status it resolves to.
func (c OutcomeClass) Status() SubmissionStatus {
	switch c {
	case OutcomeAccepted:
		return StatusAccepted
	case OutcomeWrongAnswer:
		return StatusWrongAnswer
	case OutcomeTimeLimitExceeded:
		return StatusTimeLimitExceeded
	default:
		return StatusRuntimeError
	}
}

// EvaluationOutcome summarizes one full evaluation of a submission.
// PassedTests counts only cases before the first failure; the loop
// short-circuits, so it undercounts the true pass rate on failure.
type EvaluationOutcome struct {
	Class           OutcomeClass `json:"class"`
	PassedTests     int          `json:"passed_tests"`
	TotalTests      int          `json:"total_tests"`
	Message         string       `json:"message,omitempty"`
	ExecutionTimeMs int64        `json:"execution_time_ms"`
}
