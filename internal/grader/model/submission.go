package model

import "time"

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

const (
	StatusPending           SubmissionStatus = "pending"
	StatusAccepted          SubmissionStatus = "accepted"
	StatusWrongAnswer       SubmissionStatus = "wrong_answer"
	StatusRuntimeError      SubmissionStatus = "runtime_error"
	StatusTimeLimitExceeded SubmissionStatus = "time_limit_exceeded"
)

// Terminal reports whether the status is a final grading state.
// A submission leaves pending exactly once and never returns.
func (s SubmissionStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusWrongAnswer, StatusRuntimeError, StatusTimeLimitExceeded:
		return true
	}
	return false
}

// Submission represents one grading attempt by a user.
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	QuestionID      string           `json:"question_id"`
	Code            string           `json:"code"`
	Language        string           `json:"language"`
	Status          SubmissionStatus `json:"status"`
	Score           int              `json:"score"`
	ExecutionTimeMs *int64           `json:"execution_time_ms,omitempty"`
	Feedback        *string          `json:"feedback,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
}
