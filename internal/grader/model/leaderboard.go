package model

import "time"

// LeaderboardEntry is a derived per-participant ranking record.
// It is computed on read and never persisted.
type LeaderboardEntry struct {
	User               Participant `json:"user"`
	Score              int         `json:"score"`
	Solved             int         `json:"solved"`
	LastSubmissionTime *time.Time  `json:"last_submission_time,omitempty"`
}
