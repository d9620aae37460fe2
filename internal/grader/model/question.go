package model

import "time"

// TestCase is one input/expected-output pair owned by a question.
// Order matters: evaluation stops at the first failing case.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"output"`
}

// Question carries the ordered test cases and resource limits used to
// grade submissions against it.
type Question struct {
	ID               string     `json:"id"`
	EventID          string     `json:"event_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Difficulty       string     `json:"difficulty"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	MemoryLimitMB    int        `json:"memory_limit_mb"`
	TestCases        []TestCase `json:"test_cases"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Participant is a user registered to an event.
type Participant struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
