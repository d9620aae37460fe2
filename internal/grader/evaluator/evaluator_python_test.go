package evaluator

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"codearena/internal/grader/model"
	"codearena/internal/grader/runtime"
	"codearena/internal/grader/sandbox"
	"codearena/internal/grader/scoring"
)

func requirePython3(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
}

func newProcessEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := New(Config{
		Registry: runtime.DefaultRegistry(),
		Runner:   sandbox.NewProcessRunner(0),
		WorkRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return e
}

func TestEvaluatePythonSubmissionAccepted(t *testing.T) {
	requirePython3(t)
	e := newProcessEvaluator(t)

	code := `nums = list(map(int, input().split()))
target = int(input())
seen = {}
for i, n in enumerate(nums):
    if target - n in seen:
        print(seen[target - n], i)
        break
    seen[n] = i
`
	outcome, err := e.Evaluate(context.Background(), Request{
		SubmissionID: "sub-py-1",
		Language:     "python",
		Code:         code,
		TestCases: []model.TestCase{
			{Input: "2 7 11 15\n9\n", ExpectedOutput: "0 1"},
			{Input: "3 2 4\n6\n", ExpectedOutput: "1 2"},
		},
		TimeLimit: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if outcome.Class != model.OutcomeAccepted {
		t.Fatalf("Class = %s (%s), want accepted", outcome.Class, outcome.Message)
	}
	if outcome.PassedTests != 2 || outcome.TotalTests != 2 {
		t.Errorf("Passed/Total = %d/%d, want 2/2", outcome.PassedTests, outcome.TotalTests)
	}
	if got := scoring.Score(outcome); got != 100 {
		t.Errorf("score = %d, want 100", got)
	}
	if outcome.ExecutionTimeMs <= 0 {
		t.Errorf("ExecutionTimeMs = %d, want a positive measurement", outcome.ExecutionTimeMs)
	}
}

func TestEvaluatePythonSubmissionWrongAnswer(t *testing.T) {
	requirePython3(t)
	e := newProcessEvaluator(t)

	outcome, err := e.Evaluate(context.Background(), Request{
		SubmissionID: "sub-py-2",
		Language:     "python",
		Code:         "print(int(input()) + 2)",
		TestCases: []model.TestCase{
			{Input: "1\n", ExpectedOutput: "2"},
		},
		TimeLimit: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if outcome.Class != model.OutcomeWrongAnswer {
		t.Fatalf("Class = %s, want wrong_answer", outcome.Class)
	}
	want := "Test case 1 failed. Expected: 2, Got: 3"
	if outcome.Message != want {
		t.Errorf("Message = %q, want %q", outcome.Message, want)
	}
	if got := scoring.Score(outcome); got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
}

func TestEvaluatePythonSubmissionTimeout(t *testing.T) {
	requirePython3(t)
	e := newProcessEvaluator(t)

	outcome, err := e.Evaluate(context.Background(), Request{
		SubmissionID: "sub-py-3",
		Language:     "python",
		Code:         "while True:\n    pass",
		TestCases: []model.TestCase{
			{Input: "", ExpectedOutput: "never"},
		},
		TimeLimit: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if outcome.Class != model.OutcomeTimeLimitExceeded {
		t.Fatalf("Class = %s, want time_limit_exceeded", outcome.Class)
	}
}
