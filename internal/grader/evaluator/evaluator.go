// Package evaluator runs a submission against its question's test
// cases in order and classifies the overall outcome.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codearena/internal/grader/model"
	"codearena/internal/grader/runtime"
	"codearena/internal/grader/sandbox"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	// DefaultTimeLimit is used when a question carries no limit.
	DefaultTimeLimit = 5 * time.Second

	defaultCompileTimeLimit = 20 * time.Second
)

// Request describes one evaluation task.
type Request struct {
	SubmissionID string
	Language     string
	Code         string
	TestCases    []model.TestCase
	TimeLimit    time.Duration
}

// Evaluator drives the process runner once per test case.
type Evaluator struct {
	registry         *runtime.Registry
	runner           sandbox.Runner
	workRoot         string
	compileTimeLimit time.Duration
}

// Config holds evaluator dependencies and settings.
type Config struct {
	Registry         *runtime.Registry
	Runner           sandbox.Runner
	WorkRoot         string
	CompileTimeLimit time.Duration
}

// New creates an evaluator.
func New(cfg Config) (*Evaluator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("language registry is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("process runner is required")
	}
	if cfg.WorkRoot == "" {
		return nil, fmt.Errorf("work root is required")
	}
	if cfg.CompileTimeLimit <= 0 {
		cfg.CompileTimeLimit = defaultCompileTimeLimit
	}
	return &Evaluator{
		registry:         cfg.Registry,
		runner:           cfg.Runner,
		workRoot:         cfg.WorkRoot,
		compileTimeLimit: cfg.CompileTimeLimit,
	}, nil
}

// Evaluate runs the submission against all test cases in order,
// stopping at the first failure. It returns an error only for
// faults in the evaluation environment itself; everything the user
// caused is classified into the outcome.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (model.EvaluationOutcome, error) {
	total := len(req.TestCases)
	outcome := model.EvaluationOutcome{TotalTests: total}

	if len(req.Code) == 0 {
		return outcome, appErr.ValidationError("code", "required")
	}
	if total == 0 {
		return outcome, appErr.ValidationError("test_cases", "required")
	}
	timeLimit := req.TimeLimit
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	lang, err := e.registry.Resolve(req.Language)
	if err != nil {
		return outcome, err
	}

	ws, err := sandbox.NewWorkspace(e.workRoot, req.SubmissionID)
	if err != nil {
		return outcome, err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logger.Warn(ctx, "remove workspace failed",
				zap.String("dir", ws.Dir), zap.Error(closeErr))
		}
	}()

	if _, err := ws.WriteFile(lang.SourceFile, runtime.PrepareSource(lang, req.Code)); err != nil {
		return outcome, err
	}

	if lang.CompileEnabled {
		compiled, compileOutcome, err := e.compile(ctx, lang, ws)
		if err != nil {
			return outcome, err
		}
		if !compiled {
			compileOutcome.TotalTests = total
			return compileOutcome, nil
		}
	}

	runCmd, err := runtime.BuildCommand(lang.RunCmdTpl, lang, ws.Dir)
	if err != nil {
		return outcome, err
	}

	for i, tc := range req.TestCases {
		res, runErr := e.runner.Run(ctx, sandbox.RunRequest{
			Cmd:       runCmd,
			Env:       lang.Env,
			WorkDir:   ws.Dir,
			Stdin:     tc.Input,
			TimeLimit: timeLimit,
		})
		outcome.ExecutionTimeMs += res.TimeMs

		if runErr != nil {
			// Could not be run at all: classified, not propagated.
			outcome.Class = model.OutcomeRuntimeError
			outcome.Message = fmt.Sprintf("test case %d could not be executed: %v", i+1, runErr)
			return outcome, nil
		}
		if res.TimedOut {
			outcome.Class = model.OutcomeTimeLimitExceeded
			outcome.Message = fmt.Sprintf("time limit exceeded on test case %d", i+1)
			return outcome, nil
		}
		if res.ExitCode != 0 {
			outcome.Class = model.OutcomeRuntimeError
			outcome.Message = runtimeErrorMessage(i+1, res)
			return outcome, nil
		}

		actual := strings.TrimSpace(res.Stdout)
		expected := strings.TrimSpace(tc.ExpectedOutput)
		if actual != expected {
			outcome.Class = model.OutcomeWrongAnswer
			outcome.Message = fmt.Sprintf("Test case %d failed. Expected: %s, Got: %s", i+1, expected, actual)
			return outcome, nil
		}
		outcome.PassedTests++
	}

	outcome.Class = model.OutcomeAccepted
	return outcome, nil
}

func (e *Evaluator) compile(ctx context.Context, lang runtime.LanguageSpec, ws *sandbox.Workspace) (bool, model.EvaluationOutcome, error) {
	compileCmd, err := runtime.BuildCommand(lang.CompileCmdTpl, lang, ws.Dir)
	if err != nil {
		return false, model.EvaluationOutcome{}, err
	}
	res, err := e.runner.Run(ctx, sandbox.RunRequest{
		Cmd:       compileCmd,
		Env:       lang.Env,
		WorkDir:   ws.Dir,
		TimeLimit: e.compileTimeLimit,
	})
	if err != nil {
		return false, model.EvaluationOutcome{}, err
	}
	if res.TimedOut || res.ExitCode != 0 {
		diagnostic := strings.TrimSpace(res.Stderr)
		if diagnostic == "" {
			diagnostic = fmt.Sprintf("compiler exited with code %d", res.ExitCode)
		}
		return false, model.EvaluationOutcome{
			Class:           model.OutcomeRuntimeError,
			Message:         "compilation failed: " + diagnostic,
			ExecutionTimeMs: res.TimeMs,
		}, nil
	}
	return true, model.EvaluationOutcome{}, nil
}

func runtimeErrorMessage(caseNumber int, res sandbox.RunResult) string {
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = fmt.Sprintf("process exited with code %d", res.ExitCode)
	}
	return fmt.Sprintf("Runtime error in test case %d: %s", caseNumber, detail)
}
