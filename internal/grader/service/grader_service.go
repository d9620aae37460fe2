// Package service orchestrates the submission lifecycle: accept,
// evaluate in the background, resolve exactly once, and fan out
// side effects.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"codearena/internal/grader/evaluator"
	"codearena/internal/grader/feedback"
	"codearena/internal/grader/model"
	"codearena/internal/grader/repository"
	"codearena/internal/grader/runtime"
	"codearena/internal/grader/scoring"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxCodeBytes = 64 * 1024

	defaultPoolSize        = 4
	defaultFeedbackTimeout = 15 * time.Second

	// internalFailureFeedback is stored when evaluation itself broke,
	// as opposed to the user's code failing.
	internalFailureFeedback = "An internal error occurred while evaluating this submission."
)

// Evaluator runs one submission against its test cases.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluator.Request) (model.EvaluationOutcome, error)
}

// EventPublisher announces resolved submissions to downstream consumers.
type EventPublisher interface {
	PublishResolved(ctx context.Context, sub *model.Submission) error
}

// Archiver stores submitted source code out of band.
type Archiver interface {
	Archive(ctx context.Context, submissionID, language, code string) error
}

// SubmitRequest is the input for creating a submission.
type SubmitRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	QuestionID string `json:"question_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
	Language   string `json:"language" binding:"required"`
}

// GraderService accepts submissions and grades them asynchronously.
type GraderService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	registry    *runtime.Registry
	evaluator   Evaluator
	explainer   feedback.Explainer
	publisher   EventPublisher
	archiver    Archiver

	feedbackTimeout time.Duration
	slots           chan struct{}
	wg              sync.WaitGroup
}

// Config holds grader service dependencies.
// Explainer, Publisher and Archiver are optional; their absence only
// disables the corresponding side effect.
type Config struct {
	Submissions     repository.SubmissionRepository
	Questions       repository.QuestionRepository
	Registry        *runtime.Registry
	Evaluator       Evaluator
	Explainer       feedback.Explainer
	Publisher       EventPublisher
	Archiver        Archiver
	PoolSize        int
	FeedbackTimeout time.Duration
}

// NewGraderService creates the grader service.
func NewGraderService(cfg Config) (*GraderService, error) {
	if cfg.Submissions == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("submission repository is required")
	}
	if cfg.Questions == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("question repository is required")
	}
	if cfg.Registry == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("language registry is required")
	}
	if cfg.Evaluator == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("evaluator is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.FeedbackTimeout <= 0 {
		cfg.FeedbackTimeout = defaultFeedbackTimeout
	}
	return &GraderService{
		submissions:     cfg.Submissions,
		questions:       cfg.Questions,
		registry:        cfg.Registry,
		evaluator:       cfg.Evaluator,
		explainer:       cfg.Explainer,
		publisher:       cfg.Publisher,
		archiver:        cfg.Archiver,
		feedbackTimeout: cfg.FeedbackTimeout,
		slots:           make(chan struct{}, cfg.PoolSize),
	}, nil
}

// Submit validates the request, records a pending submission and kicks
// off evaluation in the background. The returned submission is always
// pending; callers poll GetResult for the terminal state.
func (s *GraderService) Submit(ctx context.Context, req SubmitRequest) (*model.Submission, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, appErr.ValidationError("user_id", "required")
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		return nil, appErr.ValidationError("question_id", "required")
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, appErr.ValidationError("code", "required")
	}
	if len(req.Code) > maxCodeBytes {
		return nil, appErr.New(appErr.CodeTooLarge)
	}
	if _, err := s.registry.Resolve(req.Language); err != nil {
		return nil, err
	}

	question, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if len(question.TestCases) == 0 {
		return nil, appErr.New(appErr.TestCaseInvalid).WithMessage("question has no test cases")
	}

	sub := &model.Submission{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		QuestionID:  req.QuestionID,
		Code:        req.Code,
		Language:    strings.ToLower(strings.TrimSpace(req.Language)),
		Status:      model.StatusPending,
		SubmittedAt: time.Now(),
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.evaluate(context.WithoutCancel(ctx), sub, question)

	return sub, nil
}

// GetResult returns the submission with the given ID.
func (s *GraderService) GetResult(ctx context.Context, id string) (*model.Submission, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErr.ValidationError("id", "required")
	}
	return s.submissions.GetByID(ctx, id)
}

// ListUserSubmissions returns a user's submissions, optionally filtered
// by question, newest first.
func (s *GraderService) ListUserSubmissions(ctx context.Context, userID, questionID string) ([]*model.Submission, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErr.ValidationError("user_id", "required")
	}
	return s.submissions.ListByUser(ctx, userID, questionID)
}

// Languages returns the identifiers accepted by Submit.
func (s *GraderService) Languages() []string {
	return s.registry.Languages()
}

// Shutdown waits for in-flight evaluations to finish or the context to
// expire.
func (s *GraderService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// evaluate runs in its own goroutine per submission. Whatever happens
// inside, the submission must end in a terminal state.
func (s *GraderService) evaluate(ctx context.Context, sub *model.Submission, question *model.Question) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "evaluation panicked",
				zap.String("submission_id", sub.ID), zap.Any("panic", r))
			s.resolveInternalFailure(ctx, sub)
		}
	}()

	s.acquireSlot()
	defer s.releaseSlot()

	timeLimit := time.Duration(question.TimeLimitSeconds) * time.Second

	outcome, err := s.evaluator.Evaluate(ctx, evaluator.Request{
		SubmissionID: sub.ID,
		Language:     sub.Language,
		Code:         sub.Code,
		TestCases:    question.TestCases,
		TimeLimit:    timeLimit,
	})
	if err != nil {
		logger.Error(ctx, "evaluation failed",
			zap.String("submission_id", sub.ID), zap.Error(err))
		s.resolveInternalFailure(ctx, sub)
		return
	}

	status := outcome.Class.Status()
	score := scoring.Score(outcome)
	timeMs := outcome.ExecutionTimeMs

	var fb *string
	if status != model.StatusAccepted {
		text := s.explain(ctx, sub, question, outcome)
		fb = &text
	}

	s.resolve(ctx, sub, status, score, &timeMs, fb)
}

// resolveInternalFailure settles a submission whose evaluation broke.
// The user is told it was a runtime error rather than being left
// pending forever.
func (s *GraderService) resolveInternalFailure(ctx context.Context, sub *model.Submission) {
	fb := internalFailureFeedback
	s.resolve(ctx, sub, model.StatusRuntimeError, 0, nil, &fb)
}

func (s *GraderService) resolve(ctx context.Context, sub *model.Submission, status model.SubmissionStatus, score int, timeMs *int64, fb *string) {
	err := s.submissions.UpdateResolved(ctx, sub.ID, status, score, timeMs, fb)
	if err != nil {
		if appErr.Is(err, appErr.SubmissionAlreadyResolved) {
			logger.Warn(ctx, "submission already resolved",
				zap.String("submission_id", sub.ID))
			return
		}
		logger.Error(ctx, "resolve submission failed",
			zap.String("submission_id", sub.ID), zap.Error(err))
		return
	}

	resolved := *sub
	resolved.Status = status
	resolved.Score = score
	resolved.ExecutionTimeMs = timeMs
	resolved.Feedback = fb

	logger.Info(ctx, "submission resolved",
		zap.String("submission_id", sub.ID),
		zap.String("status", string(status)),
		zap.Int("score", score))

	if s.publisher != nil {
		if err := s.publisher.PublishResolved(ctx, &resolved); err != nil {
			logger.Warn(ctx, "publish resolved event failed",
				zap.String("submission_id", sub.ID), zap.Error(err))
		}
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, sub.ID, sub.Language, sub.Code); err != nil {
			logger.Warn(ctx, "archive source failed",
				zap.String("submission_id", sub.ID), zap.Error(err))
		}
	}
}

// explain asks the feedback collaborator for a hint, degrading to the
// fallback message on any failure.
func (s *GraderService) explain(ctx context.Context, sub *model.Submission, question *model.Question, outcome model.EvaluationOutcome) string {
	if s.explainer == nil {
		return feedback.FallbackMessage
	}

	fbCtx, cancel := context.WithTimeout(ctx, s.feedbackTimeout)
	defer cancel()

	text, err := s.explainer.Explain(fbCtx, sub.Code, question.Description, outcome.Message)
	if err != nil {
		logger.Warn(ctx, "generate feedback failed",
			zap.String("submission_id", sub.ID), zap.Error(err))
		return feedback.FallbackMessage
	}
	if strings.TrimSpace(text) == "" {
		return feedback.FallbackMessage
	}
	return text
}

func (s *GraderService) acquireSlot() {
	s.slots <- struct{}{}
}

func (s *GraderService) releaseSlot() {
	<-s.slots
}
