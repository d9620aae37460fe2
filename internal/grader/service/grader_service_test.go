package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"codearena/internal/grader/evaluator"
	"codearena/internal/grader/feedback"
	"codearena/internal/grader/model"
	"codearena/internal/grader/repository"
	"codearena/internal/grader/runtime"
	appErr "codearena/pkg/errors"
)

type resolveCall struct {
	id       string
	status   model.SubmissionStatus
	score    int
	timeMs   *int64
	feedback *string
}

// memSubmissionRepo is an in-memory SubmissionRepository that signals
// on channel resolved every time a submission reaches a terminal state.
type memSubmissionRepo struct {
	mu       sync.Mutex
	subs     map[string]*model.Submission
	resolves []resolveCall
	resolved chan resolveCall
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{
		subs:     make(map[string]*model.Submission),
		resolved: make(chan resolveCall, 16),
	}
}

func (r *memSubmissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *memSubmissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, appErr.New(appErr.SubmissionNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (r *memSubmissionRepo) UpdateResolved(ctx context.Context, id string, status model.SubmissionStatus, score int, timeMs *int64, fb *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return appErr.New(appErr.SubmissionNotFound)
	}
	if sub.Status != model.StatusPending {
		return repository.ErrAlreadyResolved
	}
	sub.Status = status
	sub.Score = score
	sub.ExecutionTimeMs = timeMs
	sub.Feedback = fb
	call := resolveCall{id: id, status: status, score: score, timeMs: timeMs, feedback: fb}
	r.resolves = append(r.resolves, call)
	r.resolved <- call
	return nil
}

func (r *memSubmissionRepo) ListByUser(ctx context.Context, userID, questionID string) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Submission
	for _, sub := range r.subs {
		if sub.UserID != userID {
			continue
		}
		if questionID != "" && sub.QuestionID != questionID {
			continue
		}
		cp := *sub
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memSubmissionRepo) ListByQuestionIDs(ctx context.Context, questionIDs []string) ([]*model.Submission, error) {
	return nil, nil
}

func (r *memSubmissionRepo) waitResolve(t *testing.T) resolveCall {
	t.Helper()
	select {
	case call := <-r.resolved:
		return call
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the submission to resolve")
		return resolveCall{}
	}
}

type stubQuestionRepo struct {
	question *model.Question
}

func (r *stubQuestionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	if r.question == nil || r.question.ID != id {
		return nil, appErr.New(appErr.QuestionNotFound)
	}
	return r.question, nil
}

func (r *stubQuestionRepo) ListByEvent(ctx context.Context, eventID string) ([]*model.Question, error) {
	return nil, nil
}

type stubEvaluator struct {
	outcome model.EvaluationOutcome
	err     error
	panics  bool
}

func (e *stubEvaluator) Evaluate(ctx context.Context, req evaluator.Request) (model.EvaluationOutcome, error) {
	if e.panics {
		panic("boom")
	}
	return e.outcome, e.err
}

type stubExplainer struct {
	text string
	err  error
}

func (e *stubExplainer) Explain(ctx context.Context, code, question, diagnostic string) (string, error) {
	return e.text, e.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	subs []*model.Submission
}

func (p *recordingPublisher) PublishResolved(ctx context.Context, sub *model.Submission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, sub)
	return nil
}

func testQuestion() *model.Question {
	return &model.Question{
		ID:          "q1",
		Description: "add two numbers",
		TestCases: []model.TestCase{
			{Input: "1 2", ExpectedOutput: "3"},
			{Input: "4 5", ExpectedOutput: "9"},
		},
	}
}

func newTestService(t *testing.T, repo *memSubmissionRepo, eval Evaluator, opts ...func(*Config)) *GraderService {
	t.Helper()
	cfg := Config{
		Submissions: repo,
		Questions:   &stubQuestionRepo{question: testQuestion()},
		Registry:    runtime.DefaultRegistry(),
		Evaluator:   eval,
		PoolSize:    2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	svc, err := NewGraderService(cfg)
	if err != nil {
		t.Fatalf("NewGraderService returned error: %v", err)
	}
	return svc
}

func submitReq() SubmitRequest {
	return SubmitRequest{
		UserID:     "u1",
		QuestionID: "q1",
		Code:       "print(sum(map(int, input().split())))",
		Language:   "python",
	}
}

func TestSubmitReturnsPendingThenResolvesAccepted(t *testing.T) {
	repo := newMemSubmissionRepo()
	eval := &stubEvaluator{outcome: model.EvaluationOutcome{
		Class: model.OutcomeAccepted, PassedTests: 2, TotalTests: 2, ExecutionTimeMs: 37,
	}}
	svc := newTestService(t, repo, eval)

	sub, err := svc.Submit(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if sub.Status != model.StatusPending {
		t.Errorf("initial status = %s, want pending", sub.Status)
	}

	call := repo.waitResolve(t)
	if call.status != model.StatusAccepted {
		t.Errorf("resolved status = %s, want accepted", call.status)
	}
	if call.score != 100 {
		t.Errorf("score = %d, want 100", call.score)
	}
	if call.timeMs == nil || *call.timeMs != 37 {
		t.Errorf("timeMs = %v, want 37", call.timeMs)
	}
	if call.feedback != nil {
		t.Errorf("accepted submission got feedback %q, want none", *call.feedback)
	}
}

func TestSubmitResolvesPartialCredit(t *testing.T) {
	repo := newMemSubmissionRepo()
	eval := &stubEvaluator{outcome: model.EvaluationOutcome{
		Class: model.OutcomeWrongAnswer, PassedTests: 1, TotalTests: 2,
		Message: "Test case 2 failed. Expected: 9, Got: 8",
	}}
	svc := newTestService(t, repo, eval, func(cfg *Config) {
		cfg.Explainer = &stubExplainer{text: "check your addition"}
	})

	if _, err := svc.Submit(context.Background(), submitReq()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	call := repo.waitResolve(t)
	if call.status != model.StatusWrongAnswer {
		t.Errorf("status = %s, want wrong_answer", call.status)
	}
	if call.score != 25 {
		t.Errorf("score = %d, want 25", call.score)
	}
	if call.feedback == nil || *call.feedback != "check your addition" {
		t.Errorf("feedback = %v, want the explainer text", call.feedback)
	}
}

func TestSubmitFeedbackFailureFallsBack(t *testing.T) {
	repo := newMemSubmissionRepo()
	eval := &stubEvaluator{outcome: model.EvaluationOutcome{
		Class: model.OutcomeWrongAnswer, TotalTests: 2,
	}}
	svc := newTestService(t, repo, eval, func(cfg *Config) {
		cfg.Explainer = &stubExplainer{err: appErr.New(appErr.Timeout)}
	})

	if _, err := svc.Submit(context.Background(), submitReq()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	call := repo.waitResolve(t)
	if call.feedback == nil || *call.feedback != feedback.FallbackMessage {
		t.Errorf("feedback = %v, want the fallback message", call.feedback)
	}
}

func TestSubmitEvaluatorErrorResolvesRuntimeError(t *testing.T) {
	repo := newMemSubmissionRepo()
	eval := &stubEvaluator{err: appErr.New(appErr.EvalSystemError)}
	svc := newTestService(t, repo, eval)

	if _, err := svc.Submit(context.Background(), submitReq()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	call := repo.waitResolve(t)
	if call.status != model.StatusRuntimeError {
		t.Errorf("status = %s, want runtime_error", call.status)
	}
	if call.score != 0 {
		t.Errorf("score = %d, want 0", call.score)
	}
}

func TestSubmitEvaluatorPanicStillResolves(t *testing.T) {
	repo := newMemSubmissionRepo()
	svc := newTestService(t, repo, &stubEvaluator{panics: true})

	if _, err := svc.Submit(context.Background(), submitReq()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	call := repo.waitResolve(t)
	if call.status != model.StatusRuntimeError {
		t.Errorf("status after panic = %s, want runtime_error", call.status)
	}
}

func TestSubmitRejectsUnknownLanguageBeforeCreate(t *testing.T) {
	repo := newMemSubmissionRepo()
	svc := newTestService(t, repo, &stubEvaluator{})

	req := submitReq()
	req.Language = "brainfuck"
	_, err := svc.Submit(context.Background(), req)
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("error code = %d, want LanguageNotSupported", appErr.GetCode(err))
	}
	if len(repo.subs) != 0 {
		t.Error("rejected submission must not be persisted")
	}
}

func TestSubmitRejectsMissingQuestion(t *testing.T) {
	repo := newMemSubmissionRepo()
	svc := newTestService(t, repo, &stubEvaluator{})

	req := submitReq()
	req.QuestionID = "missing"
	if _, err := svc.Submit(context.Background(), req); !appErr.Is(err, appErr.QuestionNotFound) {
		t.Fatalf("error code = %d, want QuestionNotFound", appErr.GetCode(err))
	}
}

func TestSubmitRejectsOversizedCode(t *testing.T) {
	repo := newMemSubmissionRepo()
	svc := newTestService(t, repo, &stubEvaluator{})

	req := submitReq()
	req.Code = string(make([]byte, maxCodeBytes+1))
	if _, err := svc.Submit(context.Background(), req); !appErr.Is(err, appErr.CodeTooLarge) {
		t.Fatalf("error code = %d, want CodeTooLarge", appErr.GetCode(err))
	}
}

func TestResolvePublishesEvent(t *testing.T) {
	repo := newMemSubmissionRepo()
	pub := &recordingPublisher{}
	eval := &stubEvaluator{outcome: model.EvaluationOutcome{
		Class: model.OutcomeAccepted, PassedTests: 2, TotalTests: 2,
	}}
	svc := newTestService(t, repo, eval, func(cfg *Config) {
		cfg.Publisher = pub
	})

	if _, err := svc.Submit(context.Background(), submitReq()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	repo.waitResolve(t)

	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.subs) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.subs))
	}
	if pub.subs[0].Status != model.StatusAccepted {
		t.Errorf("published status = %s, want accepted", pub.subs[0].Status)
	}
}

func TestGetResultAfterResolution(t *testing.T) {
	repo := newMemSubmissionRepo()
	eval := &stubEvaluator{outcome: model.EvaluationOutcome{
		Class: model.OutcomeAccepted, PassedTests: 2, TotalTests: 2,
	}}
	svc := newTestService(t, repo, eval)

	sub, err := svc.Submit(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	repo.waitResolve(t)

	got, err := svc.GetResult(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetResult returned error: %v", err)
	}
	if got.Status != model.StatusAccepted || got.Score != 100 {
		t.Errorf("result = %s/%d, want accepted/100", got.Status, got.Score)
	}
}

func TestGetResultUnknownID(t *testing.T) {
	repo := newMemSubmissionRepo()
	svc := newTestService(t, repo, &stubEvaluator{})

	if _, err := svc.GetResult(context.Background(), "nope"); !appErr.Is(err, appErr.SubmissionNotFound) {
		t.Fatalf("error code = %d, want SubmissionNotFound", appErr.GetCode(err))
	}
}
