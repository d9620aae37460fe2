package service

import (
	"context"
	"encoding/json"
	"time"

	"codearena/internal/common/mq"
	"codearena/internal/grader/model"
	appErr "codearena/pkg/errors"
)

// TopicSubmissionResolved carries one message per submission that
// reached a terminal state.
const TopicSubmissionResolved = "submission.resolved"

// SubmissionResolvedEvent is the message body published when a
// submission is resolved.
type SubmissionResolvedEvent struct {
	SubmissionID    string    `json:"submission_id"`
	UserID          string    `json:"user_id"`
	QuestionID      string    `json:"question_id"`
	Status          string    `json:"status"`
	Score           int       `json:"score"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

// ResolvedEventPublisher publishes submission lifecycle events.
type ResolvedEventPublisher struct {
	producer mq.Producer
}

// NewResolvedEventPublisher creates a publisher over the given producer.
func NewResolvedEventPublisher(producer mq.Producer) *ResolvedEventPublisher {
	return &ResolvedEventPublisher{producer: producer}
}

// PublishResolved announces that a submission reached a terminal state.
func (p *ResolvedEventPublisher) PublishResolved(ctx context.Context, sub *model.Submission) error {
	event := SubmissionResolvedEvent{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		QuestionID:   sub.QuestionID,
		Status:       string(sub.Status),
		Score:        sub.Score,
		ResolvedAt:   time.Now(),
	}
	if sub.ExecutionTimeMs != nil {
		event.ExecutionTimeMs = *sub.ExecutionTimeMs
	}

	body, err := json.Marshal(event)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "encode resolved event failed")
	}
	msg := mq.NewMessage(body)
	msg.ID = sub.ID
	msg.SetHeader("event-type", "submission.resolved")
	return p.producer.Publish(ctx, TopicSubmissionResolved, msg)
}
