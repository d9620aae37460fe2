// Package repository holds the persistence layer for grading data.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/grader/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	submissionCacheKeyPrefix = "submission:"
	submissionCacheTTL       = 5 * time.Minute
)

// SubmissionRepository persists and retrieves submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	// UpdateResolved moves a pending submission to a terminal state.
	// It returns ErrAlreadyResolved when the submission is no longer
	// pending, so concurrent resolvers settle on the first writer.
	UpdateResolved(ctx context.Context, id string, status model.SubmissionStatus, score int, executionTimeMs *int64, feedback *string) error
	ListByUser(ctx context.Context, userID, questionID string) ([]*model.Submission, error)
	ListByQuestionIDs(ctx context.Context, questionIDs []string) ([]*model.Submission, error)
}

// ErrAlreadyResolved signals that a submission already left the pending state.
var ErrAlreadyResolved = appErr.New(appErr.SubmissionAlreadyResolved)

type mysqlSubmissionRepository struct {
	database db.Database
	cache    cache.Cache
}

// NewSubmissionRepository creates a MySQL-backed submission repository.
// cache may be nil; lookups then always hit the database.
func NewSubmissionRepository(database db.Database, c cache.Cache) SubmissionRepository {
	return &mysqlSubmissionRepository{database: database, cache: c}
}

func (r *mysqlSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions
		(id, user_id, question_id, code, language, status, score, execution_time_ms, feedback, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.database.Exec(ctx, query,
		sub.ID, sub.UserID, sub.QuestionID, sub.Code, sub.Language,
		string(sub.Status), sub.Score, sub.ExecutionTimeMs, sub.Feedback, sub.SubmittedAt)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "create submission failed")
	}
	return nil
}

func (r *mysqlSubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	if sub, ok := r.cacheGet(ctx, id); ok {
		return sub, nil
	}

	query := `SELECT id, user_id, question_id, code, language, status, score,
		execution_time_ms, feedback, submitted_at
		FROM submissions WHERE id = ?`
	row := r.database.QueryRow(ctx, query, id)
	sub, err := scanSubmission(row.Scan)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get submission failed")
	}

	// Only terminal rows are cached; pending rows change underneath us.
	if sub.Status.Terminal() {
		r.cacheSet(ctx, sub)
	}
	return sub, nil
}

func (r *mysqlSubmissionRepository) UpdateResolved(ctx context.Context, id string, status model.SubmissionStatus, score int, executionTimeMs *int64, feedback *string) error {
	if !status.Terminal() {
		return appErr.ValidationError("status", "must be terminal")
	}

	query := `UPDATE submissions
		SET status = ?, score = ?, execution_time_ms = ?, feedback = ?
		WHERE id = ? AND status = 'pending'`
	result, err := r.database.Exec(ctx, query, string(status), score, executionTimeMs, feedback, id)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "resolve submission failed")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "resolve submission failed")
	}
	if affected == 0 {
		return ErrAlreadyResolved
	}

	r.cacheDel(ctx, id)
	return nil
}

func (r *mysqlSubmissionRepository) ListByUser(ctx context.Context, userID, questionID string) ([]*model.Submission, error) {
	query := `SELECT id, user_id, question_id, code, language, status, score,
		execution_time_ms, feedback, submitted_at
		FROM submissions WHERE user_id = ?`
	args := []interface{}{userID}
	if questionID != "" {
		query += " AND question_id = ?"
		args = append(args, questionID)
	}
	query += " ORDER BY submitted_at DESC"

	rows, err := r.database.Query(ctx, query, args...)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return collectSubmissions(rows)
}

func (r *mysqlSubmissionRepository) ListByQuestionIDs(ctx context.Context, questionIDs []string) ([]*model.Submission, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, user_id, question_id, code, language, status, score,
		execution_time_ms, feedback, submitted_at
		FROM submissions WHERE question_id IN (`
	args := make([]interface{}, 0, len(questionIDs))
	for i, qid := range questionIDs {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, qid)
	}
	query += ")"

	rows, err := r.database.Query(ctx, query, args...)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return collectSubmissions(rows)
}

func collectSubmissions(rows db.Rows) ([]*model.Submission, error) {
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan submission failed")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "iterate submissions failed")
	}
	return subs, nil
}

func scanSubmission(scan func(dest ...interface{}) error) (*model.Submission, error) {
	var (
		sub      model.Submission
		status   string
		timeMs   sql.NullInt64
		feedback sql.NullString
	)
	err := scan(&sub.ID, &sub.UserID, &sub.QuestionID, &sub.Code, &sub.Language,
		&status, &sub.Score, &timeMs, &feedback, &sub.SubmittedAt)
	if err != nil {
		return nil, err
	}
	sub.Status = model.SubmissionStatus(status)
	if timeMs.Valid {
		v := timeMs.Int64
		sub.ExecutionTimeMs = &v
	}
	if feedback.Valid {
		v := feedback.String
		sub.Feedback = &v
	}
	return &sub, nil
}

func (r *mysqlSubmissionRepository) cacheGet(ctx context.Context, id string) (*model.Submission, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, submissionCacheKeyPrefix+id)
	if err != nil {
		if err != cache.ErrNotFound {
			logger.Warn(ctx, "submission cache read failed", zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}
	var sub model.Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		logger.Warn(ctx, "submission cache decode failed", zap.String("id", id), zap.Error(err))
		return nil, false
	}
	return &sub, true
}

func (r *mysqlSubmissionRepository) cacheSet(ctx context.Context, sub *model.Submission) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, submissionCacheKeyPrefix+sub.ID, string(raw), submissionCacheTTL); err != nil {
		logger.Warn(ctx, "submission cache write failed", zap.String("id", sub.ID), zap.Error(err))
	}
}

func (r *mysqlSubmissionRepository) cacheDel(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, submissionCacheKeyPrefix+id); err != nil {
		logger.Warn(ctx, "submission cache invalidate failed", zap.String("id", id), zap.Error(err))
	}
}
