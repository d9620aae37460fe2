package repository

import (
	"context"
	"encoding/json"

	"codearena/internal/common/db"
	"codearena/internal/grader/model"
	appErr "codearena/pkg/errors"
)

// QuestionRepository retrieves questions and their test cases.
type QuestionRepository interface {
	GetByID(ctx context.Context, id string) (*model.Question, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.Question, error)
}

type mysqlQuestionRepository struct {
	database db.Database
}

// NewQuestionRepository creates a MySQL-backed question repository.
func NewQuestionRepository(database db.Database) QuestionRepository {
	return &mysqlQuestionRepository{database: database}
}

func (r *mysqlQuestionRepository) GetByID(ctx context.Context, id string) (*model.Question, error) {
	query := `SELECT id, event_id, title, description, difficulty,
		time_limit_seconds, memory_limit_mb, test_cases, created_at
		FROM questions WHERE id = ?`
	row := r.database.QueryRow(ctx, query, id)
	q, err := scanQuestion(row.Scan)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.QuestionNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get question failed")
	}
	return q, nil
}

func (r *mysqlQuestionRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.Question, error) {
	query := `SELECT id, event_id, title, description, difficulty,
		time_limit_seconds, memory_limit_mb, test_cases, created_at
		FROM questions WHERE event_id = ? ORDER BY created_at ASC`
	rows, err := r.database.Query(ctx, query, eventID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list questions failed")
	}
	defer rows.Close()

	var questions []*model.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan question failed")
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "iterate questions failed")
	}
	return questions, nil
}

func scanQuestion(scan func(dest ...interface{}) error) (*model.Question, error) {
	var (
		q        model.Question
		rawCases []byte
	)
	err := scan(&q.ID, &q.EventID, &q.Title, &q.Description, &q.Difficulty,
		&q.TimeLimitSeconds, &q.MemoryLimitMB, &rawCases, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(rawCases) > 0 {
		if err := json.Unmarshal(rawCases, &q.TestCases); err != nil {
			return nil, appErr.Wrapf(err, appErr.TestCaseInvalid, "decode test cases failed")
		}
	}
	return &q, nil
}
