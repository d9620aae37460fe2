package repository

import (
	"context"

	"codearena/internal/common/db"
	"codearena/internal/grader/model"
	appErr "codearena/pkg/errors"
)

// EventRepository retrieves event membership data.
type EventRepository interface {
	ListParticipants(ctx context.Context, eventID string) ([]*model.Participant, error)
}

type mysqlEventRepository struct {
	database db.Database
}

// NewEventRepository creates a MySQL-backed event repository.
func NewEventRepository(database db.Database) EventRepository {
	return &mysqlEventRepository{database: database}
}

func (r *mysqlEventRepository) ListParticipants(ctx context.Context, eventID string) ([]*model.Participant, error) {
	query := `SELECT u.id, u.username, u.name
		FROM event_participants ep
		JOIN users u ON u.id = ep.user_id
		WHERE ep.event_id = ?
		ORDER BY u.username ASC`
	rows, err := r.database.Query(ctx, query, eventID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list participants failed")
	}
	defer rows.Close()

	var participants []*model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.Username, &p.Name); err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan participant failed")
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "iterate participants failed")
	}
	return participants, nil
}
