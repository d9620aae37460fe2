// Package leaderboard derives event rankings from submissions on every
// read. Nothing here is cached or persisted; a ranking is always
// consistent with the submissions at the moment it was computed.
package leaderboard

import (
	"context"
	"sort"
	"strings"
	"time"

	"codearena/internal/grader/model"
	"codearena/internal/grader/repository"
	appErr "codearena/pkg/errors"
)

// Aggregator computes leaderboards for events.
type Aggregator struct {
	events      repository.EventRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
}

// NewAggregator creates a leaderboard aggregator.
func NewAggregator(events repository.EventRepository, questions repository.QuestionRepository, submissions repository.SubmissionRepository) *Aggregator {
	return &Aggregator{events: events, questions: questions, submissions: submissions}
}

type userStats struct {
	score       int
	solved      map[string]struct{}
	lastAttempt *time.Time
}

// Rank returns the event's participants ordered by standing.
// Score sums accepted submissions only, solved counts distinct accepted
// questions, and the last submission time spans all attempts. Ties
// break by solved count, then by who reached their standing earliest.
func (a *Aggregator) Rank(ctx context.Context, eventID string) ([]*model.LeaderboardEntry, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, appErr.ValidationError("event_id", "required")
	}

	participants, err := a.events.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}

	questions, err := a.questions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	questionIDs := make([]string, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}

	subs, err := a.submissions.ListByQuestionIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*userStats, len(participants))
	for _, p := range participants {
		stats[p.UserID] = &userStats{solved: make(map[string]struct{})}
	}

	for _, sub := range subs {
		st, ok := stats[sub.UserID]
		if !ok {
			// Submission from a user no longer registered to the event.
			continue
		}
		if sub.Status == model.StatusAccepted {
			st.score += sub.Score
			st.solved[sub.QuestionID] = struct{}{}
		}
		t := sub.SubmittedAt
		if st.lastAttempt == nil || t.After(*st.lastAttempt) {
			st.lastAttempt = &t
		}
	}

	entries := make([]*model.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		st := stats[p.UserID]
		entries = append(entries, &model.LeaderboardEntry{
			User:               *p,
			Score:              st.score,
			Solved:             len(st.solved),
			LastSubmissionTime: st.lastAttempt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Solved != entries[j].Solved {
			return entries[i].Solved > entries[j].Solved
		}
		return earlier(entries[i].LastSubmissionTime, entries[j].LastSubmissionTime)
	})

	return entries, nil
}

// earlier orders timestamps ascending with nil sorting last.
func earlier(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}
