package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// StreakRepository handles practice-streak data access. One row per user.
type StreakRepository struct {
	pool *pgxpool.Pool
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(pool *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{pool: pool}
}

// GetStreak retrieves the user's streak row.
func (r *StreakRepository) GetStreak(ctx context.Context, userID string) (*model.PracticeStreak, error) {
	s := &model.PracticeStreak{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, current_streak, longest_streak, last_practice_date, streak_start_date, total_sessions
		 FROM practice_streaks
		 WHERE user_id = $1`, userID,
	).Scan(&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastPracticeDate, &s.StreakStartDate, &s.TotalSessions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("streak", userID)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpsertStreak inserts or replaces the user's streak row.
func (r *StreakRepository) UpsertStreak(ctx context.Context, s *model.PracticeStreak) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO practice_streaks (user_id, current_streak, longest_streak, last_practice_date, streak_start_date, total_sessions)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			current_streak     = EXCLUDED.current_streak,
			longest_streak     = EXCLUDED.longest_streak,
			last_practice_date = EXCLUDED.last_practice_date,
			streak_start_date  = EXCLUDED.streak_start_date,
			total_sessions     = EXCLUDED.total_sessions`,
		s.UserID, s.CurrentStreak, s.LongestStreak, s.LastPracticeDate, s.StreakStartDate, s.TotalSessions)
	return err
}
