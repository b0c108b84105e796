package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// ScheduleRepository handles scheduled sessions and their reminder rows.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// CreateSchedule inserts a scheduled session.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, s *model.ScheduledSession) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return err
	}
	reminders, err := json.Marshal(s.Reminders)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO scheduled_sessions (id, user_id, scheduled_at, config, reminders, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.ScheduledAt, config, reminders, s.Status)
	return err
}

// GetSchedule retrieves one scheduled session by id.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*model.ScheduledSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, scheduled_at, config, reminders, status
		 FROM scheduled_sessions
		 WHERE id = $1`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("schedule", id.String())
	}
	return s, err
}

// UpdateSchedule replaces a scheduled session's mutable fields.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, s *model.ScheduledSession) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return err
	}
	reminders, err := json.Marshal(s.Reminders)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_sessions
		 SET scheduled_at = $1, config = $2, reminders = $3, status = $4
		 WHERE id = $5`,
		s.ScheduledAt, config, reminders, s.Status, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("schedule", s.ID.String())
	}
	return nil
}

// ListUserSchedules retrieves a user's schedules, soonest first.
func (r *ScheduleRepository) ListUserSchedules(ctx context.Context, userID string) ([]model.ScheduledSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, scheduled_at, config, reminders, status
		 FROM scheduled_sessions
		 WHERE user_id = $1
		 ORDER BY scheduled_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.ScheduledSession
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// ReplaceReminders clears a schedule's pending reminders and arms the
// given remind-at times in one transaction.
func (r *ScheduleRepository) ReplaceReminders(ctx context.Context, scheduleID uuid.UUID, remindAt []time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM scheduled_sessions WHERE id = $1`, scheduleID,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound("schedule", scheduleID.String())
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM schedule_reminders WHERE schedule_id = $1 AND sent = false`, scheduleID); err != nil {
		return err
	}
	for _, at := range remindAt {
		if _, err := tx.Exec(ctx,
			`INSERT INTO schedule_reminders (schedule_id, user_id, remind_at) VALUES ($1, $2, $3)`,
			scheduleID, userID, at); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ClearReminders removes all pending reminders for a schedule.
func (r *ScheduleRepository) ClearReminders(ctx context.Context, scheduleID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM schedule_reminders WHERE schedule_id = $1 AND sent = false`, scheduleID)
	return err
}

// ClaimDueReminders atomically marks due unsent reminders as sent and
// returns them. SKIP LOCKED keeps concurrent sweeps from claiming the
// same rows.
func (r *ScheduleRepository) ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE schedule_reminders
		 SET sent = true
		 WHERE id IN (
			SELECT id FROM schedule_reminders
			WHERE sent = false AND remind_at <= $1
			ORDER BY remind_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, schedule_id, user_id, remind_at, sent`,
		now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var rem model.Reminder
		if err := rows.Scan(&rem.ID, &rem.ScheduleID, &rem.UserID, &rem.RemindAt, &rem.Sent); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// MarkMissed flips pending schedules older than cutoff to MISSED and
// returns how many changed.
func (r *ScheduleRepository) MarkMissed(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_sessions
		 SET status = $1
		 WHERE status IN ($2, $3) AND scheduled_at < $4`,
		model.ScheduleStatusMissed, model.ScheduleStatusScheduled, model.ScheduleStatusReminded, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSchedule(row pgx.Row) (*model.ScheduledSession, error) {
	s := &model.ScheduledSession{}
	var config, reminders []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.ScheduledAt, &config, &reminders, &s.Status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(config, &s.Config); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reminders, &s.Reminders); err != nil {
		return nil, err
	}
	return s, nil
}
