package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/service"
)

// SessionRepository persists session aggregates. The question/response
// sequences and the analysis snapshot travel as JSONB documents; the
// columns used for filtering stay relational.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// SaveSession inserts or fully replaces the aggregate.
func (r *SessionRepository) SaveSession(ctx context.Context, s *model.Session) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return err
	}
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return err
	}
	responses, err := json.Marshal(s.Responses)
	if err != nil {
		return err
	}
	var analysis []byte
	if s.Analysis != nil {
		if analysis, err = json.Marshal(s.Analysis); err != nil {
			return err
		}
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, config, questions, responses, analysis, started_at, ended_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			responses = EXCLUDED.responses,
			questions = EXCLUDED.questions,
			analysis  = EXCLUDED.analysis,
			ended_at  = EXCLUDED.ended_at,
			status    = EXCLUDED.status`,
		s.ID, s.UserID, config, questions, responses, analysis, s.StartedAt, s.EndedAt, s.Status)
	return err
}

// GetSession retrieves one aggregate by id.
func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, config, questions, responses, analysis, started_at, ended_at, status
		 FROM sessions
		 WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("session", id.String())
	}
	return s, err
}

// GetUserSessions retrieves the user's sessions, newest first.
func (r *SessionRepository) GetUserSessions(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	return r.QuerySessions(ctx, service.SessionQuery{UserID: userID, Limit: limit})
}

// QuerySessions retrieves sessions matching the filter, newest first.
func (r *SessionRepository) QuerySessions(ctx context.Context, q service.SessionQuery) ([]model.Session, error) {
	query := `SELECT id, user_id, config, questions, responses, analysis, started_at, ended_at, status
		 FROM sessions WHERE 1=1`
	args := []any{}

	if q.UserID != "" {
		args = append(args, q.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		query += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	if !q.Until.IsZero() {
		args = append(args, q.Until)
		query += fmt.Sprintf(" AND started_at < $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes the aggregate.
func (r *SessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("session", id.String())
	}
	return nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	s := &model.Session{}
	var config, questions, responses, analysis []byte
	if err := row.Scan(&s.ID, &s.UserID, &config, &questions, &responses, &analysis,
		&s.StartedAt, &s.EndedAt, &s.Status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(config, &s.Config); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &s.Questions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responses, &s.Responses); err != nil {
		return nil, err
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &s.Analysis); err != nil {
			return nil, err
		}
	}
	return s, nil
}
