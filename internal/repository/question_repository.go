package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/service"
)

// QuestionRepository handles question-bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// CreateQuestion inserts a question. A nil ID is assigned.
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO questions (id, type, category, text, expected_elements, difficulty, time_limit_seconds, follow_up_triggers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.Type, q.Category, q.Text, q.ExpectedElements, q.Difficulty, q.TimeLimitSeconds, q.FollowUpTriggers)
	return err
}

// GetQuestion retrieves one question by id.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, type, category, text, expected_elements, difficulty, time_limit_seconds, follow_up_triggers
		 FROM questions
		 WHERE id = $1`, id,
	).Scan(&q.ID, &q.Type, &q.Category, &q.Text, &q.ExpectedElements, &q.Difficulty, &q.TimeLimitSeconds, &q.FollowUpTriggers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("question", id.String())
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions retrieves questions matching the filter.
func (r *QuestionRepository) ListQuestions(ctx context.Context, f service.QuestionFilter) ([]model.Question, error) {
	query := `SELECT id, type, category, text, expected_elements, difficulty, time_limit_seconds, follow_up_triggers
		 FROM questions WHERE 1=1`
	args := []any{}

	if f.Type != "" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// DeleteQuestion removes a question from the bank.
func (r *QuestionRepository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("question", id.String())
	}
	return nil
}

// RandomBatch retrieves up to n questions matching the difficulty and
// category set, in random order. Empty filters match everything.
func (r *QuestionRepository) RandomBatch(ctx context.Context, difficulty model.Difficulty, categories []model.QuestionCategory, n int) ([]model.Question, error) {
	query := `SELECT id, type, category, text, expected_elements, difficulty, time_limit_seconds, follow_up_triggers
		 FROM questions WHERE 1=1`
	args := []any{}

	if difficulty != "" {
		args = append(args, difficulty)
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if len(categories) > 0 {
		cats := make([]string, 0, len(categories))
		for _, c := range categories {
			cats = append(cats, string(c))
		}
		args = append(args, cats)
		query += fmt.Sprintf(" AND category = ANY($%d)", len(args))
	}
	args = append(args, n)
	query += fmt.Sprintf(" ORDER BY random() LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Type, &q.Category, &q.Text, &q.ExpectedElements,
			&q.Difficulty, &q.TimeLimitSeconds, &q.FollowUpTriggers); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
