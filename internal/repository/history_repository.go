package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// overallDimension is the pseudo-dimension row holding a session's
// overall score, so one table serves both history queries.
const overallDimension = "overall"

// HistoryRecord is one completed session's scores, flattened for the
// performance_history table.
type HistoryRecord struct {
	SessionID  string
	UserID     string
	Overall    float64
	Dimensions map[string]float64
	RecordedAt time.Time
}

// HistoryRepository handles the per-dimension score history written when
// sessions complete and read back for trend analysis.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// InsertRecords bulk-inserts the batch, one row per dimension plus one
// overall row per record, via a single UNNEST statement.
func (r *HistoryRepository) InsertRecords(ctx context.Context, records []HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	var (
		sessionIDs []string
		userIDs    []string
		dimensions []string
		scores     []float64
		recordedAt []time.Time
	)
	add := func(rec HistoryRecord, dim string, score float64) {
		sessionIDs = append(sessionIDs, rec.SessionID)
		userIDs = append(userIDs, rec.UserID)
		dimensions = append(dimensions, dim)
		scores = append(scores, score)
		recordedAt = append(recordedAt, rec.RecordedAt)
	}
	for _, rec := range records {
		add(rec, overallDimension, rec.Overall)
		for dim, score := range rec.Dimensions {
			add(rec, dim, score)
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO performance_history (session_id, user_id, dimension, score, recorded_at)
		 SELECT * FROM UNNEST($1::uuid[], $2::text[], $3::text[], $4::float8[], $5::timestamptz[])
		 ON CONFLICT (session_id, dimension) DO NOTHING`,
		sessionIDs, userIDs, dimensions, scores, recordedAt)
	return err
}

// DimensionHistory returns up to limit scores for one dimension, newest first.
func (r *HistoryRepository) DimensionHistory(ctx context.Context, userID, dimension string, limit int) ([]float64, error) {
	return r.scores(ctx, userID, dimension, limit)
}

// OverallHistory returns up to limit overall scores, newest first.
func (r *HistoryRepository) OverallHistory(ctx context.Context, userID string, limit int) ([]float64, error) {
	return r.scores(ctx, userID, overallDimension, limit)
}

func (r *HistoryRepository) scores(ctx context.Context, userID, dimension string, limit int) ([]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT score
		 FROM performance_history
		 WHERE user_id = $1 AND dimension = $2
		 ORDER BY recorded_at DESC
		 LIMIT $3`,
		userID, dimension, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
