package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/repository"
)

const (
	HistoryBatchSize    = 50
	HistoryBatchTimeout = 2 * time.Second
	HistoryPollTimeout  = 1 * time.Second
)

// historyPayload mirrors what the session engine enqueues on completion.
type historyPayload struct {
	SessionID  string             `json:"session_id"`
	UserID     string             `json:"user_id"`
	Overall    float64            `json:"overall"`
	Dimensions map[string]float64 `json:"dimensions"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// HistoryWorker drains the history queue and archives completed-session
// scores into performance_history in batches.
type HistoryWorker struct {
	history *repository.HistoryRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

func NewHistoryWorker(history *repository.HistoryRepository, rdb *redis.Client, log zerolog.Logger) *HistoryWorker {
	return &HistoryWorker{
		history: history,
		rdb:     rdb,
		log:     log.With().Str("component", "history_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *HistoryWorker) Start(ctx context.Context) {
	w.log.Info().Msg("HistoryWorker started")

	batch := make([]*historyPayload, 0, HistoryBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= HistoryBatchSize || time.Since(lastFlush) >= HistoryBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, HistoryPollTimeout, config.WorkerKey.PersistHistoryQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p historyPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper with single-record fallback
// ----------------------------------------------------------------

func (w *HistoryWorker) flushSafe(ctx context.Context, batch []*historyPayload) {
	if len(batch) == 0 {
		return
	}

	records := make([]repository.HistoryRecord, 0, len(batch))
	for _, p := range batch {
		records = append(records, toRecord(p))
	}

	if err := w.history.InsertRecords(ctx, records); err != nil {
		w.log.Warn().Err(err).Msg("bulk history insert failed, using fallback")

		for _, p := range batch {
			if err := w.history.InsertRecords(ctx, []repository.HistoryRecord{toRecord(p)}); err != nil {
				w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("single insert failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistHistoryQueue, raw)
			}
		}
	}
}

func toRecord(p *historyPayload) repository.HistoryRecord {
	recordedAt := p.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	return repository.HistoryRecord{
		SessionID:  p.SessionID,
		UserID:     p.UserID,
		Overall:    p.Overall,
		Dimensions: p.Dimensions,
		RecordedAt: recordedAt,
	}
}
