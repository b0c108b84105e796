package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// questionPoolTTL is how long a fetched question pool stays cached per
// difficulty/category combination.
const questionPoolTTL = 10 * time.Minute

// poolOversample fetches more questions than one session needs so
// consecutive sessions with the same config do not repeat the exact
// same batch.
const poolOversample = 3

// QuestionSupplier serves question batches for new sessions from the
// question bank, with a redis-cached pool per config combination.
// It implements QuestionSource.
type QuestionSupplier struct {
	questions QuestionStore
	rdb       *redis.Client // optional pool cache
	log       zerolog.Logger
}

// NewQuestionSupplier wires a supplier. rdb may be nil; every fetch then
// goes to the store.
func NewQuestionSupplier(questions QuestionStore, rdb *redis.Client, log zerolog.Logger) *QuestionSupplier {
	return &QuestionSupplier{
		questions: questions,
		rdb:       rdb,
		log:       log.With().Str("component", "question_supplier").Logger(),
	}
}

// FetchBatch returns up to n questions matching the session config, in
// random order. An undersized question bank returns what exists; an
// empty result is not an error. Cache failures degrade to the store.
func (qs *QuestionSupplier) FetchBatch(ctx context.Context, cfg model.SessionConfig, n int) ([]model.Question, error) {
	if n <= 0 {
		return nil, errs.NewValidation([]string{"batch size must be positive"})
	}

	pool := qs.cachedPool(ctx, cfg)
	if pool == nil {
		var err error
		pool, err = qs.questions.RandomBatch(ctx, cfg.Difficulty, cfg.Categories, n*poolOversample)
		if err != nil {
			return nil, err
		}
		qs.cachePool(ctx, cfg, pool)
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool, nil
}

func (qs *QuestionSupplier) poolKey(cfg model.SessionConfig) string {
	cats := make([]string, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		cats = append(cats, string(c))
	}
	return config.CacheKey.QuestionBatchKey(string(cfg.Difficulty), cats)
}

func (qs *QuestionSupplier) cachedPool(ctx context.Context, cfg model.SessionConfig) []model.Question {
	if qs.rdb == nil {
		return nil
	}
	raw, err := qs.rdb.Get(ctx, qs.poolKey(cfg)).Bytes()
	if err != nil {
		if err != redis.Nil {
			qs.log.Warn().Err(err).Msg("question pool cache read failed")
		}
		return nil
	}
	var pool []model.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		qs.log.Warn().Err(err).Msg("question pool cache corrupt")
		return nil
	}
	if len(pool) == 0 {
		return nil
	}
	return pool
}

func (qs *QuestionSupplier) cachePool(ctx context.Context, cfg model.SessionConfig, pool []model.Question) {
	if qs.rdb == nil || len(pool) == 0 {
		return
	}
	raw, err := json.Marshal(pool)
	if err != nil {
		return
	}
	if err := qs.rdb.Set(ctx, qs.poolKey(cfg), raw, questionPoolTTL).Err(); err != nil {
		qs.log.Warn().Err(err).Msg("question pool cache write failed")
	}
}
