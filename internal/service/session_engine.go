package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// maxSessionQuestions caps the initial batch regardless of duration.
const maxSessionQuestions = 20

// SubmitResult is what a caller gets back for one submitted response.
type SubmitResult struct {
	Response        model.Response          `json:"response"`
	NextQuestion    *model.Question         `json:"next_question,omitempty"`
	SessionComplete bool                    `json:"session_complete"`
	Progress        model.SessionProgress   `json:"progress"`
	Analysis        *model.PerformanceScore `json:"analysis,omitempty"`
}

// ProgressView is the pull-based progress snapshot. RemainingSeconds is
// present only for timed sessions that are not yet completed.
type ProgressView struct {
	SessionID        string                `json:"session_id"`
	Status           model.SessionStatus   `json:"status"`
	Progress         model.SessionProgress `json:"progress"`
	RemainingSeconds *float64              `json:"remaining_seconds,omitempty"`
}

// historyPayload is what the engine enqueues for the history worker when
// a session completes.
type historyPayload struct {
	SessionID  string             `json:"session_id"`
	UserID     string             `json:"user_id"`
	Overall    float64            `json:"overall"`
	Dimensions map[string]float64 `json:"dimensions"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// SessionEngine orchestrates the session lifecycle: it creates
// aggregates, pulls questions from the supply, scores submitted answers,
// keeps the rolling analysis fresh, and owns every session timer.
// Exactly one goroutine mutates a given session at a time; calls against
// different sessions run in parallel.
type SessionEngine struct {
	store   SessionStore
	source  QuestionSource
	scorer  *ResponseScorer
	tracker *PerformanceTracker
	rdb     *redis.Client // optional: deadline cache + progress events
	log     zerolog.Logger

	avgQuestionMinutes int
	defaultBatch       int
	now                func() time.Time

	mu     sync.Mutex
	active map[uuid.UUID]*sessionTimers
	hooks  []CompletionHook
}

// NewSessionEngine wires a session engine. rdb may be nil; deadline
// caching and event publishing are then skipped.
func NewSessionEngine(
	store SessionStore,
	source QuestionSource,
	scorer *ResponseScorer,
	tracker *PerformanceTracker,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionEngine {
	avg := cfg.AverageQuestionMinutes
	if avg <= 0 {
		avg = 5
	}
	batch := cfg.DefaultQuestionBatch
	if batch <= 0 {
		batch = 10
	}
	return &SessionEngine{
		store:              store,
		source:             source,
		scorer:             scorer,
		tracker:            tracker,
		rdb:                rdb,
		log:                log.With().Str("component", "session_engine").Logger(),
		avgQuestionMinutes: avg,
		defaultBatch:       batch,
		now:                time.Now,
		active:             make(map[uuid.UUID]*sessionTimers),
	}
}

// OnCompletion registers a hook invoked after every session completion.
// Hook panics/errors never propagate into the session flow.
func (e *SessionEngine) OnCompletion(h CompletionHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, h)
}

// Start creates a session for the user, fills it with an initial
// question batch sized from the configured duration, and arms the
// completion timer for timed sessions.
func (e *SessionEngine) Start(ctx context.Context, userID string, cfg model.SessionConfig) (*model.Session, error) {
	now := e.now()
	sess := model.NewSession(userID, cfg, now)
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	batch := e.defaultBatch
	if cfg.DurationMinutes > 0 {
		batch = cfg.DurationMinutes / e.avgQuestionMinutes
		if batch < 1 {
			batch = 1
		}
	}
	if batch > maxSessionQuestions {
		batch = maxSessionQuestions
	}

	questions, err := e.source.FetchBatch(ctx, cfg, batch)
	if err != nil {
		return nil, errs.Dependency("fetch question batch", err)
	}
	for _, q := range questions {
		if err := sess.AddQuestion(q); err != nil {
			return nil, err
		}
	}

	// An exhausted question supply is not a failure: the session just
	// completes immediately.
	if len(sess.Questions) == 0 {
		_ = sess.Complete(now)
		if err := e.store.SaveSession(ctx, sess); err != nil {
			return nil, errs.Dependency("save session", err)
		}
		return sess, nil
	}

	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, errs.Dependency("save session", err)
	}

	st := &sessionTimers{
		limit:       time.Duration(cfg.DurationMinutes) * time.Minute,
		activeSince: now,
	}
	if st.limit > 0 {
		st.timer = e.armCompletion(sess.ID, st.limit)
		e.cacheDeadline(ctx, sess.ID, now.Add(st.limit))
	}
	e.mu.Lock()
	e.active[sess.ID] = st
	e.mu.Unlock()

	e.publishEvent(sess.ID, "session_started", sess.Progress())
	return sess, nil
}

// SubmitResponse scores and appends one answer to the session. The
// questionID must match the current expected question. When the last
// question is answered the session auto-completes. A failed submit
// leaves the stored aggregate untouched.
func (e *SessionEngine) SubmitResponse(ctx context.Context, sessionID, questionID uuid.UUID, text string, responseTime float64) (*SubmitResult, error) {
	st := e.timersFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		e.release(sessionID, st)
		return nil, err
	}

	now := e.now()
	resp := model.Response{
		ID:                  uuid.New(),
		QuestionID:          questionID,
		SessionID:           sessionID,
		Text:                text,
		Timestamp:           now,
		ResponseTimeSeconds: responseTime,
	}

	current, ok := sess.CurrentQuestion()
	if ok && current.ID == questionID {
		analysis := e.scorer.Score(resp, *current)
		resp.Analysis = &analysis
	}

	// AddResponse validates state, ordering, and bounds; on error the
	// aggregate is unchanged and nothing is saved. A completed session
	// has no live entry, so drop the one timersFor just made.
	if err := sess.AddResponse(resp); err != nil {
		if sess.Status == model.SessionStatusCompleted {
			e.release(sessionID, st)
		}
		return nil, err
	}

	e.refreshAnalysis(ctx, sess)

	result := &SubmitResult{
		Response: resp,
		Analysis: sess.Analysis,
	}

	next, more := sess.CurrentQuestion()
	if !more {
		summary, err := e.finalize(ctx, sess, st)
		if err != nil {
			return nil, err
		}
		result.SessionComplete = true
		result.Progress = sess.Progress()
		e.publishEvent(sessionID, "session_completed", summary)
		return result, nil
	}

	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, errs.Dependency("save session", err)
	}
	result.NextQuestion = next
	result.Progress = sess.Progress()
	e.publishEvent(sessionID, "response_scored", result.Progress)
	return result, nil
}

// Pause suspends an active session and stops its completion timer. The
// time spent paused will not count toward the session limit.
func (e *SessionEngine) Pause(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	st := e.timersFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		e.release(sessionID, st)
		return nil, err
	}
	if err := sess.Pause(); err != nil {
		if sess.Status == model.SessionStatusCompleted {
			e.release(sessionID, st)
		}
		return nil, err
	}

	now := e.now()
	st.pause(now)
	if left, ok := st.remaining(now); ok {
		e.cacheRemaining(ctx, sessionID, left)
	}

	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, errs.Dependency("save session", err)
	}
	e.publishEvent(sessionID, "session_paused", sess.Progress())
	return sess, nil
}

// Resume reactivates a paused session, re-arming its completion timer
// with the remaining ACTIVE allowance.
func (e *SessionEngine) Resume(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	st := e.timersFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		e.release(sessionID, st)
		return nil, err
	}
	if err := sess.Resume(); err != nil {
		if sess.Status == model.SessionStatusCompleted {
			e.release(sessionID, st)
		}
		return nil, err
	}

	now := e.now()
	st.resume(now, func(d time.Duration) *time.Timer {
		e.cacheDeadline(ctx, sessionID, now.Add(d))
		return e.armCompletion(sessionID, d)
	})

	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, errs.Dependency("save session", err)
	}
	e.publishEvent(sessionID, "session_resumed", sess.Progress())
	return sess, nil
}

// Complete finalizes a session from active or paused, cancels its
// timers, and returns the session summary.
func (e *SessionEngine) Complete(ctx context.Context, sessionID uuid.UUID) (*model.SessionSummary, error) {
	st := e.timersFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		e.release(sessionID, st)
		return nil, err
	}
	if sess.Status == model.SessionStatusCompleted {
		e.release(sessionID, st)
		return nil, errs.InvalidState("complete", string(sess.Status))
	}

	e.refreshAnalysis(ctx, sess)
	summary, err := e.finalize(ctx, sess, st)
	if err != nil {
		return nil, err
	}
	e.publishEvent(sessionID, "session_completed", summary)
	return summary, nil
}

// Progress returns the session's progress snapshot. Repeated calls
// without mutation return identical results.
func (e *SessionEngine) Progress(ctx context.Context, sessionID uuid.UUID) (*ProgressView, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &ProgressView{
		SessionID: sessionID.String(),
		Status:    sess.Status,
		Progress:  sess.Progress(),
	}
	if sess.Status != model.SessionStatusCompleted {
		e.mu.Lock()
		st := e.active[sessionID]
		e.mu.Unlock()
		if st != nil {
			st.mu.Lock()
			if left, ok := st.remaining(e.now()); ok {
				secs := left.Seconds()
				view.RemainingSeconds = &secs
			}
			st.mu.Unlock()
		}
	}
	return view, nil
}

// Summary rebuilds the completion summary of a completed session.
func (e *SessionEngine) Summary(ctx context.Context, sessionID uuid.UUID) (*model.SessionSummary, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusCompleted {
		return nil, errs.InvalidState("summarize", string(sess.Status))
	}
	return buildSummary(sess, e.now()), nil
}

// Delete removes a session and cancels all of its timers atomically so
// no stale callback can fire after the delete returns.
func (e *SessionEngine) Delete(ctx context.Context, sessionID uuid.UUID) error {
	st := e.timersFor(sessionID)
	st.mu.Lock()
	st.cancel()
	st.mu.Unlock()

	e.mu.Lock()
	delete(e.active, sessionID)
	e.mu.Unlock()

	e.clearCache(ctx, sessionID)
	return e.store.DeleteSession(ctx, sessionID)
}

// ────────────────────────────────────────────────────────────────────────
// Internals
// ────────────────────────────────────────────────────────────────────────

// timersFor returns the session's timer entry, creating an inert one for
// sessions the engine has not seen (restart recovery, completed ids).
// The entry also serves as the per-session mutex.
func (e *SessionEngine) timersFor(id uuid.UUID) *sessionTimers {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.active[id]
	if !ok {
		st = &sessionTimers{activeSince: e.now()}
		e.active[id] = st
	}
	return st
}

// release drops an inert timer entry created for an unknown or
// completed session id so bad ids cannot grow the table.
func (e *SessionEngine) release(id uuid.UUID, st *sessionTimers) {
	e.mu.Lock()
	if cur, ok := e.active[id]; ok && cur == st && st.timer == nil && st.limit == 0 {
		delete(e.active, id)
	}
	e.mu.Unlock()
}

// armCompletion schedules the auto-complete callback. Timer failures are
// logged and swallowed; they never block the session flow.
func (e *SessionEngine) armCompletion(id uuid.UUID, d time.Duration) *time.Timer {
	return time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := e.Complete(ctx, id); err != nil {
			if !errs.IsInvalidState(err) && !errs.IsNotFound(err) {
				e.log.Error().Err(err).Str("session_id", id.String()).Msg("timer completion failed")
			}
		}
	})
}

// refreshAnalysis recomputes the rolling performance snapshot. Analysis
// failures degrade: the previous snapshot is kept.
func (e *SessionEngine) refreshAnalysis(ctx context.Context, sess *model.Session) {
	score, err := e.tracker.CalculateSessionScore(ctx, sess)
	if err != nil {
		e.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("analysis refresh failed")
		return
	}
	sess.Analysis = score
}

// finalize completes the aggregate, cancels timers, persists, enqueues
// the history record, and runs completion hooks. Caller holds the
// per-session lock.
func (e *SessionEngine) finalize(ctx context.Context, sess *model.Session, st *sessionTimers) (*model.SessionSummary, error) {
	now := e.now()
	if err := sess.Complete(now); err != nil {
		return nil, err
	}
	st.cancel()

	if sess.Analysis == nil {
		e.refreshAnalysis(ctx, sess)
	}
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, errs.Dependency("save session", err)
	}

	e.mu.Lock()
	delete(e.active, sess.ID)
	hooks := append([]CompletionHook(nil), e.hooks...)
	e.mu.Unlock()

	e.clearCache(ctx, sess.ID)
	e.enqueueHistory(ctx, sess, now)

	summary := buildSummary(sess, now)
	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error().Interface("panic", r).Msg("completion hook panicked")
				}
			}()
			h(ctx, sess, summary)
		}()
	}
	return summary, nil
}

func buildSummary(sess *model.Session, now time.Time) *model.SessionSummary {
	summary := &model.SessionSummary{
		SessionID:       sess.ID.String(),
		UserID:          sess.UserID,
		QuestionsAsked:  len(sess.Questions),
		Answered:        len(sess.Responses),
		DurationSeconds: sess.ActiveDuration(now).Seconds(),
		TopDimensions:   []model.DimensionScore{},
		Recommendations: []string{},
	}
	if sess.Analysis != nil {
		summary.OverallScore = sess.Analysis.OverallScore
		summary.Recommendations = sess.Analysis.Recommendations
		dims := append([]model.DimensionScore(nil), sess.Analysis.Dimensions...)
		sort.Slice(dims, func(i, j int) bool { return dims[i].Score > dims[j].Score })
		if len(dims) > 2 {
			dims = dims[:2]
		}
		summary.TopDimensions = dims
	}
	return summary
}

// enqueueHistory pushes the completed session's dimension scores onto
// the history queue for the background worker. Queue failures are logged
// and swallowed.
func (e *SessionEngine) enqueueHistory(ctx context.Context, sess *model.Session, now time.Time) {
	if e.rdb == nil || sess.Analysis == nil {
		return
	}
	payload := historyPayload{
		SessionID:  sess.ID.String(),
		UserID:     sess.UserID,
		Overall:    sess.Analysis.OverallScore,
		Dimensions: make(map[string]float64, len(sess.Analysis.Dimensions)),
		RecordedAt: now,
	}
	for _, d := range sess.Analysis.Dimensions {
		payload.Dimensions[d.Name] = d.Score
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		e.log.Error().Err(err).Msg("marshal history payload")
		return
	}
	if err := e.rdb.RPush(ctx, config.WorkerKey.PersistHistoryQueue, raw).Err(); err != nil {
		e.log.Warn().Err(err).Msg("enqueue history record")
	}
}

func (e *SessionEngine) cacheDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) {
	if e.rdb == nil {
		return
	}
	if err := e.rdb.Set(ctx, config.CacheKey.SessionDeadlineKey(id.String()), deadline.Unix(), 0).Err(); err != nil {
		e.log.Warn().Err(err).Msg("cache session deadline")
	}
}

func (e *SessionEngine) cacheRemaining(ctx context.Context, id uuid.UUID, left time.Duration) {
	if e.rdb == nil {
		return
	}
	if err := e.rdb.Set(ctx, config.CacheKey.SessionRemainingKey(id.String()), int64(left.Seconds()), 0).Err(); err != nil {
		e.log.Warn().Err(err).Msg("cache session remaining")
	}
}

func (e *SessionEngine) clearCache(ctx context.Context, id uuid.UUID) {
	if e.rdb == nil {
		return
	}
	e.rdb.Del(ctx,
		config.CacheKey.SessionDeadlineKey(id.String()),
		config.CacheKey.SessionRemainingKey(id.String()),
	)
}

// publishEvent pushes a progress event to the session's pub/sub channel
// for the optional WebSocket stream. The core never assumes a consumer.
func (e *SessionEngine) publishEvent(id uuid.UUID, kind string, payload any) {
	if e.rdb == nil {
		return
	}
	msg, err := json.Marshal(map[string]any{"type": kind, "payload": payload})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.rdb.Publish(ctx, config.CacheKey.SessionEventsChannel(id.String()), msg).Err(); err != nil {
		e.log.Debug().Err(err).Msg("publish session event")
	}
}
