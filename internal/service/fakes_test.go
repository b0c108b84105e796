package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// memSessionStore is an in-memory SessionStore for tests.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
	saveErr  error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*model.Session)}
}

func (s *memSessionStore) SaveSession(_ context.Context, sess *model.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memSessionStore) GetSession(_ context.Context, id uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errs.NotFound("session", id.String())
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessionStore) GetUserSessions(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	return s.QuerySessions(ctx, SessionQuery{UserID: userID, Limit: limit})
}

func (s *memSessionStore) QuerySessions(_ context.Context, q SessionQuery) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Session
	for _, sess := range s.sessions {
		if q.UserID != "" && sess.UserID != q.UserID {
			continue
		}
		if q.Status != "" && sess.Status != q.Status {
			continue
		}
		if !q.From.IsZero() && sess.StartedAt.Before(q.From) {
			continue
		}
		if !q.Until.IsZero() && !sess.StartedAt.Before(q.Until) {
			continue
		}
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memSessionStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errs.NotFound("session", id.String())
	}
	delete(s.sessions, id)
	return nil
}

// fakeHistory is an in-memory HistoryStore. Scores are newest first, as
// the real repository returns them.
type fakeHistory struct {
	dims     map[string][]float64
	overalls []float64
	err      error
}

func (h *fakeHistory) DimensionHistory(_ context.Context, _, dimension string, limit int) ([]float64, error) {
	if h.err != nil {
		return nil, h.err
	}
	out := h.dims[dimension]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *fakeHistory) OverallHistory(_ context.Context, _ string, limit int) ([]float64, error) {
	if h.err != nil {
		return nil, h.err
	}
	out := h.overalls
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeSource returns n generated questions, or a fixed error.
type fakeSource struct {
	questions []model.Question
	err       error
}

func (f *fakeSource) FetchBatch(_ context.Context, _ model.SessionConfig, n int) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.questions) > n {
		return f.questions[:n], nil
	}
	return f.questions, nil
}

func makeQuestions(n int, qType model.QuestionType) []model.Question {
	out := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Question{
			ID:         uuid.New(),
			Type:       qType,
			Category:   model.CategoryProblemSolving,
			Text:       "Describe a challenge you solved recently.",
			Difficulty: model.DifficultyMedium,
		})
	}
	return out
}

// memStreakStore is an in-memory StreakStore.
type memStreakStore struct {
	streaks map[string]*model.PracticeStreak
}

func newMemStreakStore() *memStreakStore {
	return &memStreakStore{streaks: make(map[string]*model.PracticeStreak)}
}

func (s *memStreakStore) GetStreak(_ context.Context, userID string) (*model.PracticeStreak, error) {
	st, ok := s.streaks[userID]
	if !ok {
		return nil, errs.NotFound("streak", userID)
	}
	cp := *st
	return &cp, nil
}

func (s *memStreakStore) UpsertStreak(_ context.Context, st *model.PracticeStreak) error {
	cp := *st
	s.streaks[st.UserID] = &cp
	return nil
}

// memScheduleStore is an in-memory ScheduleStore.
type memScheduleStore struct {
	schedules map[uuid.UUID]*model.ScheduledSession
	reminders map[int64]*model.Reminder
	nextID    int64
}

func newMemScheduleStore() *memScheduleStore {
	return &memScheduleStore{
		schedules: make(map[uuid.UUID]*model.ScheduledSession),
		reminders: make(map[int64]*model.Reminder),
	}
}

func (s *memScheduleStore) CreateSchedule(_ context.Context, sched *model.ScheduledSession) error {
	cp := *sched
	s.schedules[sched.ID] = &cp
	return nil
}

func (s *memScheduleStore) GetSchedule(_ context.Context, id uuid.UUID) (*model.ScheduledSession, error) {
	sched, ok := s.schedules[id]
	if !ok {
		return nil, errs.NotFound("schedule", id.String())
	}
	cp := *sched
	return &cp, nil
}

func (s *memScheduleStore) UpdateSchedule(_ context.Context, sched *model.ScheduledSession) error {
	if _, ok := s.schedules[sched.ID]; !ok {
		return errs.NotFound("schedule", sched.ID.String())
	}
	cp := *sched
	s.schedules[sched.ID] = &cp
	return nil
}

func (s *memScheduleStore) ListUserSchedules(_ context.Context, userID string) ([]model.ScheduledSession, error) {
	var out []model.ScheduledSession
	for _, sched := range s.schedules {
		if sched.UserID == userID {
			out = append(out, *sched)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *memScheduleStore) ReplaceReminders(ctx context.Context, scheduleID uuid.UUID, remindAt []time.Time) error {
	sched, ok := s.schedules[scheduleID]
	if !ok {
		return errs.NotFound("schedule", scheduleID.String())
	}
	if err := s.ClearReminders(ctx, scheduleID); err != nil {
		return err
	}
	for _, at := range remindAt {
		s.nextID++
		s.reminders[s.nextID] = &model.Reminder{
			ID:         s.nextID,
			ScheduleID: scheduleID,
			UserID:     sched.UserID,
			RemindAt:   at,
		}
	}
	return nil
}

func (s *memScheduleStore) ClearReminders(_ context.Context, scheduleID uuid.UUID) error {
	for id, r := range s.reminders {
		if r.ScheduleID == scheduleID && !r.Sent {
			delete(s.reminders, id)
		}
	}
	return nil
}

func (s *memScheduleStore) ClaimDueReminders(_ context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	var due []model.Reminder
	for _, r := range s.reminders {
		if !r.Sent && !r.RemindAt.After(now) {
			r.Sent = true
			due = append(due, *r)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (s *memScheduleStore) MarkMissed(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, sched := range s.schedules {
		if (sched.Status == model.ScheduleStatusScheduled || sched.Status == model.ScheduleStatusReminded) &&
			sched.ScheduledAt.Before(cutoff) {
			sched.Status = model.ScheduleStatusMissed
			n++
		}
	}
	return n, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}
