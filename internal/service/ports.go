package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/model"
)

// SessionQuery filters session lookups with equality/range predicates.
// Zero values mean "no filter".
type SessionQuery struct {
	UserID string
	Status model.SessionStatus
	From   time.Time
	Until  time.Time
	Limit  int
}

// SessionStore is the storage collaborator for session aggregates. The
// core issues calls; persistence lives behind this interface.
type SessionStore interface {
	SaveSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// GetUserSessions returns the user's sessions, newest first.
	GetUserSessions(ctx context.Context, userID string, limit int) ([]model.Session, error)
	QuerySessions(ctx context.Context, q SessionQuery) ([]model.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// HistoryStore serves historical per-dimension scores for trend and
// improvement calculations. Rows are written by the history worker when
// sessions complete.
type HistoryStore interface {
	// DimensionHistory returns up to limit scores for one dimension,
	// newest first.
	DimensionHistory(ctx context.Context, userID, dimension string, limit int) ([]float64, error)
	// OverallHistory returns up to limit overall scores, newest first.
	OverallHistory(ctx context.Context, userID string, limit int) ([]float64, error)
}

// StreakStore persists practice streaks.
type StreakStore interface {
	GetStreak(ctx context.Context, userID string) (*model.PracticeStreak, error)
	UpsertStreak(ctx context.Context, s *model.PracticeStreak) error
}

// ScheduleStore persists scheduled sessions and their reminder rows.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s *model.ScheduledSession) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*model.ScheduledSession, error)
	UpdateSchedule(ctx context.Context, s *model.ScheduledSession) error
	ListUserSchedules(ctx context.Context, userID string) ([]model.ScheduledSession, error)
	// ReplaceReminders clears a schedule's pending reminders and arms the
	// given remind-at times.
	ReplaceReminders(ctx context.Context, scheduleID uuid.UUID, remindAt []time.Time) error
	// ClearReminders removes all pending reminders for a schedule.
	ClearReminders(ctx context.Context, scheduleID uuid.UUID) error
	// ClaimDueReminders atomically marks due unsent reminders as sent and
	// returns them. Safe to call repeatedly: a claimed reminder is never
	// returned again.
	ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
	// MarkMissed flips SCHEDULED/REMINDED schedules older than cutoff to
	// MISSED and returns how many changed.
	MarkMissed(ctx context.Context, cutoff time.Time) (int64, error)
}

// QuestionSource is the question-supply collaborator: given a session
// config it returns an ordered batch of tagged questions.
type QuestionSource interface {
	FetchBatch(ctx context.Context, cfg model.SessionConfig, n int) ([]model.Question, error)
}

// QuestionFilter narrows question-bank listings. Zero values mean "no
// filter".
type QuestionFilter struct {
	Type       model.QuestionType
	Category   model.QuestionCategory
	Difficulty model.Difficulty
	Limit      int
}

// QuestionStore persists the question bank.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListQuestions(ctx context.Context, f QuestionFilter) ([]model.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	// RandomBatch returns up to n questions matching the difficulty and
	// category set, in random order.
	RandomBatch(ctx context.Context, difficulty model.Difficulty, categories []model.QuestionCategory, n int) ([]model.Question, error)
}

// Notification is a title/message/priority alert the core wants delivered.
type Notification struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Notifier is the notification collaborator. The core decides when and
// what; delivery is someone else's problem. Failures are logged and
// swallowed by callers — they never block the session flow.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// CompletionHook is invoked after a session completes. Hook errors are
// logged and swallowed.
type CompletionHook func(ctx context.Context, s *model.Session, summary *model.SessionSummary)
