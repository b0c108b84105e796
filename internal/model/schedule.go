package model

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus enumerates scheduled-session states.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	ScheduleStatusReminded  ScheduleStatus = "REMINDED"
	ScheduleStatusStarted   ScheduleStatus = "STARTED"
	ScheduleStatusMissed    ScheduleStatus = "MISSED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// ReminderSettings configures how far ahead of a scheduled session the
// user is reminded. One reminder is armed per lead time.
type ReminderSettings struct {
	Enabled          bool  `json:"enabled"`
	LeadTimesMinutes []int `json:"lead_times_minutes"`
}

// ScheduledSession is a future practice session with pending reminders.
type ScheduledSession struct {
	ID          uuid.UUID        `json:"id"`
	UserID      string           `json:"user_id"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Config      SessionConfig    `json:"config"`
	Reminders   ReminderSettings `json:"reminders"`
	Status      ScheduleStatus   `json:"status"`
}

// Reminder is one pending reminder row for a scheduled session.
// Sent flips atomically with dispatch so a re-run sweep cannot notify twice.
type Reminder struct {
	ID         int64     `json:"id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	UserID     string    `json:"user_id"`
	RemindAt   time.Time `json:"remind_at"`
	Sent       bool      `json:"sent"`
}

// ScheduleSessionRequest is the payload for scheduling a future session.
type ScheduleSessionRequest struct {
	UserID           string   `json:"user_id" binding:"required,min=1,max=120"`
	ScheduledAt      string   `json:"scheduled_at" binding:"required"` // RFC 3339
	Categories       []string `json:"categories" binding:"omitempty,dive,min=1"`
	Difficulty       string   `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	DurationMinutes  int      `json:"duration_minutes" binding:"min=0,max=120"`
	RemindersEnabled bool     `json:"reminders_enabled"`
	LeadTimesMinutes []int    `json:"lead_times_minutes" binding:"omitempty,dive,min=1,max=1440"`
}

// PracticeRecommendation is one scheduling/practice nudge, lower
// Priority sorts first.
type PracticeRecommendation struct {
	Priority int    `json:"priority"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}
