package config

import (
	"fmt"
	"sort"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionDeadlineKey returns the cache key holding the Unix timestamp at
// which an active session's completion timer fires. Used for crash
// recovery of in-flight timers.
func (r *CacheKeyStruct) SessionDeadlineKey(sessionID string) string {
	return fmt.Sprintf("session:%s:deadline", sessionID)
}

// SessionRemainingKey returns the cache key holding the remaining active
// seconds of a paused session.
func (r *CacheKeyStruct) SessionRemainingKey(sessionID string) string {
	return fmt.Sprintf("session:%s:remaining", sessionID)
}

// SessionEventsChannel returns the pub/sub channel for a session's
// progress events (consumed by the WebSocket stream).
func (r *CacheKeyStruct) SessionEventsChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:events", sessionID)
}

// UserNotifyChannel returns the pub/sub channel for a user's
// reminder/milestone notifications.
func (r *CacheKeyStruct) UserNotifyChannel(userID string) string {
	return fmt.Sprintf("user:%s:notify", userID)
}

// QuestionBatchKey returns the cache key for a question batch selected by
// difficulty and category set. Categories are sorted so the key is stable.
func (r *CacheKeyStruct) QuestionBatchKey(difficulty string, categories []string) string {
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	if len(sorted) == 0 {
		sorted = []string{"ANY"}
	}
	if difficulty == "" {
		difficulty = "ANY"
	}
	return fmt.Sprintf("qbatch:%s:%s", difficulty, strings.Join(sorted, ","))
}

var CacheKey = NewCacheKeyStruct()
