package model

import (
	"time"

	"github.com/google/uuid"
)

// Response is one answer submitted against a session question.
// ResponseTimeSeconds is how long the user took to answer.
type Response struct {
	ID                  uuid.UUID         `json:"id"`
	QuestionID          uuid.UUID         `json:"question_id"`
	SessionID           uuid.UUID         `json:"session_id"`
	Text                string            `json:"text"`
	Timestamp           time.Time         `json:"timestamp"`
	ResponseTimeSeconds float64           `json:"response_time_seconds"`
	Analysis            *ResponseAnalysis `json:"analysis,omitempty"`
}

// AnalysisMetrics holds the raw sub-metrics behind a ResponseAnalysis.
// They feed the dimension scores and the feedback checklist.
type AnalysisMetrics struct {
	WordCount         int      `json:"word_count"`
	SentenceCount     int      `json:"sentence_count"`
	LengthScore       float64  `json:"length_score"`
	KeywordScore      float64  `json:"keyword_score"`
	StructureScore    float64  `json:"structure_score"`
	CompletenessScore float64  `json:"completeness_score"`
	KeywordMatches    int      `json:"keyword_matches"`
	ActionVerbs       []string `json:"action_verbs,omitempty"`
	HasQuantifiable   bool     `json:"has_quantifiable"`
	STARComponents    []string `json:"star_components,omitempty"`
	MatchedElements   []string `json:"matched_elements,omitempty"`
}

// ResponseAnalysis is the scored breakdown of one response. All scores
// are in [0,100]. Strengths and Suggestions come from the ordered
// feedback checklist; any non-empty response yields at least one strength.
type ResponseAnalysis struct {
	Clarity       float64         `json:"clarity"`
	Relevance     float64         `json:"relevance"`
	Depth         float64         `json:"depth"`
	Communication float64         `json:"communication"`
	Completeness  float64         `json:"completeness"`
	OverallScore  float64         `json:"overall_score"`
	Strengths     []string        `json:"strengths"`
	Suggestions   []string        `json:"improvement_suggestions"`
	Metrics       AnalysisMetrics `json:"metrics"`
}

// SubmitResponseRequest is the payload for answering the current question.
type SubmitResponseRequest struct {
	QuestionID          string  `json:"question_id" binding:"required,uuid"`
	Text                string  `json:"text" binding:"max=20000"`
	ResponseTimeSeconds float64 `json:"response_time_seconds" binding:"min=0,max=3600"`
}
