package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the kinds of interview questions the bank serves.
type QuestionType string

const (
	QuestionTypeBehavioral   QuestionType = "BEHAVIORAL"
	QuestionTypeTechnical    QuestionType = "TECHNICAL"
	QuestionTypeSituational  QuestionType = "SITUATIONAL"
	QuestionTypeSystemDesign QuestionType = "SYSTEM_DESIGN"
	QuestionTypeCaseStudy    QuestionType = "CASE_STUDY"
	QuestionTypeRoleSpecific QuestionType = "ROLE_SPECIFIC"
	QuestionTypeFollowUp     QuestionType = "FOLLOW_UP"
)

// QuestionCategory enumerates the competency area a question probes.
type QuestionCategory string

const (
	CategoryLeadership      QuestionCategory = "LEADERSHIP"
	CategoryProblemSolving  QuestionCategory = "PROBLEM_SOLVING"
	CategoryCommunication   QuestionCategory = "COMMUNICATION"
	CategoryTeamwork        QuestionCategory = "TEAMWORK"
	CategoryTechnicalSkills QuestionCategory = "TECHNICAL_SKILLS"
	CategoryDomainKnowledge QuestionCategory = "DOMAIN_KNOWLEDGE"
	CategoryCultureFit      QuestionCategory = "CULTURE_FIT"
	CategoryCareerGoals     QuestionCategory = "CAREER_GOALS"
)

// Difficulty enumerates question difficulty tiers.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ValidDifficulty reports whether d is a known difficulty tier.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ValidQuestionType reports whether t is a known question type.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeBehavioral, QuestionTypeTechnical, QuestionTypeSituational,
		QuestionTypeSystemDesign, QuestionTypeCaseStudy, QuestionTypeRoleSpecific,
		QuestionTypeFollowUp:
		return true
	}
	return false
}

// ValidCategory reports whether c is a known question category.
func ValidCategory(c QuestionCategory) bool {
	switch c {
	case CategoryLeadership, CategoryProblemSolving, CategoryCommunication,
		CategoryTeamwork, CategoryTechnicalSkills, CategoryDomainKnowledge,
		CategoryCultureFit, CategoryCareerGoals:
		return true
	}
	return false
}

// Question is one interview prompt served into a session. ExpectedElements
// are the ordered key concepts a complete answer covers; FollowUpTriggers
// are phrases that would prompt a follow-up question.
type Question struct {
	ID               uuid.UUID        `json:"id"`
	Type             QuestionType     `json:"type"`
	Category         QuestionCategory `json:"category"`
	Text             string           `json:"text"`
	ExpectedElements []string         `json:"expected_elements,omitempty"`
	Difficulty       Difficulty       `json:"difficulty"`
	TimeLimitSeconds *int             `json:"time_limit_seconds,omitempty"`
	FollowUpTriggers []string         `json:"follow_up_triggers,omitempty"`
}

// CreateQuestionRequest is the payload for adding a question to the bank.
type CreateQuestionRequest struct {
	Type             string   `json:"type" binding:"required"`
	Category         string   `json:"category" binding:"required"`
	Text             string   `json:"text" binding:"required,min=10,max=2000"`
	ExpectedElements []string `json:"expected_elements" binding:"omitempty,dive,min=1,max=120"`
	Difficulty       string   `json:"difficulty" binding:"required,oneof=EASY MEDIUM HARD"`
	TimeLimitSeconds *int     `json:"time_limit_seconds" binding:"omitempty,min=30,max=3600"`
	FollowUpTriggers []string `json:"follow_up_triggers" binding:"omitempty,dive,min=1,max=120"`
}
