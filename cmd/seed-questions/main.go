package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/database"
	"github.com/rehearsely/rehearse-backend/internal/logger"
	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/repository"
)

func intPtr(n int) *int { return &n }

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Question Bank ===")

	questions := []model.Question{
		{
			Type:             model.QuestionTypeBehavioral,
			Category:         model.CategoryLeadership,
			Text:             "Tell me about a time you led a team through a difficult project.",
			ExpectedElements: []string{"situation", "team size", "obstacle", "your actions", "outcome"},
			Difficulty:       model.DifficultyMedium,
			FollowUpTriggers: []string{"conflict", "deadline"},
		},
		{
			Type:             model.QuestionTypeBehavioral,
			Category:         model.CategoryTeamwork,
			Text:             "Describe a situation where you disagreed with a teammate. How did you resolve it?",
			ExpectedElements: []string{"disagreement", "perspective taking", "resolution", "relationship afterward"},
			Difficulty:       model.DifficultyEasy,
		},
		{
			Type:             model.QuestionTypeBehavioral,
			Category:         model.CategoryCommunication,
			Text:             "Give an example of a time you had to explain a complex topic to a non-expert audience.",
			ExpectedElements: []string{"audience", "simplification", "feedback", "result"},
			Difficulty:       model.DifficultyEasy,
		},
		{
			Type:             model.QuestionTypeTechnical,
			Category:         model.CategoryTechnicalSkills,
			Text:             "How would you diagnose a service whose p99 latency doubled overnight?",
			ExpectedElements: []string{"metrics", "recent changes", "profiling", "dependencies", "hypothesis testing"},
			Difficulty:       model.DifficultyMedium,
			TimeLimitSeconds: intPtr(600),
		},
		{
			Type:             model.QuestionTypeTechnical,
			Category:         model.CategoryTechnicalSkills,
			Text:             "Explain the trade-offs between optimistic and pessimistic locking.",
			ExpectedElements: []string{"contention", "retries", "deadlocks", "throughput"},
			Difficulty:       model.DifficultyHard,
		},
		{
			Type:             model.QuestionTypeSystemDesign,
			Category:         model.CategoryProblemSolving,
			Text:             "Design a notification system that delivers reminders to millions of users at scheduled times.",
			ExpectedElements: []string{"scheduling", "queueing", "idempotency", "retries", "scale estimates"},
			Difficulty:       model.DifficultyHard,
			TimeLimitSeconds: intPtr(1800),
		},
		{
			Type:             model.QuestionTypeSituational,
			Category:         model.CategoryCultureFit,
			Text:             "Your manager asks you to ship a feature you believe is not ready. What do you do?",
			ExpectedElements: []string{"risk assessment", "communication", "compromise", "escalation"},
			Difficulty:       model.DifficultyMedium,
		},
		{
			Type:             model.QuestionTypeCaseStudy,
			Category:         model.CategoryProblemSolving,
			Text:             "A subscription product's churn rose 20% in one quarter. How would you investigate and respond?",
			ExpectedElements: []string{"segmentation", "data sources", "hypotheses", "experiments", "metrics"},
			Difficulty:       model.DifficultyHard,
		},
		{
			Type:             model.QuestionTypeRoleSpecific,
			Category:         model.CategoryDomainKnowledge,
			Text:             "What recent development in your field are you most excited about, and why does it matter?",
			ExpectedElements: []string{"specific development", "technical understanding", "impact"},
			Difficulty:       model.DifficultyEasy,
		},
		{
			Type:             model.QuestionTypeFollowUp,
			Category:         model.CategoryCareerGoals,
			Text:             "Where do you see yourself in five years?",
			ExpectedElements: []string{"direction", "growth", "alignment"},
			Difficulty:       model.DifficultyEasy,
		},
	}

	seeded := 0
	for i := range questions {
		if err := questionRepo.CreateQuestion(ctx, &questions[i]); err != nil {
			log.Error().Err(err).Str("text", questions[i].Text).Msg("Failed to seed question")
			continue
		}
		seeded++
	}

	fmt.Printf("Seeded %d/%d questions\n", seeded, len(questions))
}
