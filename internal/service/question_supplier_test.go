package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// fakeQuestionBank implements QuestionStore over a fixed slice.
type fakeQuestionBank struct {
	questions []model.Question
	err       error
}

func (b *fakeQuestionBank) CreateQuestion(context.Context, *model.Question) error { return nil }

func (b *fakeQuestionBank) GetQuestion(_ context.Context, id uuid.UUID) (*model.Question, error) {
	return nil, errs.NotFound("question", id.String())
}

func (b *fakeQuestionBank) ListQuestions(context.Context, QuestionFilter) ([]model.Question, error) {
	return b.questions, nil
}

func (b *fakeQuestionBank) DeleteQuestion(context.Context, uuid.UUID) error { return nil }

func (b *fakeQuestionBank) RandomBatch(_ context.Context, _ model.Difficulty, _ []model.QuestionCategory, n int) ([]model.Question, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := append([]model.Question(nil), b.questions...)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func TestFetchBatchSizing(t *testing.T) {
	bank := &fakeQuestionBank{questions: makeQuestions(30, model.QuestionTypeBehavioral)}
	qs := NewQuestionSupplier(bank, nil, zerolog.Nop())

	got, err := qs.FetchBatch(context.Background(), model.SessionConfig{Difficulty: model.DifficultyMedium}, 6)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("batch = %d questions, want 6", len(got))
	}

	seen := map[uuid.UUID]bool{}
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s in batch", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestFetchBatchUndersizedBank(t *testing.T) {
	bank := &fakeQuestionBank{questions: makeQuestions(2, model.QuestionTypeTechnical)}
	qs := NewQuestionSupplier(bank, nil, zerolog.Nop())

	got, err := qs.FetchBatch(context.Background(), model.SessionConfig{}, 10)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("batch = %d, want everything the bank has (2)", len(got))
	}

	// An empty bank is not an error either.
	qs = NewQuestionSupplier(&fakeQuestionBank{}, nil, zerolog.Nop())
	got, err = qs.FetchBatch(context.Background(), model.SessionConfig{}, 10)
	if err != nil {
		t.Fatalf("FetchBatch empty bank: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("batch from empty bank = %d, want 0", len(got))
	}
}

func TestFetchBatchRejectsBadSize(t *testing.T) {
	qs := NewQuestionSupplier(&fakeQuestionBank{}, nil, zerolog.Nop())
	if _, err := qs.FetchBatch(context.Background(), model.SessionConfig{}, 0); !errs.IsValidation(err) {
		t.Fatalf("zero batch error = %v, want ValidationError", err)
	}
}

func TestFetchBatchPropagatesStoreError(t *testing.T) {
	bank := &fakeQuestionBank{err: errHistoryDown}
	qs := NewQuestionSupplier(bank, nil, zerolog.Nop())
	if _, err := qs.FetchBatch(context.Background(), model.SessionConfig{}, 5); err == nil {
		t.Fatal("store error did not propagate")
	}
}
