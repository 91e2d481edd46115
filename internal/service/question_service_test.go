package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"recovery-service/internal/config"
	"recovery-service/internal/hashing"
	"recovery-service/internal/models"
	"recovery-service/internal/util"
)

func testConfig() *config.Config {
	cfg := &config.Config{Environment: "development"}
	cfg.Hashing.BcryptCost = 4
	cfg.Bucketing.UserBuckets = 8
	cfg.Bucketing.EventBuckets = 4
	cfg.Recovery.AllowedDomain = "campus.edu"
	cfg.Recovery.VerifyMaxAttempts = 5
	cfg.Recovery.VerifyWindow = time.Hour
	cfg.Recovery.TokenTTL = 10 * time.Minute
	cfg.Recovery.MinPasswordLength = 12
	return cfg
}

func newTestQuestionService(t *testing.T) (*QuestionService, *fakeDirectory, *hashing.Hasher) {
	t.Helper()
	dir := newFakeDirectory()
	hasher := hashing.NewHasher(testConfig())
	return NewQuestionService(dir, hasher, util.Get()), dir, hasher
}

func threeQuestions() []models.AnswerSubmission {
	return []models.AnswerSubmission{
		{Question: "First pet's name?", Answer: "Fluffy"},
		{Question: "Street you grew up on?", Answer: "Main Street"},
		{Question: "Favorite teacher?", Answer: "Ms. Patel"},
	}
}

func TestSaveQuestionsOwnerOnly(t *testing.T) {
	qs, _, _ := newTestQuestionService(t)

	err := qs.SaveQuestions(context.Background(), "attacker", "victim", threeQuestions())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSaveQuestionsValidation(t *testing.T) {
	qs, _, _ := newTestQuestionService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		subs []models.AnswerSubmission
	}{
		{"too few", threeQuestions()[:2]},
		{"too many", append(threeQuestions(), models.AnswerSubmission{Question: "Extra?", Answer: "x"})},
		{"empty question", []models.AnswerSubmission{
			{Question: "", Answer: "a"},
			{Question: "Q2?", Answer: "b"},
			{Question: "Q3?", Answer: "c"},
		}},
		{"whitespace answer", []models.AnswerSubmission{
			{Question: "Q1?", Answer: "   "},
			{Question: "Q2?", Answer: "b"},
			{Question: "Q3?", Answer: "c"},
		}},
		{"duplicate question", []models.AnswerSubmission{
			{Question: "Q1?", Answer: "a"},
			{Question: "Q1?", Answer: "b"},
			{Question: "Q3?", Answer: "c"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := qs.SaveQuestions(ctx, "u1", "u1", tt.subs)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSaveQuestionsStoresHashesNotAnswers(t *testing.T) {
	qs, dir, hasher := newTestQuestionService(t)
	ctx := context.Background()

	if err := qs.SaveQuestions(ctx, "u1", "u1", threeQuestions()); err != nil {
		t.Fatalf("SaveQuestions failed: %v", err)
	}

	set, err := dir.GetQuestionSet(ctx, "u1")
	if err != nil {
		t.Fatalf("GetQuestionSet failed: %v", err)
	}
	if len(set.Questions) != models.QuestionCount {
		t.Fatalf("expected %d stored questions, got %d", models.QuestionCount, len(set.Questions))
	}
	for _, q := range set.Questions {
		if q.AnswerHash == "fluffy" || q.AnswerHash == "Fluffy" {
			t.Fatal("answer stored in plaintext")
		}
	}
	if !hasher.VerifyAnswer("fluffy", set.Questions[0].AnswerHash) {
		t.Fatal("stored hash should verify against the normalized answer")
	}
}

func TestVerifyAnswersScenarios(t *testing.T) {
	qs, _, _ := newTestQuestionService(t)
	ctx := context.Background()

	if err := qs.SaveQuestions(ctx, "u1", "u1", threeQuestions()); err != nil {
		t.Fatalf("SaveQuestions failed: %v", err)
	}

	tests := []struct {
		name string
		subs []models.AnswerSubmission
		want bool
	}{
		{"all correct", threeQuestions(), true},
		{"case and whitespace variants", []models.AnswerSubmission{
			{Question: "First pet's name?", Answer: "  FLUFFY "},
			{Question: "Street you grew up on?", Answer: "main street"},
			{Question: "Favorite teacher?", Answer: "MS. patel"},
		}, true},
		{"one wrong", []models.AnswerSubmission{
			{Question: "First pet's name?", Answer: "Rex"},
			{Question: "Street you grew up on?", Answer: "Main Street"},
			{Question: "Favorite teacher?", Answer: "Ms. Patel"},
		}, false},
		{"unknown question text", []models.AnswerSubmission{
			{Question: "First pet's name", Answer: "Fluffy"},
			{Question: "Street you grew up on?", Answer: "Main Street"},
			{Question: "Favorite teacher?", Answer: "Ms. Patel"},
		}, false},
		{"incomplete set", threeQuestions()[:2], false},
		{"same question repeated", []models.AnswerSubmission{
			{Question: "First pet's name?", Answer: "Fluffy"},
			{Question: "First pet's name?", Answer: "Fluffy"},
			{Question: "First pet's name?", Answer: "Fluffy"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := qs.VerifyAnswers(ctx, "u1", tt.subs)
			if err != nil {
				t.Fatalf("VerifyAnswers failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("VerifyAnswers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyAnswersNoStoredSet(t *testing.T) {
	qs, _, _ := newTestQuestionService(t)

	ok, err := qs.VerifyAnswers(context.Background(), "nobody", threeQuestions())
	if err != nil {
		t.Fatalf("VerifyAnswers failed: %v", err)
	}
	if ok {
		t.Fatal("verification without a stored set should fail")
	}
}

func TestQuestionsForUser(t *testing.T) {
	qs, _, _ := newTestQuestionService(t)
	ctx := context.Background()

	questions, err := qs.QuestionsForUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("QuestionsForUser failed: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected empty list, got %v", questions)
	}

	if err := qs.SaveQuestions(ctx, "u1", "u1", threeQuestions()); err != nil {
		t.Fatalf("SaveQuestions failed: %v", err)
	}
	questions, err = qs.QuestionsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("QuestionsForUser failed: %v", err)
	}
	if len(questions) != models.QuestionCount {
		t.Fatalf("expected %d questions, got %d", models.QuestionCount, len(questions))
	}
	for _, q := range questions {
		if q == "" {
			t.Fatal("question text should not be empty")
		}
	}
}
