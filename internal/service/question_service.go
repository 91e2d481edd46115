package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recovery-service/internal/hashing"
	"recovery-service/internal/models"
	"recovery-service/internal/repository/scylla"
	"recovery-service/internal/util"
)

// QuestionService handles storage and verification of per-user security
// question sets.
type QuestionService struct {
	directory scylla.UserDirectory
	hasher    *hashing.Hasher
}

// NewQuestionService creates a new question service
func NewQuestionService(directory scylla.UserDirectory, hasher *hashing.Hasher, logger *zap.Logger) *QuestionService {
	// Using global util logger instead of individual logger
	return &QuestionService{
		directory: directory,
		hasher:    hasher,
	}
}

// SaveQuestions replaces the caller's question set wholesale. Only the
// owner may write their own set; exactly QuestionCount entries with
// non-empty question text and non-empty normalized answers are accepted.
func (s *QuestionService) SaveQuestions(ctx context.Context, callerUserID, targetUserID string, submissions []models.AnswerSubmission) error {
	if callerUserID != targetUserID {
		return ErrUnauthorized
	}
	if len(submissions) != models.QuestionCount {
		return fmt.Errorf("%w: exactly %d questions required", ErrInvalidInput, models.QuestionCount)
	}

	seen := make(map[string]bool, len(submissions))
	questions := make([]models.SecurityQuestion, 0, len(submissions))
	for _, sub := range submissions {
		question := strings.TrimSpace(sub.Question)
		answer := hashing.Normalize(sub.Answer)
		if question == "" {
			return fmt.Errorf("%w: question text must not be empty", ErrInvalidInput)
		}
		if answer == "" {
			return fmt.Errorf("%w: answer must not be empty", ErrInvalidInput)
		}
		if seen[question] {
			return fmt.Errorf("%w: duplicate question text", ErrInvalidInput)
		}
		seen[question] = true

		answerHash, err := s.hasher.HashAnswer(answer)
		if err != nil {
			return fmt.Errorf("failed to hash answer: %w", err)
		}
		questions = append(questions, models.SecurityQuestion{
			Question:   question,
			AnswerHash: answerHash,
		})
	}

	set := &models.SecurityQuestionSet{
		UserID:    targetUserID,
		Questions: questions,
	}
	return s.directory.SaveQuestionSet(ctx, set)
}

// QuestionsForUser returns the question texts for an account, or an
// empty slice when no set is configured.
func (s *QuestionService) QuestionsForUser(ctx context.Context, userID string) ([]string, error) {
	set, err := s.directory.GetQuestionSet(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrQuestionsNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	questions := make([]string, 0, len(set.Questions))
	for _, q := range set.Questions {
		questions = append(questions, q.Question)
	}
	return questions, nil
}

// VerifyAnswers checks submitted answers against the stored set. Every
// submission is verified even after the first mismatch so that response
// timing does not reveal which answer was wrong. The submission must
// cover the full stored set, matched by exact question text.
func (s *QuestionService) VerifyAnswers(ctx context.Context, userID string, submissions []models.AnswerSubmission) (bool, error) {
	set, err := s.directory.GetQuestionSet(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrQuestionsNotFound) {
			return false, nil
		}
		return false, err
	}

	if len(submissions) != len(set.Questions) {
		return false, nil
	}

	byQuestion := make(map[string]string, len(set.Questions))
	for _, q := range set.Questions {
		byQuestion[q.Question] = q.AnswerHash
	}

	allCorrect := true
	for _, sub := range submissions {
		answerHash, ok := byQuestion[sub.Question]
		if !ok {
			allCorrect = false
			continue
		}
		delete(byQuestion, sub.Question)

		if !s.hasher.VerifyAnswer(hashing.Normalize(sub.Answer), answerHash) {
			allCorrect = false
		}
	}
	if len(byQuestion) != 0 {
		allCorrect = false
	}

	if !allCorrect {
		util.Debug("Security answer verification failed",
			zap.String("user_id", userID))
	}
	return allCorrect, nil
}
