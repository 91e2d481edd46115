package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	"recovery-service/internal/config"
	"recovery-service/internal/hashing"
	"recovery-service/internal/limiter"
	"recovery-service/internal/models"
	"recovery-service/internal/repository/scylla"
	"recovery-service/internal/token"
	"recovery-service/internal/util"
)

// RecoveryService orchestrates the three-step account recovery flow:
// fetch questions by email, verify answers for a single-use token, then
// redeem the token for a password reset.
//
// The flow is built not to leak account existence. An unknown email gets
// the same shape of response as a known one with no questions, and every
// verification failure surfaces as the same ErrVerificationFailed
// regardless of which check tripped.
type RecoveryService struct {
	directory scylla.UserDirectory
	questions *QuestionService
	tokens    token.Store
	limiter   limiter.Limiter
	events    *SecurityEventService
	hasher    *hashing.Hasher
	policy    config.RecoveryConfig
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	directory scylla.UserDirectory,
	questions *QuestionService,
	tokens token.Store,
	rateLimiter limiter.Limiter,
	events *SecurityEventService,
	hasher *hashing.Hasher,
	cfg *config.Config,
	logger *zap.Logger,
) *RecoveryService {
	return &RecoveryService{
		directory: directory,
		questions: questions,
		tokens:    tokens,
		limiter:   rateLimiter,
		events:    events,
		hasher:    hasher,
		policy:    cfg.Recovery,
	}
}

// validateEmail normalizes the address and enforces the institutional
// domain restriction. Returns the normalized address.
func (s *RecoveryService) validateEmail(email string) (string, error) {
	normalized := hashing.NormalizeEmail(email)
	at := strings.LastIndex(normalized, "@")
	if at <= 0 || at == len(normalized)-1 {
		return "", fmt.Errorf("%w: malformed email address", ErrInvalidInput)
	}
	if s.policy.AllowedDomain != "" && normalized[at+1:] != s.policy.AllowedDomain {
		return "", fmt.Errorf("%w: email domain not accepted", ErrInvalidInput)
	}
	return normalized, nil
}

// GetSecurityQuestions returns the question texts for the account behind
// the email, or an empty list when the account is unknown or has no set
// configured. The two cases are indistinguishable to the caller.
func (s *RecoveryService) GetSecurityQuestions(ctx context.Context, email string, ip net.IP) ([]string, error) {
	normalized, err := s.validateEmail(email)
	if err != nil {
		return nil, err
	}
	emailHash := hashing.EmailHash(normalized)

	user, err := s.directory.GetUserByEmailHash(ctx, emailHash)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			s.events.Record(models.EventQuestionsFetched, "", emailHash, ip, "unknown email")
			return []string{}, nil
		}
		return nil, err
	}

	questions, err := s.questions.QuestionsForUser(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	s.events.Record(models.EventQuestionsFetched, user.UserID, emailHash, ip, "")
	return questions, nil
}

// VerifySecurityAnswers checks the submitted answers and, when all are
// correct, issues a single-use verification token. Attempts are counted
// per email hash before any lookup so that unknown addresses burn the
// limit like known ones.
func (s *RecoveryService) VerifySecurityAnswers(ctx context.Context, email string, submissions []models.AnswerSubmission, ip net.IP) (string, error) {
	normalized, err := s.validateEmail(email)
	if err != nil {
		return "", err
	}
	if len(submissions) == 0 {
		return "", fmt.Errorf("%w: answers required", ErrInvalidInput)
	}
	emailHash := hashing.EmailHash(normalized)

	allowed, err := s.limiter.Allow(ctx, "verify:"+emailHash, s.policy.VerifyMaxAttempts, s.policy.VerifyWindow)
	if err != nil {
		return "", fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		s.events.Record(models.EventRateLimited, "", emailHash, ip, "")
		util.Warn("Verification attempt rate limited",
			zap.String("email_hash", emailHash))
		return "", ErrRateLimited
	}

	user, err := s.directory.GetUserByEmailHash(ctx, emailHash)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			s.events.Record(models.EventVerificationFailed, "", emailHash, ip, "unknown email")
			return "", ErrVerificationFailed
		}
		return "", err
	}

	correct, err := s.questions.VerifyAnswers(ctx, user.UserID, submissions)
	if err != nil {
		return "", err
	}
	if !correct {
		s.events.Record(models.EventVerificationFailed, user.UserID, emailHash, ip, "")
		return "", ErrVerificationFailed
	}

	tok, err := s.tokens.Issue(ctx, user.UserID, normalized, s.policy.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.events.Record(models.EventAnswersVerified, user.UserID, emailHash, ip, "")
	util.Info("Security answers verified",
		zap.String("user_id", user.UserID))
	return tok, nil
}

// ResetPasswordWithVerification redeems a verification token and
// replaces the account credential. The password policy runs before the
// token is touched, so a weak password does not spend the token. Every
// check after consumption fails closed: the token is gone either way.
func (s *RecoveryService) ResetPasswordWithVerification(ctx context.Context, email, tok, newPassword string, ip net.IP) error {
	normalized, err := s.validateEmail(email)
	if err != nil {
		return err
	}
	if tok == "" {
		return fmt.Errorf("%w: token required", ErrInvalidInput)
	}
	if err := ValidatePassword(newPassword, s.policy.MinPasswordLength); err != nil {
		return err
	}
	emailHash := hashing.EmailHash(normalized)

	rec, err := s.tokens.Consume(ctx, tok)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) || errors.Is(err, token.ErrExpired) {
			s.events.Record(models.EventResetRejected, "", emailHash, ip, "invalid or expired token")
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to consume verification token: %w", err)
	}

	if rec.Email != normalized {
		s.events.Record(models.EventResetRejected, rec.UserID, emailHash, ip, "email mismatch")
		return ErrTokenMismatch
	}

	user, err := s.directory.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			s.events.Record(models.EventResetRejected, rec.UserID, emailHash, ip, "user missing")
			return ErrUserMismatch
		}
		return err
	}
	// The token could have been issued before the account's address
	// changed. The stored record must still agree with the request.
	if user.EmailHash != emailHash {
		s.events.Record(models.EventResetRejected, rec.UserID, emailHash, ip, "account email drift")
		return ErrUserMismatch
	}

	credentialHash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.directory.ForceSetCredential(ctx, user.UserID, credentialHash); err != nil {
		return err
	}

	s.events.Record(models.EventPasswordReset, user.UserID, emailHash, ip, "")
	util.Info("Password reset completed",
		zap.String("user_id", user.UserID))
	return nil
}

// SaveSecurityQuestions stores the caller's question set and records the
// audit event.
func (s *RecoveryService) SaveSecurityQuestions(ctx context.Context, callerUserID, targetUserID string, submissions []models.AnswerSubmission, ip net.IP) error {
	if err := s.questions.SaveQuestions(ctx, callerUserID, targetUserID, submissions); err != nil {
		return err
	}

	if user, err := s.directory.GetUserByID(ctx, targetUserID); err == nil {
		s.events.Record(models.EventQuestionsSaved, targetUserID, user.EmailHash, ip, "")
	}
	return nil
}
