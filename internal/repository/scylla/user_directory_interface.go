package scylla

import (
	"context"
	"errors"

	"recovery-service/internal/models"
)

var (
	// ErrUserNotFound reports a lookup that matched no account.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuestionsNotFound reports an account with no stored question set.
	ErrQuestionsNotFound = errors.New("security questions not configured")
)

// UserDirectory defines the interface for account and security question storage
type UserDirectory interface {
	// Account Operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmailHash(ctx context.Context, emailHash string) (*models.User, error)

	// Security Question Operations
	GetQuestionSet(ctx context.Context, userID string) (*models.SecurityQuestionSet, error)
	SaveQuestionSet(ctx context.Context, set *models.SecurityQuestionSet) error

	// Credential Operations
	ForceSetCredential(ctx context.Context, userID, credentialHash string) error

	// Health
	HealthCheck(ctx context.Context) error
}
