package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recovery-service/internal/bucketing"
	"recovery-service/internal/models"
	"recovery-service/internal/util"
)

// ScyllaUserDirectory implements UserDirectory against the users,
// email_to_user and security_questions tables.
type ScyllaUserDirectory struct {
	client    *ScyllaClient
	bucketing *bucketing.Manager
}

func NewScyllaUserDirectory(client *ScyllaClient, bucketing *bucketing.Manager, logger *zap.Logger) *ScyllaUserDirectory {
	// Using global util logger instead of individual logger
	return &ScyllaUserDirectory{
		client:    client,
		bucketing: bucketing,
	}
}

func (r *ScyllaUserDirectory) CreateUser(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	user.UserBucket = r.bucketing.UserBucket(user.UserID)

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = &now

	// Batch keeps the users row and its email index in step
	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.CreateUser.Statement(),
		user.UserBucket, user.UserID, user.EmailHash, user.EmailEncrypted, user.EmailKeyID,
		user.DisplayName, user.CredentialHash, user.IsActive, user.CreatedAt, user.UpdatedAt, user.LastLogin)

	batch.Query(r.client.Prepared.CreateEmailToUser.Statement(),
		user.EmailHash, user.UserBucket, user.UserID, user.CreatedAt)

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created successfully",
		zap.String("user_id", user.UserID),
		zap.Int("user_bucket", user.UserBucket))

	return nil
}

func (r *ScyllaUserDirectory) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	bucket := r.bucketing.UserBucket(userID)

	query := r.client.Prepared.GetUserByID.Bind(bucket, userID).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&user.UserBucket, &user.UserID, &user.EmailHash, &user.EmailEncrypted, &user.EmailKeyID,
		&user.DisplayName, &user.CredentialHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLogin)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

func (r *ScyllaUserDirectory) GetUserByEmailHash(ctx context.Context, emailHash string) (*models.User, error) {
	var bucket int
	var userID string

	query := r.client.Prepared.GetUserByEmail.Bind(emailHash).WithContext(ctx)

	if err := r.client.ScanWithRetry(query, &bucket, &userID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to look up user by email hash", zap.Error(err))
		return nil, fmt.Errorf("failed to look up user by email hash: %w", err)
	}

	return r.GetUserByID(ctx, userID)
}

func (r *ScyllaUserDirectory) GetQuestionSet(ctx context.Context, userID string) (*models.SecurityQuestionSet, error) {
	bucket := r.bucketing.UserBucket(userID)

	set := &models.SecurityQuestionSet{
		UserBucket: bucket,
		UserID:     userID,
	}

	iter := r.client.Prepared.GetQuestions.Bind(bucket, userID).WithContext(ctx).Iter()

	var position int
	var question, answerHash string
	var updatedAt time.Time
	for iter.Scan(&position, &question, &answerHash, &updatedAt) {
		set.Questions = append(set.Questions, models.SecurityQuestion{
			Question:   question,
			AnswerHash: answerHash,
		})
		set.UpdatedAt = updatedAt
	}
	if err := iter.Close(); err != nil {
		util.Error("Failed to get security questions",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get security questions: %w", err)
	}

	if len(set.Questions) == 0 {
		return nil, ErrQuestionsNotFound
	}

	return set, nil
}

// SaveQuestionSet replaces the stored set wholesale. Delete plus insert
// in one logged batch so a reader never sees a mix of old and new rows.
func (r *ScyllaUserDirectory) SaveQuestionSet(ctx context.Context, set *models.SecurityQuestionSet) error {
	bucket := r.bucketing.UserBucket(set.UserID)
	set.UserBucket = bucket
	set.UpdatedAt = time.Now().UTC()

	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.DeleteQuestions.Statement(), bucket, set.UserID)
	for i, q := range set.Questions {
		batch.Query(r.client.Prepared.InsertQuestion.Statement(),
			bucket, set.UserID, i, q.Question, q.AnswerHash, set.UpdatedAt)
	}

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		util.Error("Failed to save security questions",
			zap.String("user_id", set.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to save security questions: %w", err)
	}

	util.Info("Security questions saved",
		zap.String("user_id", set.UserID),
		zap.Int("count", len(set.Questions)))

	return nil
}

func (r *ScyllaUserDirectory) ForceSetCredential(ctx context.Context, userID, credentialHash string) error {
	now := time.Now().UTC()
	bucket := r.bucketing.UserBucket(userID)

	query := r.client.Prepared.UpdateCredential.Bind(credentialHash, now, bucket, userID).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to set user credential",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to set user credential: %w", err)
	}

	util.Info("User credential replaced",
		zap.String("user_id", userID))

	return nil
}

func (r *ScyllaUserDirectory) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
