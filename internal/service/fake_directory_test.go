package service

import (
	"context"
	"sync"

	"recovery-service/internal/models"
	"recovery-service/internal/repository/scylla"
)

// fakeDirectory is an in-memory UserDirectory for service tests.
type fakeDirectory struct {
	mu          sync.Mutex
	users       map[string]*models.User // user_id -> user
	byEmailHash map[string]string       // email_hash -> user_id
	questions   map[string]*models.SecurityQuestionSet
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       make(map[string]*models.User),
		byEmailHash: make(map[string]string),
		questions:   make(map[string]*models.SecurityQuestionSet),
	}
}

func (d *fakeDirectory) CreateUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.UserID] = user
	d.byEmailHash[user.EmailHash] = user.UserID
	return nil
}

func (d *fakeDirectory) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return nil, scylla.ErrUserNotFound
	}
	return user, nil
}

func (d *fakeDirectory) GetUserByEmailHash(ctx context.Context, emailHash string) (*models.User, error) {
	d.mu.Lock()
	userID, ok := d.byEmailHash[emailHash]
	d.mu.Unlock()
	if !ok {
		return nil, scylla.ErrUserNotFound
	}
	return d.GetUserByID(ctx, userID)
}

func (d *fakeDirectory) GetQuestionSet(ctx context.Context, userID string) (*models.SecurityQuestionSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.questions[userID]
	if !ok || len(set.Questions) == 0 {
		return nil, scylla.ErrQuestionsNotFound
	}
	return set, nil
}

func (d *fakeDirectory) SaveQuestionSet(ctx context.Context, set *models.SecurityQuestionSet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.questions[set.UserID] = set
	return nil
}

func (d *fakeDirectory) ForceSetCredential(ctx context.Context, userID, credentialHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return scylla.ErrUserNotFound
	}
	user.CredentialHash = credentialHash
	return nil
}

func (d *fakeDirectory) HealthCheck(ctx context.Context) error {
	return nil
}
