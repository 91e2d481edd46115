package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recovery-service/internal/encryption"
	"recovery-service/internal/hashing"
	"recovery-service/internal/models"
	"recovery-service/internal/repository/scylla"
	"recovery-service/internal/util"
)

// AccountService provisions marketplace accounts in the directory. The
// address is stored twice: a SHA-256 hash as the lookup key and the
// envelope-encrypted value for support tooling. Plaintext email never
// lands in Scylla.
type AccountService struct {
	directory  scylla.UserDirectory
	hasher     *hashing.Hasher
	encryption *encryption.Manager
}

// AccountCreateRequest represents an account provisioning request
type AccountCreateRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// NewAccountService creates a new account service
func NewAccountService(directory scylla.UserDirectory, hasher *hashing.Hasher, encryptionMgr *encryption.Manager, logger *zap.Logger) *AccountService {
	return &AccountService{
		directory:  directory,
		hasher:     hasher,
		encryption: encryptionMgr,
	}
}

// CreateAccount provisions a new account with an encrypted email and a
// hashed credential.
func (s *AccountService) CreateAccount(ctx context.Context, req *AccountCreateRequest, minPasswordLength int) (*models.User, error) {
	email := hashing.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email address", ErrInvalidInput)
	}
	if err := ValidatePassword(req.Password, minPasswordLength); err != nil {
		return nil, err
	}

	emailHash := hashing.EmailHash(email)
	if _, err := s.directory.GetUserByEmailHash(ctx, emailHash); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrInvalidInput)
	}

	encrypted, err := s.encryption.EncryptField(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt email: %w", err)
	}
	encryptedBytes, err := json.Marshal(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal encrypted email: %w", err)
	}

	credentialHash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		UserID:         uuid.New().String(),
		EmailHash:      emailHash,
		EmailEncrypted: encryptedBytes,
		EmailKeyID:     encrypted.KeyID,
		DisplayName:    util.SanitizeInput(req.DisplayName),
		CredentialHash: credentialHash,
		IsActive:       true,
	}
	if err := s.directory.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	util.Info("Account provisioned",
		zap.String("user_id", user.UserID))
	return user, nil
}

// EmailForUser decrypts the stored address for an account. Support
// tooling only; the recovery flow itself never needs the plaintext.
func (s *AccountService) EmailForUser(ctx context.Context, userID string) (string, error) {
	user, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(user.EmailEncrypted) == 0 {
		return "", fmt.Errorf("no encrypted email stored for user %s", userID)
	}

	var encrypted encryption.EncryptedData
	if err := json.Unmarshal(user.EmailEncrypted, &encrypted); err != nil {
		return "", fmt.Errorf("failed to unmarshal encrypted email: %w", err)
	}
	return s.encryption.DecryptField(ctx, &encrypted)
}
