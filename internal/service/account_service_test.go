package service

import (
	"context"
	"errors"
	"testing"

	"recovery-service/internal/encryption"
	"recovery-service/internal/hashing"
	"recovery-service/internal/util"
)

func newTestAccountService(t *testing.T) (*AccountService, *fakeDirectory) {
	t.Helper()
	cfg := testConfig()
	dir := newFakeDirectory()
	hasher := hashing.NewHasher(cfg)
	// KMS disabled in the test config; the manager uses local data keys.
	encryptionMgr := encryption.NewManager(cfg, nil)
	return NewAccountService(dir, hasher, encryptionMgr, util.Get()), dir
}

func TestCreateAccountEncryptsEmailAtRest(t *testing.T) {
	as, dir := newTestAccountService(t)
	ctx := context.Background()

	user, err := as.CreateAccount(ctx, &AccountCreateRequest{
		Email:       "  Alice@Campus.EDU ",
		DisplayName: "Alice",
		Password:    "Str0ng!Password",
	}, 12)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	stored, err := dir.GetUserByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if stored.EmailHash != hashing.EmailHash("alice@campus.edu") {
		t.Fatal("email hash should be computed over the normalized address")
	}
	if len(stored.EmailEncrypted) == 0 || stored.EmailKeyID == "" {
		t.Fatal("email should be stored encrypted with a key id")
	}
	if string(stored.EmailEncrypted) == "alice@campus.edu" {
		t.Fatal("email stored in plaintext")
	}
	if stored.CredentialHash == "" || stored.CredentialHash == "Str0ng!Password" {
		t.Fatal("credential should be stored hashed")
	}
}

func TestEmailForUserRoundTrip(t *testing.T) {
	as, _ := newTestAccountService(t)
	ctx := context.Background()

	user, err := as.CreateAccount(ctx, &AccountCreateRequest{
		Email:    "alice@campus.edu",
		Password: "Str0ng!Password",
	}, 12)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	email, err := as.EmailForUser(ctx, user.UserID)
	if err != nil {
		t.Fatalf("EmailForUser failed: %v", err)
	}
	if email != "alice@campus.edu" {
		t.Fatalf("decrypted email mismatch: %q", email)
	}
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	as, _ := newTestAccountService(t)
	ctx := context.Background()

	req := &AccountCreateRequest{Email: "alice@campus.edu", Password: "Str0ng!Password"}
	if _, err := as.CreateAccount(ctx, req, 12); err != nil {
		t.Fatalf("first CreateAccount failed: %v", err)
	}
	if _, err := as.CreateAccount(ctx, req, 12); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate email should be rejected, got %v", err)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	as, _ := newTestAccountService(t)
	ctx := context.Background()

	if _, err := as.CreateAccount(ctx, &AccountCreateRequest{Email: "not-an-email", Password: "Str0ng!Password"}, 12); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("malformed email should be rejected, got %v", err)
	}
	if _, err := as.CreateAccount(ctx, &AccountCreateRequest{Email: "alice@campus.edu", Password: "weak"}, 12); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password should be rejected, got %v", err)
	}
}
