package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahari-bites/internal/config"
	"bahari-bites/internal/models"
	"bahari-bites/internal/storage"
)

func newAccountService(t *testing.T) (*AccountService, *storage.InMemoryStore) {
	t.Helper()
	store := storage.NewInMemoryStore()
	svc := NewAccountService(store, config.JWTConfig{Secret: "test-secret", TTL: time.Hour}, testLogger())
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAccountService(t)

	account, err := svc.Register(&models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Phone:    "0712345678",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, account.Role)
	assert.Equal(t, "254712345678", account.Phone)
	assert.NotEqual(t, "hunter22", account.PasswordHash)

	// Login by username and by email.
	for _, credential := range []string{"amina", "amina@example.com"} {
		resp, err := svc.Login(&models.LoginRequest{Credential: credential, Password: "hunter22"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "amina", resp.Username)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newAccountService(t)

	req := &models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Password: "hunter22",
	}
	_, err := svc.Register(req)
	require.NoError(t, err)

	_, err = svc.Register(req)
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _ := newAccountService(t)

	_, err := svc.Register(&models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAccountService(t)

	_, err := svc.Register(&models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = svc.Login(&models.LoginRequest{Credential: "amina", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(&models.LoginRequest{Credential: "nobody", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRoundTrip(t *testing.T) {
	svc, store := newAccountService(t)

	account := &models.Account{Username: "staff1", Email: "staff1@example.com", Role: models.RoleStaff}
	require.NoError(t, store.CreateAccount(account))

	token, err := svc.issueToken(account)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	svc, store := newAccountService(t)
	other := NewAccountService(store, config.JWTConfig{Secret: "other-secret", TTL: time.Hour}, testLogger())

	account := &models.Account{Username: "amina", Email: "amina@example.com", Role: models.RoleCustomer}
	require.NoError(t, store.CreateAccount(account))

	token, err := other.issueToken(account)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
