package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticateAdminPlaintext(t *testing.T) {
	svc := NewAuthService("hunter2", "test-secret", time.Hour, newTestLogger(t))

	token, err := svc.AuthenticateAdmin("hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, svc.ValidateAdminToken(token))

	_, err = svc.AuthenticateAdmin("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateAdminBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	require.NoError(t, err)

	svc := NewAuthService(string(hash), "test-secret", time.Hour, newTestLogger(t))

	token, err := svc.AuthenticateAdmin("hunter2")
	require.NoError(t, err)
	assert.True(t, svc.ValidateAdminToken(token))

	_, err = svc.AuthenticateAdmin("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateAdminDisabled(t *testing.T) {
	svc := NewAuthService("", "test-secret", time.Hour, newTestLogger(t))

	_, err := svc.AuthenticateAdmin("")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "an empty admin password disables admin login")
}

func TestValidateAdminTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService("hunter2", "test-secret", time.Hour, newTestLogger(t))

	assert.False(t, svc.ValidateAdminToken(""))
	assert.False(t, svc.ValidateAdminToken("not-a-jwt"))

	// A token signed with a different secret fails validation.
	other := NewAuthService("hunter2", "other-secret", time.Hour, newTestLogger(t))
	token, err := other.AuthenticateAdmin("hunter2")
	require.NoError(t, err)
	assert.False(t, svc.ValidateAdminToken(token))
}
