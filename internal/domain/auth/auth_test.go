package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	user := NewUser("cajero1", "x", RoleCajero)

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	principal, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "cajero1", principal.Username)
	assert.Equal(t, RoleCajero, principal.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret-a"))
	user := NewUser("admin", "x", RoleAdministrador)

	token, _, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	other := NewJWTService(DefaultJWTConfig("secret-b"))
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestPrincipalRoleCheck(t *testing.T) {
	admin := &Principal{Role: RoleAdministrador}
	assert.True(t, admin.Is(RoleCajero))
	assert.True(t, admin.Is(RoleRepartidor))

	courier := &Principal{Role: RoleRepartidor}
	assert.True(t, courier.Is(RoleRepartidor))
	assert.False(t, courier.Is(RoleCajero))
}

func TestAccountLockout(t *testing.T) {
	u := NewUser("cajero1", "x", RoleCajero)

	for i := 0; i < 4; i++ {
		u.RecordFailedLogin(5, 15*time.Minute)
	}
	assert.False(t, u.IsLocked())
	require.NoError(t, u.CanLogin())

	u.RecordFailedLogin(5, 15*time.Minute)
	assert.True(t, u.IsLocked())
	require.Error(t, u.CanLogin())

	u.RecordSuccessfulLogin()
	assert.False(t, u.IsLocked())
	assert.Zero(t, u.FailedLoginAttempts)
}
