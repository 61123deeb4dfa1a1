package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	// MinCost keeps bcrypt fast in tests.
	passwords, err := auth.NewPasswordService(bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(users, passwords, testValidator, testLogger()), users
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister(t *testing.T) {
	svc, users := newTestAuthService(t)

	user, err := svc.Register(context.Background(), "  minji  ", "hunter2")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "minji", user.Username, "username is trimmed")
	assert.Zero(t, user.Points)

	stored := users.users[user.ID]
	assert.NotEqual(t, "hunter2", stored.PasswordHash, "password must not be stored in plaintext")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter2")))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		wantField string
	}{
		{"empty username", "", "password", "username"},
		{"blank username", "   ", "password", "username"},
		{"one-char username", "a", "password", "username"},
		{"one char after trimming", " a ", "password", "username"},
		{"username too long", string(make([]byte, 81)), "password", "username"},
		{"empty password", "minji", "", "password"},
		{"short password", "minji", "abc", "password"},
		{"password over 72 bytes", "minji", string(make([]byte, 73)), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users := newTestAuthService(t)

			_, err := svc.Register(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "error = %v", err)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, users.users, "nothing stored on validation failure")
		})
	}
}

func TestRegister_MinimumLengthsAccepted(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "ab", "abcd")
	assert.NoError(t, err)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "minji", "password")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "minji", "another")
	assert.True(t, errors.Is(err, apperror.ErrConflict), "error = %v", err)
	assert.Equal(t, MsgUsernameTaken, apperror.MessageOf(err, ""))

	n, _ := users.Count(ctx)
	assert.Equal(t, 1, n, "user count unchanged")
}

func TestRegister_RepositoryFailure(t *testing.T) {
	svc, users := newTestAuthService(t)
	users.failWith = errDatabaseDown

	_, err := svc.Register(context.Background(), "minji", "password")
	assert.True(t, errors.Is(err, errDatabaseDown), "error = %v", err)
	assert.False(t, errors.Is(err, apperror.ErrConflict))
}

// =========================================================================
// LOGIN / LOGOUT TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()
	created, err := svc.Register(ctx, "minji", "password")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "minji", "password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.True(t, user.IsLoggedIn)
	assert.True(t, users.users[created.ID].IsLoggedIn, "flag persisted")
}

func TestLogin_TrimsUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	created, err := svc.Register(ctx, "minji", "password")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "  minji ", "password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Login(ctx, "minji", " password")
	assert.True(t, errors.Is(err, apperror.ErrUnauthenticated), "passwords are not trimmed")
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()
	created, err := svc.Register(ctx, "minji", "password")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "minji", "wrong-password")
	_, unknownUser := svc.Login(ctx, "nobody", "password")

	for _, err := range []error{wrongPassword, unknownUser} {
		assert.True(t, errors.Is(err, apperror.ErrUnauthenticated), "error = %v", err)
		assert.Equal(t, MsgInvalidCredentials, apperror.MessageOf(err, ""))
	}
	assert.False(t, users.users[created.ID].IsLoggedIn)
}

func TestLogin_MissingFields(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "", "")
	assert.True(t, errors.Is(err, apperror.ErrValidation), "error = %v", err)
}

func TestLogout(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "minji", "password")
	require.NoError(t, err)
	user, err := svc.Login(ctx, "minji", "password")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, identityOf(user)))
	assert.False(t, users.users[user.ID].IsLoggedIn)
}

func TestLogout_WithoutIdentityOrUser(t *testing.T) {
	svc, _ := newTestAuthService(t)

	assert.NoError(t, svc.Logout(context.Background(), auth.Identity{}))
	assert.NoError(t, svc.Logout(context.Background(), auth.Identity{UserID: 99, Username: "ghost"}))
}

func TestLoggedInUsers(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := svc.Register(ctx, name, "password")
		require.NoError(t, err)
	}
	for _, name := range []string{"carol", "alice"} {
		_, err := svc.Login(ctx, name, "password")
		require.NoError(t, err)
	}

	online, err := svc.LoggedInUsers(ctx)
	require.NoError(t, err)
	require.Len(t, online, 2)
	assert.Equal(t, "alice", online[0].Username)
	assert.Equal(t, "carol", online[1].Username)
}
