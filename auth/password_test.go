package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/validator"
)

func TestSignUpEmail(t *testing.T) {
	t.Parallel()

	t.Run("creates account and issues session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()

		env.users.On("Create", mock.MatchedBy(func(p auth.CreateUserParams) bool {
			return p.Email == "jane@example.com" && len(p.PasswordHash) > 0 && p.Role == auth.RoleAuthenticated
		})).Return(&auth.User{ID: userID, Email: "jane@example.com", Role: auth.RoleAuthenticated}, nil).Once()
		env.expectSessionIssued(userID)

		session, err := env.svc.SignUpEmail(context.Background(), auth.SignUpParams{
			Email:    "  Jane@Example.COM ",
			Password: "Sup3rSecret!",
		})
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.Equal(t, userID, session.User.ID)
		assert.Equal(t, []string{auth.ActionSignUpEmail}, env.sink.actions())
		assert.Equal(t, 1, env.db.commits)
		env.users.AssertExpectations(t)
		env.refresh.AssertExpectations(t)
	})

	t.Run("duplicate email rolls back", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.users.On("Create", mock.Anything).Return(nil, auth.ErrDuplicateIdentity).Once()

		session, err := env.svc.SignUpEmail(context.Background(), auth.SignUpParams{
			Email:    "jane@example.com",
			Password: "Sup3rSecret!",
		})
		require.ErrorIs(t, err, auth.ErrDuplicateIdentity)
		assert.Nil(t, session)
		assert.Equal(t, 0, env.db.commits)
		assert.Empty(t, env.sink.actions())
	})

	t.Run("weak password rejected before any io", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		_, err := env.svc.SignUpEmail(context.Background(), auth.SignUpParams{
			Email:    "jane@example.com",
			Password: "short",
		})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		env.users.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		_, err := env.svc.SignUpEmail(context.Background(), auth.SignUpParams{
			Email:    "not-an-email",
			Password: "Sup3rSecret!",
		})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
	})
}

func TestSignInEmail(t *testing.T) {
	t.Parallel()

	const password = "Sup3rSecret!"

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		user := &auth.User{ID: userID, Email: "jane@example.com", Role: auth.RoleAuthenticated}

		env.users.On("GetByEmail", "jane@example.com").Return(user, nil).Once()
		env.users.On("GetPasswordHash", userID).Return(mustHash(t, password), nil).Once()
		env.users.On("TouchLastSignIn", userID, mock.Anything).Return(nil).Once()
		env.expectSessionIssued(userID)

		session, err := env.svc.SignInEmail(context.Background(), "jane@example.com", password)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, []string{auth.ActionSignInEmail}, env.sink.actions())
		env.users.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		user := &auth.User{ID: userID, Email: "jane@example.com"}

		env.users.On("GetByEmail", "jane@example.com").Return(user, nil).Once()
		env.users.On("GetPasswordHash", userID).Return(mustHash(t, password), nil).Once()

		_, err := env.svc.SignInEmail(context.Background(), "jane@example.com", "wrong-password1")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Empty(t, env.sink.actions())
	})

	t.Run("unknown account fails identically", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.users.On("GetByEmail", "ghost@example.com").Return(nil, auth.ErrUserNotFound).Once()

		_, err := env.svc.SignInEmail(context.Background(), "ghost@example.com", password)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("passwordless account fails identically", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		user := &auth.User{ID: userID, Email: "jane@example.com"}

		env.users.On("GetByEmail", "jane@example.com").Return(user, nil).Once()
		env.users.On("GetPasswordHash", userID).Return(nil, nil).Once()

		_, err := env.svc.SignInEmail(context.Background(), "jane@example.com", password)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("storage failure surfaces as-is", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		user := &auth.User{ID: userID, Email: "jane@example.com"}
		storageErr := errors.New("connection reset")

		env.users.On("GetByEmail", "jane@example.com").Return(user, nil).Once()
		env.users.On("GetPasswordHash", userID).Return(nil, storageErr).Once()

		_, err := env.svc.SignInEmail(context.Background(), "jane@example.com", password)
		require.ErrorIs(t, err, storageErr)
		require.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, 0, env.db.commits)
	})

	t.Run("banned account with valid password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		user := &auth.User{ID: userID, Email: "jane@example.com", Banned: true}

		env.users.On("GetByEmail", "jane@example.com").Return(user, nil).Once()
		env.users.On("GetPasswordHash", userID).Return(mustHash(t, password), nil).Once()

		_, err := env.svc.SignInEmail(context.Background(), "jane@example.com", password)
		require.ErrorIs(t, err, auth.ErrAccountBanned)
	})
}

func TestRequestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("existing account gets a token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		user := &auth.User{ID: userID, Email: "jane@example.com"}

		var issuedToken string
		env.users.On("GetByEmail", "jane@example.com").Return(user, nil).Once()
		env.tokens.On("Issue", mock.MatchedBy(func(p auth.IssueTokenParams) bool {
			return p.Kind == auth.KindPasswordReset && p.UserID != nil && *p.UserID == userID
		})).Run(func(args mock.Arguments) {
			issuedToken = args.Get(0).(auth.IssueTokenParams).Token
		}).Return(&auth.EphemeralToken{}, nil).Once()
		env.notifier.On("SendPasswordReset", "jane@example.com", mock.AnythingOfType("string")).Return(nil).Once()

		err := env.svc.RequestPasswordReset(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, issuedToken)
		assert.Equal(t, []string{auth.ActionPasswordResetRequested}, env.sink.actions())
		env.notifier.AssertCalled(t, "SendPasswordReset", "jane@example.com", issuedToken)
	})

	t.Run("unknown account is silent", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.users.On("GetByEmail", "ghost@example.com").Return(nil, auth.ErrUserNotFound).Once()

		err := env.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
		require.NoError(t, err)
		env.tokens.AssertNotCalled(t, "Issue", mock.Anything)
		env.notifier.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything)
		assert.Empty(t, env.sink.actions())
	})
}

func TestConfirmPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("sets password and revokes all sessions", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()

		env.tokens.On("Consume", auth.KindPasswordReset, "reset-token", mock.Anything).
			Return(&auth.EphemeralToken{ID: uuid.New(), UserID: &userID}, nil).Once()
		env.users.On("SetPasswordHash", userID, mock.Anything).Return(nil).Once()
		env.refresh.On("RevokeAllForUser", userID).Return(nil).Once()

		err := env.svc.ConfirmPasswordReset(context.Background(), "reset-token", "N3wSecret!pass")
		require.NoError(t, err)
		assert.Equal(t, []string{auth.ActionPasswordResetConfirmed}, env.sink.actions())
		env.refresh.AssertExpectations(t)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.tokens.On("Consume", auth.KindPasswordReset, "stale", mock.Anything).
			Return(nil, auth.ErrTokenExpired).Once()

		err := env.svc.ConfirmPasswordReset(context.Background(), "stale", "N3wSecret!pass")
		require.ErrorIs(t, err, auth.ErrTokenExpired)
		env.users.AssertNotCalled(t, "SetPasswordHash", mock.Anything, mock.Anything)
	})

	t.Run("already used token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.tokens.On("Consume", auth.KindPasswordReset, "replayed", mock.Anything).
			Return(nil, auth.ErrTokenAlreadyUsed).Once()

		err := env.svc.ConfirmPasswordReset(context.Background(), "replayed", "N3wSecret!pass")
		require.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
	})

	t.Run("weak replacement password rejected before consume", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		err := env.svc.ConfirmPasswordReset(context.Background(), "reset-token", "short")
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		env.tokens.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestVerifyAccessToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	userID := uuid.New()
	user := &auth.User{ID: userID, Email: "jane@example.com", Role: auth.RoleAuthenticated}

	env.users.On("Create", mock.Anything).Return(user, nil).Once()
	env.expectSessionIssued(userID)

	session, err := env.svc.SignUpEmail(context.Background(), auth.SignUpParams{
		Email:    "jane@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	claims, err := env.svc.VerifyAccessToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, auth.RoleAuthenticated, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = env.svc.VerifyAccessToken("not.a.token")
	require.Error(t, err)
}
