package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authcore/audit"
	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/jwt"
	"github.com/dmitrymomot/authcore/pkg/pg"
)

// stubQuerier satisfies pg.Querier for flows whose storage is mocked;
// no method should ever be reached.
type stubQuerier struct{}

func (stubQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("unexpected direct query")
}

func (stubQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("unexpected direct query")
}

func (stubQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("unexpected direct query")
}

// fakeTxRunner runs the flow closure directly and counts outcomes, so
// tests can assert whether a flow committed or rolled back.
type fakeTxRunner struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, q pg.Querier) error) error {
	err := fn(ctx, stubQuerier{})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rollbacks++
	} else {
		r.commits++
	}
	return err
}

// auditSink captures recorded events in memory.
type auditSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *auditSink) Store(_ context.Context, _ pg.Querier, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *auditSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, len(s.events))
	for i, e := range s.events {
		actions[i] = e.Action
	}
	return actions
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) Create(_ context.Context, _ pg.Querier, params auth.CreateUserParams) (*auth.User, error) {
	args := m.Called(params)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetByID(_ context.Context, _ pg.Querier, id uuid.UUID) (*auth.User, error) {
	args := m.Called(id)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetByEmail(_ context.Context, _ pg.Querier, email string) (*auth.User, error) {
	args := m.Called(email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetByPhone(_ context.Context, _ pg.Querier, phone string) (*auth.User, error) {
	args := m.Called(phone)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetOrCreateByEmail(_ context.Context, _ pg.Querier, email string) (*auth.User, error) {
	args := m.Called(email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetPasswordHash(_ context.Context, _ pg.Querier, id uuid.UUID) ([]byte, error) {
	args := m.Called(id)
	if h, ok := args.Get(0).([]byte); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) SetPasswordHash(_ context.Context, _ pg.Querier, id uuid.UUID, hash []byte) error {
	return m.Called(id, hash).Error(0)
}

func (m *mockUserStore) TouchLastSignIn(_ context.Context, _ pg.Querier, id uuid.UUID, at time.Time) error {
	return m.Called(id, at).Error(0)
}

func (m *mockUserStore) MarkEmailConfirmed(_ context.Context, _ pg.Querier, id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func (m *mockUserStore) MarkPhoneConfirmed(_ context.Context, _ pg.Querier, id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func (m *mockUserStore) SoftDelete(_ context.Context, _ pg.Querier, id uuid.UUID, at time.Time) error {
	return m.Called(id, at).Error(0)
}

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Issue(_ context.Context, _ pg.Querier, params auth.IssueTokenParams) (*auth.EphemeralToken, error) {
	args := m.Called(params)
	if t, ok := args.Get(0).(*auth.EphemeralToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTokenStore) Consume(_ context.Context, _ pg.Querier, kind auth.TokenKind, token string, now time.Time) (*auth.EphemeralToken, error) {
	args := m.Called(kind, token, now)
	if t, ok := args.Get(0).(*auth.EphemeralToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTokenStore) FindActiveOTP(_ context.Context, _ pg.Querier, phone string) (*auth.EphemeralToken, error) {
	args := m.Called(phone)
	if t, ok := args.Get(0).(*auth.EphemeralToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTokenStore) RecordFailedAttempt(_ context.Context, _ pg.Querier, id uuid.UUID) (int, error) {
	args := m.Called(id)
	return args.Int(0), args.Error(1)
}

func (m *mockTokenStore) MarkUsed(_ context.Context, _ pg.Querier, id uuid.UUID, at time.Time) error {
	return m.Called(id, at).Error(0)
}

type mockRefreshTokenStore struct {
	mock.Mock
}

func (m *mockRefreshTokenStore) Create(_ context.Context, _ pg.Querier, userID uuid.UUID, token string, createdAt, expiresAt time.Time) error {
	return m.Called(userID, token, createdAt, expiresAt).Error(0)
}

func (m *mockRefreshTokenStore) Get(_ context.Context, _ pg.Querier, token string) (*auth.RefreshToken, error) {
	args := m.Called(token)
	if t, ok := args.Get(0).(*auth.RefreshToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRefreshTokenStore) Revoke(_ context.Context, _ pg.Querier, token string) (bool, error) {
	args := m.Called(token)
	return args.Bool(0), args.Error(1)
}

func (m *mockRefreshTokenStore) RevokeAllForUser(_ context.Context, _ pg.Querier, userID uuid.UUID) error {
	return m.Called(userID).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendMagicLink(_ context.Context, email, token string) error {
	return m.Called(email, token).Error(0)
}

func (m *mockNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	return m.Called(email, token).Error(0)
}

func (m *mockNotifier) SendOTP(_ context.Context, phone, code string) error {
	return m.Called(phone, code).Error(0)
}

type testEnv struct {
	svc      *auth.Service
	db       *fakeTxRunner
	users    *mockUserStore
	tokens   *mockTokenStore
	refresh  *mockRefreshTokenStore
	notifier *mockNotifier
	sink     *auditSink
}

func newTestEnv(t *testing.T, opts ...auth.Option) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       &fakeTxRunner{},
		users:    &mockUserStore{},
		tokens:   &mockTokenStore{},
		refresh:  &mockRefreshTokenStore{},
		notifier: &mockNotifier{},
		sink:     &auditSink{},
	}

	issuer, err := jwt.NewIssuer(jwt.Config{
		SigningKey: strings.Repeat("s", 32),
		Issuer:     "authcore-test",
		AccessTTL:  time.Hour,
	})
	require.NoError(t, err)

	opts = append([]auth.Option{
		auth.WithBcryptCost(bcrypt.MinCost),
		auth.WithNotifier(env.notifier),
	}, opts...)

	env.svc = auth.New(
		env.db,
		env.users,
		env.tokens,
		env.refresh,
		audit.NewRecorder(env.sink),
		issuer,
		opts...,
	)
	return env
}

// expectSessionIssued wires the refresh store for one successful
// issueSession call.
func (e *testEnv) expectSessionIssued(userID uuid.UUID) {
	e.refresh.On("Create", userID, mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(nil).Once()
}

func mustHash(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}
