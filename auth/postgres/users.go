package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/pg"
)

// UserStorage implements auth.UserStore on top of the users and
// user_metadata tables. Email and phone uniqueness is enforced by
// partial unique indexes that exclude soft-deleted rows, so a deleted
// account frees its identifiers for reuse.
type UserStorage struct{}

// NewUserStorage creates the postgres user storage.
func NewUserStorage() *UserStorage {
	return &UserStorage{}
}

const insertUserQuery = `
INSERT INTO users (id, email, phone, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`

const insertUserNoConflictQuery = `
INSERT INTO users (id, email, role)
VALUES ($1, $2, $3)
ON CONFLICT (email) WHERE deleted_at IS NULL DO NOTHING
RETURNING created_at, updated_at`

const insertUserMetadataQuery = `
INSERT INTO user_metadata (user_id, app_metadata, user_metadata)
VALUES ($1, $2, $3)`

const selectUserQuery = `
SELECT u.id, u.email, u.phone, u.email_confirmed, u.phone_confirmed,
       u.role, u.banned, m.app_metadata, m.user_metadata,
       u.created_at, u.updated_at, u.last_sign_in_at
FROM users u
LEFT JOIN user_metadata m ON m.user_id = u.id
WHERE u.deleted_at IS NULL AND `

// Create implements auth.UserStore.
func (s *UserStorage) Create(ctx context.Context, q pg.Querier, params auth.CreateUserParams) (*auth.User, error) {
	user := &auth.User{
		ID:           uuid.New(),
		Email:        params.Email,
		Phone:        params.Phone,
		Role:         params.Role,
		AppMetadata:  params.AppMetadata,
		UserMetadata: params.UserMetadata,
	}

	err := q.QueryRow(ctx, insertUserQuery,
		user.ID,
		nullable(params.Email),
		nullable(params.Phone),
		params.PasswordHash,
		params.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, auth.ErrDuplicateIdentity
		}
		return nil, err
	}

	if len(params.AppMetadata) > 0 || len(params.UserMetadata) > 0 {
		appJSON, err := json.Marshal(params.AppMetadata)
		if err != nil {
			return nil, err
		}
		usrJSON, err := json.Marshal(params.UserMetadata)
		if err != nil {
			return nil, err
		}
		if _, err := q.Exec(ctx, insertUserMetadataQuery, user.ID, appJSON, usrJSON); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// GetOrCreateByEmail implements auth.UserStore. DO NOTHING keeps a
// losing concurrent insert from raising and aborting the surrounding
// transaction; the loser waits out the winner's insert and then reads
// the committed row.
func (s *UserStorage) GetOrCreateByEmail(ctx context.Context, q pg.Querier, email string) (*auth.User, error) {
	user := &auth.User{
		ID:    uuid.New(),
		Email: email,
		Role:  auth.RoleAuthenticated,
	}

	err := q.QueryRow(ctx, insertUserNoConflictQuery, user.ID, email, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err == nil {
		return user, nil
	}
	if !pg.IsNotFoundError(err) {
		return nil, err
	}

	// Conflict: an account with this email already exists.
	return s.GetByEmail(ctx, q, email)
}

// GetByID implements auth.UserStore.
func (s *UserStorage) GetByID(ctx context.Context, q pg.Querier, id uuid.UUID) (*auth.User, error) {
	return scanUser(q.QueryRow(ctx, selectUserQuery+`u.id = $1`, id))
}

// GetByEmail implements auth.UserStore.
func (s *UserStorage) GetByEmail(ctx context.Context, q pg.Querier, email string) (*auth.User, error) {
	return scanUser(q.QueryRow(ctx, selectUserQuery+`u.email = $1`, email))
}

// GetByPhone implements auth.UserStore.
func (s *UserStorage) GetByPhone(ctx context.Context, q pg.Querier, phone string) (*auth.User, error) {
	return scanUser(q.QueryRow(ctx, selectUserQuery+`u.phone = $1`, phone))
}

// GetPasswordHash implements auth.UserStore. A nil hash means the
// account is passwordless.
func (s *UserStorage) GetPasswordHash(ctx context.Context, q pg.Querier, id uuid.UUID) ([]byte, error) {
	var hash []byte
	err := q.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&hash)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return hash, nil
}

// SetPasswordHash implements auth.UserStore.
func (s *UserStorage) SetPasswordHash(ctx context.Context, q pg.Querier, id uuid.UUID, hash []byte) error {
	tag, err := q.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, hash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// TouchLastSignIn implements auth.UserStore.
func (s *UserStorage) TouchLastSignIn(ctx context.Context, q pg.Querier, id uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET last_sign_in_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	return err
}

// MarkEmailConfirmed implements auth.UserStore.
func (s *UserStorage) MarkEmailConfirmed(ctx context.Context, q pg.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET email_confirmed = true, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	return err
}

// MarkPhoneConfirmed implements auth.UserStore.
func (s *UserStorage) MarkPhoneConfirmed(ctx context.Context, q pg.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET phone_confirmed = true, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	return err
}

// SoftDelete implements auth.UserStore.
func (s *UserStorage) SoftDelete(ctx context.Context, q pg.Querier, id uuid.UUID, at time.Time) error {
	tag, err := q.Exec(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*auth.User, error) {
	var (
		user         auth.User
		email, phone *string
		appJSON      []byte
		usrJSON      []byte
	)
	err := row.Scan(
		&user.ID,
		&email,
		&phone,
		&user.EmailConfirmed,
		&user.PhoneConfirmed,
		&user.Role,
		&user.Banned,
		&appJSON,
		&usrJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastSignInAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	if email != nil {
		user.Email = *email
	}
	if phone != nil {
		user.Phone = *phone
	}
	if len(appJSON) > 0 {
		if err := json.Unmarshal(appJSON, &user.AppMetadata); err != nil {
			return nil, err
		}
	}
	if len(usrJSON) > 0 {
		if err := json.Unmarshal(usrJSON, &user.UserMetadata); err != nil {
			return nil, err
		}
	}

	return &user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
