package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/authcore/pkg/pg"
)

// PostgresStorage writes events to the audit_log table. The table has no
// foreign key to users so entries survive account deletion, and the
// storage exposes no update or delete paths.
type PostgresStorage struct{}

// NewPostgresStorage creates the postgres audit storage.
func NewPostgresStorage() *PostgresStorage {
	return &PostgresStorage{}
}

const insertEventQuery = `
INSERT INTO audit_log (id, user_id, action, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)`

// Store implements Storage.
func (s *PostgresStorage) Store(ctx context.Context, q pg.Querier, event Event) error {
	var metadata []byte
	if len(event.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return errors.Join(ErrFailedToStore, err)
		}
	}

	if _, err := q.Exec(ctx, insertEventQuery,
		event.ID,
		event.UserID,
		event.Action,
		metadata,
		event.CreatedAt,
	); err != nil {
		return errors.Join(ErrFailedToStore, err)
	}
	return nil
}
