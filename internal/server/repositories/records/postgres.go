// Package records stores entity records as JSONB rows keyed by (entity, id).
package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores rec, generating an ID when it has none. Replaying a create
// for a record the same user already owns overwrites it; a collision with
// another user's record yields common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	data, err := encode(rec)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO records (entity, id, user_id, data)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (entity, id) DO UPDATE
		 SET data = EXCLUDED.data, updated_at = now()
		 WHERE records.user_id = EXCLUDED.user_id
		 `

	res, err := r.db.ExecContext(ctx, query, rec.Entity, rec.ID, rec.UserID, data)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := dbx.RowsAffectedOne(res, common.ErrAlreadyExists); err != nil {
		return nil, err
	}

	return rec, nil
}

// Update replaces the data of a record owned by rec.UserID.
func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) (*models.Record, error) {
	data, err := encode(rec)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE records SET data = $1, updated_at = now()
		 WHERE entity = $2 AND id = $3 AND user_id = $4
		 `

	res, err := r.db.ExecContext(ctx, query, data, rec.Entity, rec.ID, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := dbx.RowsAffectedOne(res, common.ErrNotFound); err != nil {
		return nil, err
	}

	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, entity, id string) error {
	query :=
		`DELETE FROM records
		 WHERE entity = $1 AND id = $2 AND user_id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, entity, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RowsAffectedOne(res, common.ErrNotFound)
}

// encode serializes the record data with its id folded in.
func encode(rec *models.Record) (string, error) {
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	rec.Data["id"] = rec.ID

	b, err := json.Marshal(rec.Data)
	if err != nil {
		return "", fmt.Errorf("encode record %s/%s: %w", rec.Entity, rec.ID, err)
	}
	return string(b), nil
}
