package changes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

const (
	tablePending = "pending_changes"
	tableFailed  = "failed_changes"
)

// SQLiteRepository implements Repository over a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]models.Change, []models.Change, error) {
	pending, err := r.selectAll(ctx, r.db, tablePending)
	if err != nil {
		return nil, nil, err
	}
	failed, err := r.selectAll(ctx, r.db, tableFailed)
	if err != nil {
		return nil, nil, err
	}
	return pending, failed, nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, pending, failed []models.Change) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.replace(ctx, tx, tablePending, pending); err != nil {
			return err
		}
		return r.replace(ctx, tx, tableFailed, failed)
	})
}

func (r *SQLiteRepository) replace(ctx context.Context, tx dbx.DBTX, table string, list []models.Change) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	query := `INSERT INTO ` + table + ` (id, position, type, entity, data, created_at,
		retry_count, priority, error, last_failed_at, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for pos, c := range list {
		data, err := json.Marshal(c.Data)
		if err != nil {
			return fmt.Errorf("failed to encode change %s: %w", c.ID, err)
		}

		var lastFailed sql.NullInt64
		if c.LastFailedAt != nil {
			lastFailed = sql.NullInt64{Int64: c.LastFailedAt.UnixNano(), Valid: true}
		}

		_, err = tx.ExecContext(ctx, query,
			string(c.ID), pos, string(c.Type), string(c.Entity), string(data),
			c.Timestamp.UnixNano(), c.RetryCount, string(c.Priority), c.Error, lastFailed, c.Revision)
		if err != nil {
			return fmt.Errorf("failed to insert change %s into %s: %w", c.ID, table, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) selectAll(ctx context.Context, db dbx.DBTX, table string) ([]models.Change, error) {
	query := `SELECT id, type, entity, data, created_at, retry_count, priority, error, last_failed_at, revision
		FROM ` + table + ` ORDER BY position`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	defer rows.Close()

	result := make([]models.Change, 0)
	for rows.Next() {
		var (
			c          models.Change
			id, typ    string
			entity     string
			prio       string
			data       string
			createdAt  int64
			lastFailed sql.NullInt64
		)
		if err := rows.Scan(&id, &typ, &entity, &data, &createdAt, &c.RetryCount, &prio, &c.Error, &lastFailed, &c.Revision); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if err := json.Unmarshal([]byte(data), &c.Data); err != nil {
			return nil, fmt.Errorf("failed to decode change %s: %w", id, err)
		}

		c.ID = models.ChangeID(id)
		c.Type = models.ChangeType(typ)
		c.Entity = models.Entity(entity)
		c.Priority = models.Priority(prio)
		c.Timestamp = time.Unix(0, createdAt).UTC()
		if lastFailed.Valid {
			t := time.Unix(0, lastFailed.Int64).UTC()
			c.LastFailedAt = &t
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	return result, nil
}
