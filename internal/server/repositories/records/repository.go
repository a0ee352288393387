package records

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.Record) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record) (*models.Record, error)
	Delete(ctx context.Context, userID, entity, id string) error
}
