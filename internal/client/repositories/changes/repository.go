// Package changes persists the pending and failed change queues of the
// offline-sync document. Both lists are written together, in one
// transaction, so a restart always sees a consistent partition.
package changes

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Repository loads and stores both ordered change lists.
type Repository interface {
	// LoadAll returns pending and failed changes in queue order.
	LoadAll(ctx context.Context) (pending, failed []models.Change, err error)

	// ReplaceAll atomically replaces the stored lists with the given ones.
	ReplaceAll(ctx context.Context, pending, failed []models.Change) error
}
