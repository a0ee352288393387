// Package remote defines the contract the sync executor needs from the hosted
// data service: a create/update/delete capability set per entity, resolved
// once through a typed Registry.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

// Collaborator applies mutations to one remote entity collection.
// Any returned error is treated as an opaque failure by the executor.
type Collaborator interface {
	Create(ctx context.Context, data map[string]any) (models.Record, error)
	Update(ctx context.Context, id string, data map[string]any) (models.Record, error)
	Delete(ctx context.Context, id string) error
}

// Registry maps entity tags to collaborators.
type Registry struct {
	byEntity map[models.Entity]Collaborator
}

func NewRegistry(collaborators map[models.Entity]Collaborator) *Registry {
	m := make(map[models.Entity]Collaborator, len(collaborators))
	for e, c := range collaborators {
		m[e] = c
	}
	return &Registry{byEntity: m}
}

// Resolve returns the collaborator for entity or common.ErrUnknownEntity.
func (r *Registry) Resolve(entity models.Entity) (Collaborator, error) {
	c, ok := r.byEntity[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, entity)
	}
	return c, nil
}

// Entities lists the registered entity tags.
func (r *Registry) Entities() []models.Entity {
	out := make([]models.Entity, 0, len(r.byEntity))
	for e := range r.byEntity {
		out = append(out, e)
	}
	return out
}

// Apply runs change against its collaborator under timeout (0 disables it).
// Update and delete need the record id in change.Data["id"].
func (r *Registry) Apply(ctx context.Context, change models.Change, timeout time.Duration) error {
	c, err := r.Resolve(change.Entity)
	if err != nil {
		return err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	switch change.Type {
	case models.ChangeCreate:
		_, err = c.Create(ctx, change.Data)
		return err
	case models.ChangeUpdate:
		id, ok := change.RecordID()
		if !ok {
			return common.ErrMissingID
		}
		_, err = c.Update(ctx, id, change.Data)
		return err
	case models.ChangeDelete:
		id, ok := change.RecordID()
		if !ok {
			return common.ErrMissingID
		}
		return c.Delete(ctx, id)
	default:
		return fmt.Errorf("unsupported change type %q", change.Type)
	}
}
