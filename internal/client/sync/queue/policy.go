package queue

import "github.com/dmitrijs2005/fieldsync/internal/client/models"

// Policy assigns a priority to changes whose intent carries none.
//
// Deletes are high priority. Changes to HighPriorityEntities are high
// priority. Updates of documents are low priority. Everything else is normal.
type Policy struct {
	HighPriorityEntities []models.Entity
}

// DefaultPolicy treats time entries as high priority.
func DefaultPolicy() Policy {
	return Policy{HighPriorityEntities: []models.Entity{models.EntityTimeEntries}}
}

func (p Policy) Assign(typ models.ChangeType, entity models.Entity) models.Priority {
	if typ == models.ChangeDelete {
		return models.PriorityHigh
	}
	for _, e := range p.HighPriorityEntities {
		if e == entity {
			return models.PriorityHigh
		}
	}
	if typ == models.ChangeUpdate && entity == models.EntityDocuments {
		return models.PriorityLow
	}
	return models.PriorityNormal
}
