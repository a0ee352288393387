package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/repomanager"
)

// RecordService stores records on behalf of an authenticated user.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: m}
}

func (s *RecordService) Create(ctx context.Context, userID, entity, id string, data map[string]any) (*models.Record, error) {
	if entity == "" {
		return nil, common.ErrUnknownEntity
	}
	rec, err := s.repomanager.Records(s.db).Create(ctx, &models.Record{Entity: entity, ID: id, UserID: userID, Data: data})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", entity, err)
	}
	return rec, nil
}

func (s *RecordService) Update(ctx context.Context, userID, entity, id string, data map[string]any) (*models.Record, error) {
	if entity == "" {
		return nil, common.ErrUnknownEntity
	}
	if id == "" {
		return nil, common.ErrMissingID
	}
	rec, err := s.repomanager.Records(s.db).Update(ctx, &models.Record{Entity: entity, ID: id, UserID: userID, Data: data})
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", entity, id, err)
	}
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, userID, entity, id string) error {
	if entity == "" {
		return common.ErrUnknownEntity
	}
	if id == "" {
		return common.ErrMissingID
	}
	if err := s.repomanager.Records(s.db).Delete(ctx, userID, entity, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", entity, id, err)
	}
	return nil
}
