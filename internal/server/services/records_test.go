package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordService_Lifecycle(t *testing.T) {
	m := newFakeManager()
	s := NewRecordService(nil, m)
	ctx := context.Background()

	rec, err := s.Create(ctx, "u-1", "tasks", "t-1", map[string]any{"title": "fix"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", rec.ID)

	_, err = s.Update(ctx, "u-1", "tasks", "t-1", map[string]any{"title": "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", m.records.rows[recordKey{"tasks", "t-1"}].Data["title"])

	require.NoError(t, s.Delete(ctx, "u-1", "tasks", "t-1"))
	assert.Empty(t, m.records.rows)
}

func TestRecordService_OwnershipIsolation(t *testing.T) {
	s := NewRecordService(nil, newFakeManager())
	ctx := context.Background()

	_, err := s.Create(ctx, "u-1", "tasks", "t-1", nil)
	require.NoError(t, err)

	_, err = s.Create(ctx, "u-2", "tasks", "t-1", nil)
	require.ErrorIs(t, err, common.ErrAlreadyExists)
	_, err = s.Update(ctx, "u-2", "tasks", "t-1", nil)
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "u-2", "tasks", "t-1"), common.ErrNotFound)
}

func TestRecordService_Validation(t *testing.T) {
	s := NewRecordService(nil, newFakeManager())
	ctx := context.Background()

	_, err := s.Create(ctx, "u-1", "", "x", nil)
	require.ErrorIs(t, err, common.ErrUnknownEntity)
	_, err = s.Update(ctx, "u-1", "tasks", "", nil)
	require.ErrorIs(t, err, common.ErrMissingID)
	require.ErrorIs(t, s.Delete(ctx, "u-1", "tasks", ""), common.ErrMissingID)
}
