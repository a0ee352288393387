package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/users"
)

type fakeUsers struct {
	byName    map[string]*models.User
	createErr error
	getErr    error
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrAlreadyExists
	}
	u.ID = "u-" + u.UserName
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[login]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

type recordKey struct{ entity, id string }

type fakeRecords struct {
	rows map[recordKey]*models.Record
}

func (f *fakeRecords) Create(_ context.Context, rec *models.Record) (*models.Record, error) {
	k := recordKey{rec.Entity, rec.ID}
	if cur, ok := f.rows[k]; ok && cur.UserID != rec.UserID {
		return nil, common.ErrAlreadyExists
	}
	f.rows[k] = rec
	return rec, nil
}

func (f *fakeRecords) Update(_ context.Context, rec *models.Record) (*models.Record, error) {
	k := recordKey{rec.Entity, rec.ID}
	if cur, ok := f.rows[k]; !ok || cur.UserID != rec.UserID {
		return nil, common.ErrNotFound
	}
	f.rows[k] = rec
	return rec, nil
}

func (f *fakeRecords) Delete(_ context.Context, userID, entity, id string) error {
	k := recordKey{entity, id}
	if cur, ok := f.rows[k]; !ok || cur.UserID != userID {
		return common.ErrNotFound
	}
	delete(f.rows, k)
	return nil
}

type fakeManager struct {
	users   *fakeUsers
	records *fakeRecords
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users:   &fakeUsers{byName: map[string]*models.User{}},
		records: &fakeRecords{rows: map[recordKey]*models.Record{}},
	}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository            { return m.users }
func (m *fakeManager) Records(dbx.DBTX) records.Repository        { return m.records }
