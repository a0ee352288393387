// Package settings reads and writes the small persisted documents kept in
// the metadata table: last sync time, auto-sync settings and preferences.
package settings

import (
	"context"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
)

const (
	keyLastSync       = "last_sync"
	keyAutoSync       = "auto_sync"
	keySyncIntervalMs = "sync_interval_ms"
	keyPreferences    = "preferences"
)

type Store struct {
	repo     metadata.Repository
	defaults models.SyncSettings
}

// NewStore returns a Store whose SyncSettings fall back to defaults for
// values that were never saved.
func NewStore(repo metadata.Repository, defaults models.SyncSettings) *Store {
	return &Store{repo: repo, defaults: defaults}
}

// LastSync returns nil when no drain has completed yet.
func (s *Store) LastSync(ctx context.Context) (*time.Time, error) {
	var t time.Time
	ok, err := s.repo.GetJSON(ctx, keyLastSync, &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return s.repo.SetJSON(ctx, keyLastSync, t.UTC())
}

// SyncSettings returns the stored settings, falling back to defaults per field.
func (s *Store) SyncSettings(ctx context.Context) (models.SyncSettings, error) {
	out := s.defaults

	raw, err := s.repo.Get(ctx, keyAutoSync)
	if err != nil {
		return out, err
	}
	if raw != nil {
		if v, perr := strconv.ParseBool(string(raw)); perr == nil {
			out.AutoSync = v
		}
	}

	raw, err = s.repo.Get(ctx, keySyncIntervalMs)
	if err != nil {
		return out, err
	}
	if raw != nil {
		if ms, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil && ms > 0 {
			out.SyncInterval = time.Duration(ms) * time.Millisecond
		}
	}
	return out, nil
}

func (s *Store) SetAutoSync(ctx context.Context, enabled bool) error {
	return s.repo.Set(ctx, keyAutoSync, []byte(strconv.FormatBool(enabled)))
}

func (s *Store) SetSyncInterval(ctx context.Context, d time.Duration) error {
	return s.repo.Set(ctx, keySyncIntervalMs, []byte(strconv.FormatInt(d.Milliseconds(), 10)))
}

func (s *Store) Preferences(ctx context.Context) (models.Preferences, error) {
	p := models.DefaultPreferences()
	if _, err := s.repo.GetJSON(ctx, keyPreferences, &p); err != nil {
		return models.DefaultPreferences(), err
	}
	return p, nil
}

func (s *Store) SetPreferences(ctx context.Context, p models.Preferences) error {
	return s.repo.SetJSON(ctx, keyPreferences, p)
}
