// Package metadata is the local key/value store holding the small documents
// of the sync engine: last sync time, auto-sync settings and user preferences.
package metadata

import (
	"context"
)

// Repository is a string-keyed blob store. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)

	// GetJSON decodes the value under key into v and reports whether the key existed.
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	// SetJSON encodes v and stores it under key.
	SetJSON(ctx context.Context, key string, v any) error
}
