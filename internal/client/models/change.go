// Package models defines the client-side data model of the sync engine:
// queued changes, entity tags, priorities and the persisted settings and
// preference documents.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxRetries bounds automatic and single-click retries of a failed change.
const MaxRetries = 3

// ChangeType is the kind of mutation a Change carries.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Valid reports whether t is one of the three known mutation kinds.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeCreate, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// Priority ranks pending changes for status reporting.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ChangeID is the key shared by a queued change and its optimistic record.
type ChangeID string

// Change is a single queued mutation intent.
//
// Error and LastFailedAt are set only once the change has failed at least
// once. Revision grows each time a caller coalesces a newer intent into a
// change that is still pending.
type Change struct {
	ID           ChangeID       `json:"id"`
	Type         ChangeType     `json:"type"`
	Entity       Entity         `json:"entity"`
	Data         map[string]any `json:"data"`
	Timestamp    time.Time      `json:"timestamp"`
	RetryCount   int            `json:"retryCount"`
	Priority     Priority       `json:"priority"`
	Error        string         `json:"error,omitempty"`
	LastFailedAt *time.Time     `json:"lastFailedAt,omitempty"`
	Revision     int            `json:"revision"`
}

// RecordID returns the identifying key of the target record (data["id"]).
func (c Change) RecordID() (string, bool) {
	if c.Data == nil {
		return "", false
	}
	switch v := c.Data["id"].(type) {
	case string:
		return v, v != ""
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	case float64:
		return fmt.Sprintf("%.0f", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	}
	return "", false
}

// CanRetry reports whether the change is still eligible for retry.
func (c Change) CanRetry() bool {
	return c.RetryCount < MaxRetries
}

// PayloadSize is the JSON size of Data in bytes; 0 when it cannot be encoded.
func (c Change) PayloadSize() int {
	if len(c.Data) == 0 {
		return 0
	}
	b, err := json.Marshal(c.Data)
	if err != nil {
		return 0
	}
	return len(b)
}

// Clone returns a copy whose Data map and LastFailedAt can be mutated without
// affecting c. Nested values inside Data are shared.
func (c Change) Clone() Change {
	out := c
	if c.Data != nil {
		out.Data = make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			out.Data[k] = v
		}
	}
	if c.LastFailedAt != nil {
		t := *c.LastFailedAt
		out.LastFailedAt = &t
	}
	return out
}
