package models

// Record is one stored row of an entity collection, owned by one user.
type Record struct {
	Entity string
	ID     string
	UserID string
	Data   map[string]any
}
