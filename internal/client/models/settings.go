package models

import "time"

// SyncSettings are the persisted auto-sync knobs of the offline-sync document.
type SyncSettings struct {
	AutoSync     bool
	SyncInterval time.Duration
}

// DefaultSyncSettings returns auto-sync on with a 30 second interval.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{AutoSync: true, SyncInterval: 30 * time.Second}
}

// Preferences is the app-preferences document stored next to the queues.
type Preferences struct {
	Theme      string `json:"theme"`
	Locale     string `json:"locale"`
	Timezone   string `json:"timezone"`
	DateFormat string `json:"dateFormat"`
	TimeFormat string `json:"timeFormat"`
}

// DefaultPreferences returns the preferences used before the user sets any.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:      "system",
		Locale:     "en-US",
		Timezone:   "UTC",
		DateFormat: "2006-01-02",
		TimeFormat: "15:04",
	}
}
