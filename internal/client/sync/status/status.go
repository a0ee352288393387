// Package status derives the user-facing sync summary from queue state.
// Derive is pure; the only stateful piece is StatsTracker, which the
// executor feeds after every drain.
package status

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

const (
	perChangeEstimate = 250 * time.Millisecond
	perKiBEstimate    = 50 * time.Millisecond
	recentSyncWindow  = 60 * time.Second
)

// Kind names the single status message the UI should foreground.
type Kind string

const (
	KindFailed       Kind = "failed"
	KindHighPriority Kind = "high_priority"
	KindPending      Kind = "pending"
	KindSynced       Kind = "synced"
	KindIdle         Kind = "idle"
	KindOffline      Kind = "offline"
)

// QualityLevel is a coarse connection classification.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
	QualityOffline   QualityLevel = "offline"
	QualityUnknown   QualityLevel = "unknown"
)

type ConnectionQuality struct {
	Level QualityLevel  `json:"level"`
	RTT   time.Duration `json:"rtt"`
}

// Input is everything Derive looks at.
type Input struct {
	Pending        []models.Change
	Failed         []models.Change
	SyncInProgress bool
	IsOnline       bool
	LastSync       *time.Time
	RTT            time.Duration
	RTTSamples     int
	Stats          SyncStats
	Now            time.Time
}

type Status struct {
	PendingCount        int               `json:"pendingCount"`
	FailedCount         int               `json:"failedCount"`
	HasChanges          bool              `json:"hasChanges"`
	HighPriorityCount   int               `json:"highPriorityCount"`
	RetryExhaustedCount int               `json:"retryExhaustedCount"`
	EstimatedSyncTime   time.Duration     `json:"estimatedSyncTime"`
	ConnectionQuality   ConnectionQuality `json:"connectionQuality"`
	SyncStats           SyncStats         `json:"syncStats"`
	IsOnline            bool              `json:"isOnline"`
	SyncInProgress      bool              `json:"syncInProgress"`
	LastSync            *time.Time        `json:"lastSync,omitempty"`
	Kind                Kind              `json:"kind"`
	Message             string            `json:"message"`
}

func Derive(in Input) Status {
	s := Status{
		PendingCount:   len(in.Pending),
		FailedCount:    len(in.Failed),
		SyncStats:      in.Stats,
		IsOnline:       in.IsOnline,
		SyncInProgress: in.SyncInProgress,
		LastSync:       in.LastSync,
	}
	s.HasChanges = s.PendingCount > 0 || s.FailedCount > 0

	for _, c := range in.Pending {
		if c.Priority == models.PriorityHigh {
			s.HighPriorityCount++
		}
		s.EstimatedSyncTime += EstimateChange(c)
	}
	for _, c := range in.Failed {
		if !c.CanRetry() {
			s.RetryExhaustedCount++
		}
	}

	s.ConnectionQuality = Quality(in.IsOnline, in.RTT, in.RTTSamples)
	s.Kind, s.Message = headline(in, s)
	return s
}

// EstimateChange is a fixed cost per change plus a cost per KiB of payload.
func EstimateChange(c models.Change) time.Duration {
	return perChangeEstimate + time.Duration(c.PayloadSize())*perKiBEstimate/1024
}

func Quality(online bool, rtt time.Duration, samples int) ConnectionQuality {
	switch {
	case !online:
		return ConnectionQuality{Level: QualityOffline}
	case samples == 0:
		return ConnectionQuality{Level: QualityUnknown}
	case rtt < 150*time.Millisecond:
		return ConnectionQuality{Level: QualityExcellent, RTT: rtt}
	case rtt < 400*time.Millisecond:
		return ConnectionQuality{Level: QualityGood, RTT: rtt}
	case rtt < time.Second:
		return ConnectionQuality{Level: QualityFair, RTT: rtt}
	default:
		return ConnectionQuality{Level: QualityPoor, RTT: rtt}
	}
}

func headline(in Input, s Status) (Kind, string) {
	switch {
	case s.FailedCount > 0:
		if s.RetryExhaustedCount > 0 {
			return KindFailed, fmt.Sprintf("%d changes failed to sync, %d need attention", s.FailedCount, s.RetryExhaustedCount)
		}
		return KindFailed, fmt.Sprintf("%d changes failed to sync", s.FailedCount)
	case s.HighPriorityCount > 0:
		return KindHighPriority, fmt.Sprintf("%d high priority changes waiting to sync", s.HighPriorityCount)
	case s.PendingCount > 0:
		if in.SyncInProgress {
			return KindPending, fmt.Sprintf("Syncing %d changes", s.PendingCount)
		}
		return KindPending, fmt.Sprintf("%d changes waiting to sync", s.PendingCount)
	case in.LastSync != nil && in.Now.Sub(*in.LastSync) < recentSyncWindow:
		return KindSynced, "All changes synced"
	case in.IsOnline:
		return KindIdle, "Up to date"
	default:
		return KindOffline, "Offline, changes will sync when connected"
	}
}
