package status

import (
	"sync"
	"time"
)

// SyncStats are cumulative counters since tracking started.
type SyncStats struct {
	TotalSynced     int           `json:"totalSynced"`
	TotalFailed     int           `json:"totalFailed"`
	SuccessRate     float64       `json:"successRate"`
	AverageSyncTime time.Duration `json:"averageSyncTime"`
}

// StatsTracker accumulates drain results.
type StatsTracker struct {
	mu        sync.Mutex
	synced    int
	failed    int
	drains    int
	totalTime time.Duration
}

func NewStatsTracker() *StatsTracker {
	return &StatsTracker{}
}

// Record adds the outcome of one drain.
func (t *StatsTracker) Record(processed, failed int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.synced += processed
	t.failed += failed
	t.drains++
	t.totalTime += elapsed
}

// Stats returns the current counters. SuccessRate is 1 before any attempt.
func (t *StatsTracker) Stats() SyncStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := SyncStats{TotalSynced: t.synced, TotalFailed: t.failed, SuccessRate: 1}
	if total := t.synced + t.failed; total > 0 {
		s.SuccessRate = float64(t.synced) / float64(total)
	}
	if t.drains > 0 {
		s.AverageSyncTime = t.totalTime / time.Duration(t.drains)
	}
	return s
}
