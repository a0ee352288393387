// Package connectivity tracks whether the remote service is reachable.
//
// There is no platform reachability event in a Go process, so the tracker
// probes the remote with a Pinger on an interval and turns the results into
// online/offline transitions. Manual overrides go through Set.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// Pinger checks remote liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NetworkInfo is the network signal collected from probes.
// RTT is a smoothed round-trip time; Samples is 0 until a probe succeeds.
type NetworkInfo struct {
	RTT     time.Duration
	Samples int
}

const (
	defaultProbeTimeout = 3 * time.Second

	// new RTT = (rttNew*sample + (10-rttNew)*old) / 10
	rttNew = 3
)

type Tracker struct {
	mu         sync.RWMutex
	online     bool
	lastChange time.Time
	info       NetworkInfo

	subsMu sync.Mutex
	subs   map[int]func(online bool)
	nextID int

	pinger       Pinger
	probeTimeout time.Duration
	log          logging.Logger
	now          func() time.Time
}

// NewTracker returns a tracker starting in the given state. pinger may be nil
// when connectivity is fed only through Set.
func NewTracker(pinger Pinger, online bool, log logging.Logger) *Tracker {
	return &Tracker{
		online:       online,
		lastChange:   time.Now(),
		subs:         make(map[int]func(bool)),
		pinger:       pinger,
		probeTimeout: defaultProbeTimeout,
		log:          log.With("module", "connectivity"),
		now:          time.Now,
	}
}

func (t *Tracker) IsOnline() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online
}

// LastChange is the time of the last transition (or construction).
func (t *Tracker) LastChange() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastChange
}

func (t *Tracker) NetworkInfo() NetworkInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.info
}

// Set records the current state and notifies subscribers on a transition.
func (t *Tracker) Set(online bool) {
	t.mu.Lock()
	if t.online == online {
		t.mu.Unlock()
		return
	}
	t.online = online
	t.lastChange = t.now()
	t.mu.Unlock()

	if online {
		t.log.Info(context.Background(), "switched to online mode")
	} else {
		t.log.Warn(context.Background(), "switched to offline mode")
	}

	t.subsMu.Lock()
	subs := make([]func(bool), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.subsMu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for transitions. The returned func unsubscribes and
// is safe to call more than once.
func (t *Tracker) Subscribe(fn func(online bool)) func() {
	t.subsMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.subsMu.Unlock()

	return func() {
		t.subsMu.Lock()
		delete(t.subs, id)
		t.subsMu.Unlock()
	}
}

// Probe pings the remote once and updates state and RTT.
func (t *Tracker) Probe(ctx context.Context) bool {
	if t.pinger == nil {
		return t.IsOnline()
	}

	ctx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	start := t.now()
	err := t.pinger.Ping(ctx)
	elapsed := t.now().Sub(start)
	cancel()

	if err != nil {
		t.log.Debug(ctx, "ping failed", "err", err)
		t.Set(false)
		return false
	}

	t.mu.Lock()
	if t.info.Samples == 0 {
		t.info.RTT = elapsed
	} else {
		t.info.RTT = (rttNew*elapsed + (10-rttNew)*t.info.RTT) / 10
	}
	t.info.Samples++
	t.mu.Unlock()

	t.Set(true)
	return true
}

// Run probes immediately and then every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	t.Probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
