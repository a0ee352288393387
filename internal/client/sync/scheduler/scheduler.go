// Package scheduler triggers drains on an interval and shortly after the
// remote becomes reachable again.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/sync/executor"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// Drainer runs one drain. executor.Executor satisfies it.
type Drainer interface {
	Drain(ctx context.Context) (executor.Result, error)
}

// Connectivity is the part of connectivity.Tracker the scheduler uses.
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(online bool)) func()
}

type Config struct {
	AutoSync       bool
	Interval       time.Duration
	ReconnectDelay time.Duration
}

func DefaultConfig() Config {
	return Config{AutoSync: true, Interval: 30 * time.Second, ReconnectDelay: time.Second}
}

// Scheduler owns its ticker, reconnect timer and connectivity subscription.
// Start and Stop are idempotent; independent instances share nothing.
type Scheduler struct {
	drainer Drainer
	conn    Connectivity
	log     logging.Logger

	mu          sync.Mutex
	cfg         Config
	running     bool
	stopCh      chan struct{}
	cancel      context.CancelFunc
	unsubscribe func()
	reconnect   *time.Timer
	wg          sync.WaitGroup

	resetCh     chan struct{}
	reconnectCh chan struct{}
}

func New(d Drainer, conn Connectivity, cfg Config, log logging.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultConfig().ReconnectDelay
	}
	return &Scheduler{
		drainer:     d,
		conn:        conn,
		cfg:         cfg,
		log:         log.With("module", "scheduler"),
		resetCh:     make(chan struct{}, 1),
		reconnectCh: make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	select {
	case <-s.reconnectCh:
	default:
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.unsubscribe = s.conn.Subscribe(s.onConnectivity)

	s.wg.Add(1)
	go s.loop(runCtx, s.stopCh, s.cfg.Interval)

	s.log.Info(ctx, "scheduler started", "interval", s.cfg.Interval, "auto_sync", s.cfg.AutoSync)
}

// Stop halts the scheduler and waits for a running drain to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.unsubscribe()
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info(context.Background(), "scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) SetAutoSync(enabled bool) {
	s.mu.Lock()
	s.cfg.AutoSync = enabled
	if !enabled && s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	s.mu.Unlock()
	s.signal(s.resetCh)
}

// SetInterval changes the tick interval. Non-positive values are ignored.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.cfg.Interval = d
	s.mu.Unlock()
	s.signal(s.resetCh)
}

func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// onConnectivity debounces offline->online transitions: every transition
// within ReconnectDelay restarts the timer, and going offline cancels it.
func (s *Scheduler) onConnectivity(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if !online || !s.running || !s.cfg.AutoSync {
		return
	}
	s.reconnect = time.AfterFunc(s.cfg.ReconnectDelay, func() { s.signal(s.reconnectCh) })
}

func (s *Scheduler) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-s.resetCh:
			if d := s.Config().Interval; d != interval {
				interval = d
				ticker.Reset(interval)
				s.log.Debug(ctx, "interval changed", "interval", interval)
			}
		case <-ticker.C:
			s.maybeDrain(ctx, "tick")
		case <-s.reconnectCh:
			s.maybeDrain(ctx, "reconnect")
		}
	}
}

func (s *Scheduler) maybeDrain(ctx context.Context, reason string) {
	if !s.Config().AutoSync || !s.conn.IsOnline() {
		return
	}
	s.log.Debug(ctx, "drain requested", "reason", reason)
	if _, err := s.drainer.Drain(ctx); err != nil {
		s.log.Error(ctx, "scheduled drain failed", "reason", reason, "err", err)
	}
}
