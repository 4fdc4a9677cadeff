package engine

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Default sweep cadences.
const (
	MissionInterval    = 5 * time.Second
	UpgradeInterval    = 5 * time.Second
	ResearchInterval   = 5 * time.Second
	RiftDecayInterval  = 10 * time.Second
	ExtractionInterval = 10 * time.Second
	ExpeditionInterval = 30 * time.Second
)

// TickEngine is one periodic sweep the scheduler drives.
type TickEngine interface {
	Name() string
	Sweep(ctx context.Context) error
}

// Scheduler owns one ticker per registered engine. Engines run on
// independent cadences with no ordering guarantee between them; a slow sweep
// only delays its own next firing.
type Scheduler struct {
	mu      sync.Mutex
	entries []scheduleEntry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type scheduleEntry struct {
	engine   TickEngine
	interval time.Duration
}

// Register adds an engine at the given cadence. Must be called before Start.
func (s *Scheduler) Register(e TickEngine, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, scheduleEntry{engine: e, interval: interval})
}

// Start launches one goroutine per engine. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, entry := range s.entries {
		s.wg.Add(1)
		go s.run(ctx, entry)
	}
	slog.Info("scheduler started", "engines", len(s.entries))
}

// Stop cancels all tickers and waits for in-flight sweeps to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, entry scheduleEntry) {
	defer s.wg.Done()

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, entry.engine)
		}
	}
}

// fire runs one sweep, containing panics so a poisoned row cannot take the
// ticker goroutine down with it.
func (s *Scheduler) fire(ctx context.Context, e TickEngine) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sweep panicked",
				"engine", e.Name(), "panic", r, "stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	if err := e.Sweep(ctx); err != nil {
		slog.Error("sweep failed", "engine", e.Name(), "error", err)
		return
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		slog.Warn("slow sweep", "engine", e.Name(), "elapsed", elapsed)
	}
}
