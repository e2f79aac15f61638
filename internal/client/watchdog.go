package client

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// TaskLivenessTimeout is how long a registered pulse may go silent
// before the watchdog considers that task dead.
const TaskLivenessTimeout = 2 * time.Second

// WatchdogInterval is how often the watchdog checks, well outside the
// 3ms real-time failover path.
const WatchdogInterval = 500 * time.Millisecond

// HighMemoryWarnMB is the threshold on memory the Go runtime has
// obtained from the OS (runtime.MemStats.Sys) above which the watchdog logs a
// warning, matching the original collector's fixed 200MB line.
const HighMemoryWarnMB = 200.0

// Pulse is the sending half of a task-liveness pair: the monitored
// goroutine calls Tick() on every loop iteration.
type Pulse struct {
	mu   sync.Mutex
	last time.Time
}

// NewPulse returns a Pulse already ticked once.
func NewPulse() *Pulse {
	return &Pulse{last: time.Now()}
}

// Tick records that the task is still alive.
func (p *Pulse) Tick() {
	p.mu.Lock()
	p.last = time.Now()
	p.mu.Unlock()
}

func (p *Pulse) elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.last)
}

// Watchdog tracks registered task pulses and process memory, supplementing
// the spec with the liveness/memory monitoring original_source's
// watchdog.rs performs but spec.md never names explicitly.
type Watchdog struct {
	mu       sync.Mutex
	pulses   map[string]*Pulse
	logger   contracts.Logger
	memoryMB atomic64
}

type atomic64 struct {
	mu  sync.Mutex
	val float64
}

func (a *atomic64) store(v float64) {
	a.mu.Lock()
	a.val = v
	a.mu.Unlock()
}

func (a *atomic64) load() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.val
}

// NewWatchdog builds an empty watchdog.
func NewWatchdog(logger contracts.Logger) *Watchdog {
	return &Watchdog{pulses: make(map[string]*Pulse), logger: logger}
}

// Register creates and tracks a pulse for the named task.
func (w *Watchdog) Register(name string) *Pulse {
	p := NewPulse()
	w.mu.Lock()
	w.pulses[name] = p
	w.mu.Unlock()
	return p
}

// MemoryMB returns the most recently observed runtime.MemStats.Sys
// (memory the Go runtime has obtained from the OS) in megabytes.
func (w *Watchdog) MemoryMB() float64 {
	return w.memoryMB.load()
}

// Run checks memory and task liveness every WatchdogInterval until ctx
// is canceled. It performs no I/O that could block the real-time path.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watchdog) check() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	rssMB := float64(mem.Sys) / (1024 * 1024)
	w.memoryMB.store(rssMB)
	if rssMB > HighMemoryWarnMB && w.logger != nil {
		w.logger.Warn("high memory usage detected", w.logger.Field().Float64("rss_mb", rssMB))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for name, p := range w.pulses {
		if elapsed := p.elapsed(); elapsed > TaskLivenessTimeout && w.logger != nil {
			w.logger.Warn("task appears unresponsive",
				w.logger.Field().String("task", name),
				w.logger.Field().Duration("last_pulse", elapsed))
		}
	}
}
