// Package probe watches the availability of remote collaborators from the
// client side. Each registered probe runs in its own background goroutine at
// a configurable interval, with failure/success thresholds so a single
// dropped request does not flip the connectivity banner.
package probe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Func checks one collaborator. It returns nil when reachable.
type Func func(ctx context.Context) error

// target holds the configuration and runtime state for a single probe.
//
// Concurrency model: run() is called from exactly one goroutine (the ticker),
// so the consecutive counters need no synchronization. The reachable flag and
// lastErr are read from arbitrary goroutines and use atomics.
type target struct {
	name             string
	timeout          time.Duration
	fn               Func
	failureThreshold int
	successThreshold int

	reachable atomic.Bool
	lastErr   atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (t *target) run(ctx context.Context, onChange func(name string, up bool)) {
	probeCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := t.fn(probeCtx)
	t.lastErr.Store(&err)

	if err != nil {
		t.consecutiveOK = 0
		t.consecutiveFails++
		if t.consecutiveFails >= t.failureThreshold && t.reachable.CompareAndSwap(true, false) {
			onChange(t.name, false)
		}
		return
	}

	t.consecutiveFails = 0
	t.consecutiveOK++
	if t.consecutiveOK >= t.successThreshold && t.reachable.CompareAndSwap(false, true) {
		onChange(t.name, true)
	}
}

func (t *target) lastError() error {
	if p := t.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Monitor runs registered probes and answers whether every collaborator is
// currently reachable.
type Monitor struct {
	// onChange fires on every reachability transition. Set before Start.
	onChange func(name string, up bool)

	// mu protects targets and cancel. Registration happens before Start.
	mu      sync.RWMutex
	targets []*target
	cancel  context.CancelFunc
}

// New creates a Monitor. onChange may be nil.
func New(onChange func(name string, up bool)) *Monitor {
	if onChange == nil {
		onChange = func(string, bool) {}
	}
	return &Monitor{onChange: onChange}
}

// Add registers a probe. Targets start out reachable until proven otherwise.
func (m *Monitor) Add(name string, timeout time.Duration, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &target{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	t.reachable.Store(true)
	m.targets = append(m.targets, t)
}

// Start launches one goroutine per registered probe. Each probe fires once
// immediately, then on every interval tick until Stop or context cancellation.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	targets := make([]*target, len(m.targets))
	copy(targets, m.targets)
	m.mu.Unlock()

	for _, t := range targets {
		go m.loop(ctx, t, interval)
	}
}

func (m *Monitor) loop(ctx context.Context, t *target, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.run(ctx, m.onChange)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.run(ctx, m.onChange)
		}
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Healthy reports whether every target is currently reachable.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	targets := m.targets
	m.mu.RUnlock()

	for _, t := range targets {
		if !t.reachable.Load() {
			return false
		}
	}
	return true
}

// Failures returns the name and last error message of every unreachable
// target.
func (m *Monitor) Failures() map[string]string {
	m.mu.RLock()
	targets := make([]*target, len(m.targets))
	copy(targets, m.targets)
	m.mu.RUnlock()

	failures := make(map[string]string)
	for _, t := range targets {
		if t.reachable.Load() {
			continue
		}
		if err := t.lastError(); err != nil {
			failures[t.name] = err.Error()
		} else {
			failures[t.name] = "unreachable"
		}
	}
	return failures
}
