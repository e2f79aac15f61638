// Package inputmux implements the dual-controller active/passive input
// selector described in spec §4.3: two controllers each feed a ring
// buffer, and a single atomic index picks which one the broadcaster
// drains.
package inputmux

import (
	"sync"
	"sync/atomic"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// Source is anything capable of handing back raw MIDI bursts, modeled as
// the consumer half of a ring buffer.
type Source interface {
	TryPop(buf []byte) (int, bool)
	Pop(buf []byte, done <-chan struct{}) (int, bool)
	Drain(f func([]byte)) int
}

// Mux selects between exactly two controllers (index 0 = primary,
// index 1 = secondary) by index, with atomics guarding the selector so
// the broadcaster can read it without a lock.
type Mux struct {
	sources      [2]Source
	active       atomic.Int32
	forceJournal atomic.Bool
	switchSignal *contracts.Broadcast[int]
	health       [2]*contracts.Broadcast[contracts.HealthEvent]
	logger       contracts.Logger

	// consumerLock[i] is held for the duration of any call into
	// sources[i] (TryPop/Pop/Drain), so a Pop goroutine abandoned
	// mid-wait by a switch and Switch's own Drain of that same source
	// can never run concurrently — the SPSC guarantee each Source
	// requires of its single consumer.
	consumerLock [2]sync.Mutex
}

// New creates a Mux over two sources, primary active by default.
func New(primary, secondary Source, logger contracts.Logger) *Mux {
	m := &Mux{
		sources:      [2]Source{primary, secondary},
		switchSignal: contracts.NewBroadcast[int](),
		logger:       logger,
	}
	for i := range m.health {
		m.health[i] = contracts.NewBroadcast[contracts.HealthEvent]()
	}
	return m
}

// ActiveIndex reports which controller is currently selected.
func (m *Mux) ActiveIndex() int { return int(m.active.Load()) }

// Switch flips the active index, raises force_journal so the next
// outbound packet carries a full state snapshot, and wakes any waiter
// blocked in Pop so it abandons the old consumer mid-wait.
func (m *Mux) Switch(to int) {
	if to < 0 || to > 1 {
		return
	}
	m.active.Store(int32(to))
	m.forceJournal.Store(true)
	m.switchSignal.Publish(to)
	if m.logger != nil {
		m.logger.Info("input mux switched", m.logger.Field().Int("active", to))
	}
	// The freshly inactive side may hold stale bursts; drop them so a
	// later switch-back doesn't replay old data. Locking here blocks
	// until any Pop goroutine still abandoning this source has actually
	// returned, so Drain never races that goroutine's own TryPop call.
	other := 1 - to
	m.consumerLock[other].Lock()
	m.sources[other].Drain(func([]byte) {})
	m.consumerLock[other].Unlock()
}

// ConsumeForceJournal reports and clears the force_journal flag; the
// broadcaster calls this once per outbound packet.
func (m *Mux) ConsumeForceJournal() bool {
	return m.forceJournal.Swap(false)
}

// TryPop drains a burst from whichever controller is currently active.
func (m *Mux) TryPop(buf []byte) (int, bool) {
	idx := m.ActiveIndex()
	m.consumerLock[idx].Lock()
	defer m.consumerLock[idx].Unlock()
	return m.sources[idx].TryPop(buf)
}

type popResult struct {
	n  int
	ok bool
}

// Pop blocks until a burst is available from the currently active
// source, the active source switches, or done fires. On switch it
// abandons the old source mid-wait and re-enters on the new one, per
// spec §4.3's "wakes on either data from the current active consumer
// or a switch notification."
func (m *Mux) Pop(buf []byte, done <-chan struct{}) (int, bool) {
	for {
		active := m.ActiveIndex()
		switchCh, cancelSwitch := m.switchSignal.Subscribe(1)
		localDone := make(chan struct{})
		resultCh := make(chan popResult, 1)

		go func(src Source, idx int) {
			m.consumerLock[idx].Lock()
			n, ok := src.Pop(buf, localDone)
			m.consumerLock[idx].Unlock()
			resultCh <- popResult{n, ok}
		}(m.sources[active], active)

		select {
		case r := <-resultCh:
			cancelSwitch()
			return r.n, r.ok
		case <-switchCh:
			close(localDone)
			cancelSwitch()
			// Wait for the abandoned goroutine to actually return (and
			// release consumerLock[active]) before touching buf again
			// or letting a new goroutine write into it concurrently.
			<-resultCh
			continue
		case <-done:
			close(localDone)
			cancelSwitch()
			<-resultCh
			return 0, false
		}
	}
}

// HealthEvents returns the broadcast channel of health events for the
// controller at the given index (0 or 1).
func (m *Mux) HealthEvents(index int) *contracts.Broadcast[contracts.HealthEvent] {
	return m.health[index]
}

// ReportHealth is called by a controller reader goroutine whenever its
// health state changes. If the failing input is currently active, it
// triggers a switch to the other input; otherwise the failure is merely
// logged as "no redundancy available right now".
func (m *Mux) ReportHealth(index int, ev contracts.HealthEvent) {
	m.health[index].Publish(ev)
	if ev.State == contracts.Active {
		return
	}
	if m.ActiveIndex() != index {
		if m.logger != nil {
			m.logger.Warn("inactive controller unhealthy, no redundancy switch needed",
				m.logger.Field().Int("index", index),
				m.logger.Field().String("message", ev.Message))
		}
		return
	}
	other := 1 - index
	if m.logger != nil {
		m.logger.Warn("active controller unhealthy, switching",
			m.logger.Field().Int("index", index),
			m.logger.Field().String("message", ev.Message))
	}
	m.Switch(other)
}
