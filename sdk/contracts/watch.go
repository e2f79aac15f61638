package contracts

import "sync"

// Watch holds the single latest value of T and lets readers block until
// it changes, mirroring the "watch channel" the spec uses for role and
// unicast-target-list updates: many readers, one writer, no history.
type Watch[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	changed *sync.Cond
}

// NewWatch creates a Watch seeded with the given initial value.
func NewWatch[T any](initial T) *Watch[T] {
	w := &Watch[T]{value: initial}
	w.changed = sync.NewCond(&w.mu)
	return w
}

// Get returns the current value.
func (w *Watch[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set stores a new value and wakes any goroutine blocked in Next.
func (w *Watch[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	w.version++
	w.mu.Unlock()
	w.changed.Broadcast()
}

// Next blocks until the value changes from what the caller last saw
// (identified by the opaque version returned alongside it), then
// returns the new value and its version.
func (w *Watch[T]) Next(lastVersion uint64) (T, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.version == lastVersion {
		w.changed.Wait()
	}
	return w.value, w.version
}

// Version returns the current value's version, for an initial Next call.
func (w *Watch[T]) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}
