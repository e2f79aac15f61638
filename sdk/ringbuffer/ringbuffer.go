// Package ringbuffer implements the bounded, pre-allocated,
// lock-free single-producer/single-consumer ring described in spec
// §4.1: the zero-alloc hand-off from a blocking MIDI reader thread to
// the async broadcaster.
package ringbuffer

import (
	"sync/atomic"
)

// MinSlotSize is the minimum slot size, sufficient for any
// non-pathological MIDI or SysEx chunk. Larger pushes are truncated to
// the configured slot size; this is documented, not an error.
const MinSlotSize = 256

// noCopy lets `go vet` flag accidental copies of Producer/Consumer,
// which must never be duplicated once split from New.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// cacheLinePad is sized to push head and tail onto separate cache
// lines, avoiding false sharing between the producer and consumer
// goroutines that touch them independently.
type cacheLinePad [64 - 8]byte

type ring struct {
	slotSize int
	mask     uint64
	slots    []byte
	lens     []uint32

	head     atomic.Uint64
	_        cacheLinePad
	tail     atomic.Uint64
	_        cacheLinePad

	notify chan struct{}
}

// Producer is the write half of a ring buffer, created once by New and
// never cloned.
type Producer struct {
	noCopy
	r *ring
}

// Consumer is the read half of a ring buffer, created once by New and
// never cloned.
type Consumer struct {
	noCopy
	r *ring
}

// New creates a ring buffer with the given capacity (rounded up to the
// next power of two) and per-slot size (raised to MinSlotSize if
// smaller), returning its producer and consumer halves.
func New(capacity int, slotSize int) (*Producer, *Consumer) {
	if slotSize < MinSlotSize {
		slotSize = MinSlotSize
	}
	capacity = nextPowerOfTwo(capacity)

	r := &ring{
		slotSize: slotSize,
		mask:     uint64(capacity - 1),
		slots:    make([]byte, capacity*slotSize),
		lens:     make([]uint32, capacity),
		notify:   make(chan struct{}, 1),
	}
	return &Producer{r: r}, &Consumer{r: r}
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (r *ring) capacity() uint64 {
	return r.mask + 1
}

func (r *ring) occupancy() uint64 {
	head := r.head.Load()
	tail := r.tail.Load() // Acquire via atomic.Load semantics on amd64/arm64 Go runtime
	return head - tail
}

func (r *ring) slotAt(index uint64) []byte {
	i := index & r.mask
	start := i * uint64(r.slotSize)
	return r.slots[start : start+uint64(r.slotSize)]
}

func (r *ring) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *ring) copyIn(index uint64, data []byte) {
	slot := r.slotAt(index)
	n := copy(slot, data) // truncates to slotSize, by design
	r.lens[index&r.mask] = uint32(n)
}

// Push copies data into the next free slot and publishes it. It
// returns false without blocking if the ring is full.
func (p *Producer) Push(data []byte) bool {
	r := p.r
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= r.capacity() {
		return false
	}
	r.copyIn(head, data)
	r.head.Store(head + 1)
	r.signal()
	return true
}

// PushOverwrite copies data into the next slot, first dropping the
// oldest element if the ring is full. It never blocks: real-time
// priority favors dropping stale data over stalling the read thread.
func (p *Producer) PushOverwrite(data []byte) {
	r := p.r
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= r.capacity() {
		r.tail.Store(tail + 1)
	}
	r.copyIn(head, data)
	r.head.Store(head + 1)
	r.signal()
}

// Len reports the current occupancy.
func (p *Producer) Len() int { return int(p.r.occupancy()) }

// Len reports the current occupancy.
func (c *Consumer) Len() int { return int(c.r.occupancy()) }

// Capacity reports the ring's slot count.
func (c *Consumer) Capacity() int { return int(c.r.capacity()) }

// TryPop is the non-blocking pop variant: it returns false immediately
// if the ring is empty, without touching buf.
func (c *Consumer) TryPop(buf []byte) (int, bool) {
	r := c.r
	tail := r.tail.Load()
	head := r.head.Load()
	if tail >= head {
		return 0, false
	}
	n := copy(buf, r.slotAt(tail)[:r.lens[tail&r.mask]])
	r.tail.Store(tail + 1)
	return n, true
}

// Pop blocks until a message is available (or ctx-style cancellation
// via the done channel is signaled) and copies it into buf.
func (c *Consumer) Pop(buf []byte, done <-chan struct{}) (int, bool) {
	for {
		if n, ok := c.TryPop(buf); ok {
			return n, true
		}
		select {
		case <-c.r.notify:
		case <-done:
			return 0, false
		}
	}
}

// Drain pops every currently available message, invoking f with each.
// f must not retain the slice it's given past the call.
func (c *Consumer) Drain(f func([]byte)) int {
	buf := make([]byte, c.r.slotSize)
	n := 0
	for {
		l, ok := c.TryPop(buf)
		if !ok {
			return n
		}
		f(buf[:l])
		n++
	}
}
