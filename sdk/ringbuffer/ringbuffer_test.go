package ringbuffer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Scenario 4 from spec §8: wraparound keeps the most recent elements.
func TestPushOverwriteWraparound(t *testing.T) {
	p, c := New(4, MinSlotSize)
	for i := 0; i < 10; i++ {
		p.PushOverwrite([]byte{byte(i)})
	}

	buf := make([]byte, MinSlotSize)
	var got []byte
	for i := 0; i < 4; i++ {
		n, ok := c.TryPop(buf)
		require.True(t, ok)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, []byte{6, 7, 8, 9}, got)
}

func TestPushRejectsWhenFull(t *testing.T) {
	p, c := New(2, MinSlotSize)
	require.True(t, p.Push([]byte{1}))
	require.True(t, p.Push([]byte{2}))
	require.False(t, p.Push([]byte{3}))

	buf := make([]byte, MinSlotSize)
	n, ok := c.TryPop(buf)
	require.True(t, ok)
	require.Equal(t, []byte{1}, buf[:n])
}

func TestCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	_, c := New(5, MinSlotSize)
	require.Equal(t, 8, c.Capacity())
}

func TestOversizedMessageTruncated(t *testing.T) {
	p, c := New(2, MinSlotSize)
	big := make([]byte, MinSlotSize+50)
	for i := range big {
		big[i] = byte(i)
	}
	require.True(t, p.Push(big))

	buf := make([]byte, MinSlotSize+50)
	n, ok := c.TryPop(buf)
	require.True(t, ok)
	require.Equal(t, MinSlotSize, n)
	require.Equal(t, big[:MinSlotSize], buf[:n])
}

func TestPopBlocksUntilPush(t *testing.T) {
	p, c := New(2, MinSlotSize)
	done := make(chan struct{})
	result := make(chan []byte, 1)

	go func() {
		buf := make([]byte, MinSlotSize)
		n, ok := c.Pop(buf, done)
		if ok {
			result <- append([]byte(nil), buf[:n]...)
		} else {
			result <- nil
		}
	}()

	time.Sleep(10 * time.Millisecond)
	p.Push([]byte{42})

	select {
	case got := <-result:
		require.Equal(t, []byte{42}, got)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned")
	}
}

func TestPopUnblocksOnDone(t *testing.T) {
	_, c := New(2, MinSlotSize)
	done := make(chan struct{})
	result := make(chan bool, 1)

	go func() {
		buf := make([]byte, MinSlotSize)
		_, ok := c.Pop(buf, done)
		result <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	close(done)

	select {
	case ok := <-result:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop never unblocked")
	}
}

func TestDrain(t *testing.T) {
	p, c := New(8, MinSlotSize)
	for i := 0; i < 5; i++ {
		p.Push([]byte{byte(i)})
	}
	var seen []byte
	n := c.Drain(func(b []byte) { seen = append(seen, b[0]) })
	require.Equal(t, 5, n)
	require.Equal(t, []byte{0, 1, 2, 3, 4}, seen)
}

// Property: for any interleaving of one producer and one consumer, the
// consumer sees pushes in FIFO order, where PushOverwrite on a full ring
// drops only the oldest element still queued (spec §8). The ring is
// checked against a plain slice queue with the same drop rule.
func TestFIFOOrderUnderInterleavingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.SampledFrom([]int{2, 4, 8}).Draw(t, "capacity")
		p, c := New(capacity, MinSlotSize)

		pushCount := rapid.IntRange(0, 200).Draw(t, "pushCount")
		var model []byte
		var want []byte
		var popped []byte
		buf := make([]byte, MinSlotSize)

		for i := 0; i < pushCount; i++ {
			v := byte(i)
			if rapid.Bool().Draw(t, fmt.Sprintf("overwrite%d", i)) {
				p.PushOverwrite([]byte{v})
				if len(model) == c.Capacity() {
					model = model[1:]
				}
				model = append(model, v)
			} else {
				if p.Push([]byte{v}) {
					model = append(model, v)
				}
			}

			if rapid.Bool().Draw(t, fmt.Sprintf("pop%d", i)) {
				if n, ok := c.TryPop(buf); ok {
					if len(model) == 0 {
						t.Fatalf("popped %v from a ring the model says is empty", buf[:n])
					}
					popped = append(popped, buf[:n]...)
					want = append(want, model[0])
					model = model[1:]
				}
			}
		}
		n := c.Drain(func(b []byte) { popped = append(popped, b...) })
		_ = n
		want = append(want, model...)

		// popped must equal, element for element, what the model queue
		// yields: FIFO order, with only the oldest queued element ever
		// dropped.
		if len(popped) != len(want) {
			t.Fatalf("popped %d elements, want %d: popped=%v want=%v", len(popped), len(want), popped, want)
		}
		for i := range popped {
			if popped[i] != want[i] {
				t.Fatalf("FIFO order violated at %d: popped=%v want=%v", i, popped, want)
			}
		}
	})
}
