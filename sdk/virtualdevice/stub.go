package virtualdevice

import (
	"sync"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// Stub is an in-memory Device used in tests and on platforms with no
// virtual-MIDI driver installed: Send appends to an internal buffer
// instead of reaching an OS endpoint, and Receive never yields anything
// on its own (tests push into it via Inject).
type Stub struct {
	mu       sync.Mutex
	identity contracts.DeviceIdentity
	created  bool
	sent     [][]byte
	feedback chan []byte
}

// NewStub returns an unopened Stub.
func NewStub() *Stub {
	return &Stub{feedback: make(chan []byte, 16)}
}

func (s *Stub) Create(identity contracts.DeviceIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.created = true
	return nil
}

func (s *Stub) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return ErrNotCreated
	}
	s.sent = append(s.sent, append([]byte(nil), data...))
	return nil
}

func (s *Stub) Receive() <-chan []byte { return s.feedback }

// Inject simulates upstream feedback from a downstream app, for tests.
func (s *Stub) Inject(data []byte) { s.feedback <- data }

func (s *Stub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = false
	return nil
}

func (s *Stub) SendAllOff() error { return s.Send(allOffSequence()) }

func (s *Stub) SilenceAndDetach() error {
	if err := s.SendAllOff(); err != nil {
		return err
	}
	// The stub has no OS handle to leave open; like the other backends it
	// marks itself detached, so later Sends report ErrNotCreated.
	s.mu.Lock()
	s.created = false
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of everything sent so far, for assertions.
func (s *Stub) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// Identity returns the identity passed to the last Create call.
func (s *Stub) Identity() contracts.DeviceIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}
