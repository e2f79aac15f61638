package virtualdevice

import (
	"fmt"
	"sync"

	"github.com/hakolsound/midinet/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// GoMidi is a real OS-visible virtual MIDI port backed by
// gitlab.com/gomidi/midi/v2, used where no teacher-specific backend
// (devdarwin/devwindows) is available for local-port *output* — e.g. an
// ALSA virtual port on Linux (spec §9: "implementers pick one backend
// per target OS").
type GoMidi struct {
	out drivers.Out

	mu       sync.Mutex
	identity contracts.DeviceIdentity
	created  bool
	send     func(midi.Message) error
	feedback chan []byte
}

// NewGoMidi wraps an already-resolved output port (via midi.FindOutPort
// or a driver's Outs()). The port is opened lazily, on Create.
func NewGoMidi(out drivers.Out) *GoMidi {
	return &GoMidi{out: out, feedback: make(chan []byte, 64)}
}

func (g *GoMidi) Create(identity contracts.DeviceIdentity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.out.Open(); err != nil {
		return fmt.Errorf("virtualdevice: open port: %w", err)
	}
	send, err := midi.SendTo(g.out)
	if err != nil {
		return fmt.Errorf("virtualdevice: bind sender: %w", err)
	}
	g.send = send
	g.identity = identity
	g.created = true
	return nil
}

func (g *GoMidi) Send(data []byte) error {
	g.mu.Lock()
	created := g.created
	sendFn := g.send
	g.mu.Unlock()
	if !created {
		return ErrNotCreated
	}
	return sendFn(midi.Message(data))
}

func (g *GoMidi) Receive() <-chan []byte { return g.feedback }

func (g *GoMidi) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = false
	return g.out.Close()
}

func (g *GoMidi) SendAllOff() error { return g.Send(allOffSequence()) }

func (g *GoMidi) SilenceAndDetach() error {
	if err := g.SendAllOff(); err != nil {
		return err
	}
	// Leave the OS handle open; the OS reaps it on process exit, per
	// spec §4.10's silence_and_detach semantics.
	g.mu.Lock()
	g.created = false
	g.mu.Unlock()
	return nil
}
