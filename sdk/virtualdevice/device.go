// Package virtualdevice defines the VirtualMidiDevice capability (spec
// §4.10) and its Stub/Bridge variants. OS-specific local-port backends
// (ALSA, CoreMIDI, teVirtualMIDI, Windows MIDI Services) are out of
// scope per spec §1; this package defines the trait every backend
// satisfies plus three backends: Stub, Bridge, and the gomidi-based
// GoMidi port wrapper.
package virtualdevice

import (
	"fmt"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// Device is the capability every virtual MIDI endpoint backend
// satisfies, named as a tagged variant in spec §9:
// {Alsa, CoreMidi, TeVirtualMidi, MidiServices, Bridge, Stub}.
type Device interface {
	Create(identity contracts.DeviceIdentity) error
	Send(data []byte) error
	Receive() <-chan []byte
	Close() error
	SendAllOff() error
	SilenceAndDetach() error
}

// Kind names which tagged variant a Device is, for logging and the
// health snapshot.
type Kind string

const (
	KindAlsa          Kind = "alsa"
	KindCoreMidi      Kind = "coremidi"
	KindTeVirtualMidi Kind = "tevirtualmidi"
	KindMidiServices  Kind = "midiservices"
	KindBridge        Kind = "bridge"
	KindStub          Kind = "stub"
)

// allOffSequence is CC 120 then CC 123 on all 16 channels, spec §4.10's
// send_all_off.
func allOffSequence() []byte {
	var out []byte
	for ch := byte(0); ch < 16; ch++ {
		status := 0xB0 | ch
		out = append(out, byte(status), 120, 0, byte(status), 123, 0)
	}
	return out
}

// ErrNotCreated is returned by Send (and so by SendAllOff and
// SilenceAndDetach) on a Device whose Create has not yet succeeded or
// that has since been closed or detached.
var ErrNotCreated = fmt.Errorf("virtualdevice: device not created")
