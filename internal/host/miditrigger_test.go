package host

import (
	"testing"
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

func TestMIDITriggerFiresOnMatchingNote(t *testing.T) {
	f := NewFailoverManager(protocol.RolePrimary, time.Hour, nil)
	trig := NewMIDITrigger(config.MIDITrigger{Channel: 0, Note: 64, VelocityThreshold: 100}, f, nil)

	trig.Observe([]byte{0x90, 64, 120})
	require.Equal(t, protocol.RoleStandby, f.Role().Get())
}

func TestMIDITriggerIgnoresBelowThreshold(t *testing.T) {
	f := NewFailoverManager(protocol.RolePrimary, time.Hour, nil)
	trig := NewMIDITrigger(config.MIDITrigger{Channel: 0, Note: 64, VelocityThreshold: 100}, f, nil)

	trig.Observe([]byte{0x90, 64, 50})
	require.Equal(t, protocol.RolePrimary, f.Role().Get())
}

func TestMIDITriggerRequiresGuardNoteHeld(t *testing.T) {
	guard := uint8(10)
	f := NewFailoverManager(protocol.RolePrimary, time.Hour, nil)
	trig := NewMIDITrigger(config.MIDITrigger{Channel: 0, Note: 64, VelocityThreshold: 100, GuardNote: &guard}, f, nil)

	trig.Observe([]byte{0x90, 64, 120})
	require.Equal(t, protocol.RolePrimary, f.Role().Get(), "should not fire without the guard note held")

	trig.Observe([]byte{0x90, 10, 127})
	trig.Observe([]byte{0x90, 64, 120})
	require.Equal(t, protocol.RoleStandby, f.Role().Get())
}

func TestMIDITriggerGuardReleaseDisarms(t *testing.T) {
	guard := uint8(10)
	f := NewFailoverManager(protocol.RolePrimary, time.Hour, nil)
	trig := NewMIDITrigger(config.MIDITrigger{Channel: 0, Note: 64, VelocityThreshold: 100, GuardNote: &guard}, f, nil)

	trig.Observe([]byte{0x90, 10, 127})
	trig.Observe([]byte{0x80, 10, 0})
	trig.Observe([]byte{0x90, 64, 120})
	require.Equal(t, protocol.RolePrimary, f.Role().Get())
}
