package state

import (
	"testing"

	"github.com/hakolsound/midinet/sdk/midimsg"
	"github.com/stretchr/testify/require"
)

// Scenario 1 from spec §8: state roundtrip through the journal.
func TestStateRoundTrip(t *testing.T) {
	s := New()
	msgs := midimsg.Split([]byte{
		0x90, 60, 100,
		0x95, 64, 80,
		0xB0, 1, 64,
		0xC0, 42,
		0xE0, 0, 96,
	})
	for _, m := range msgs {
		s.Apply(m)
	}

	snap := s.Snapshot()
	require.EqualValues(t, 100, snap[0].Notes[60])
	require.EqualValues(t, 80, snap[5].Notes[64])
	require.EqualValues(t, 64, snap[0].CC[1])
	require.EqualValues(t, 42, snap[0].Program)
	require.EqualValues(t, 12288, snap[0].PitchBend)

	encoded := EncodeJournal(snap)
	decoded, err := DecodeJournal(encoded)
	require.NoError(t, err)
	require.Equal(t, snap, decoded)
}

// Scenario 2 from spec §8: All Notes Off only clears the one channel.
func TestAllNotesOffScopedToChannel(t *testing.T) {
	s := New()
	for _, m := range midimsg.Split([]byte{
		0x90, 10, 100,
		0x90, 20, 90,
		0x91, 30, 80, // channel 1, untouched below
		0xB0, 0x7B, 0x00,
	}) {
		s.Apply(m)
	}
	snap := s.Snapshot()
	require.Equal(t, 0, snap[0].ActiveNoteCount())
	require.Equal(t, 1, snap[1].ActiveNoteCount())
}

func TestNoteOnVelocityZeroIsNoteOff(t *testing.T) {
	s := New()
	s.Apply([]byte{0x90, 60, 100})
	require.Equal(t, 1, s.Snapshot()[0].ActiveNoteCount())
	changed := s.Apply([]byte{0x90, 60, 0})
	require.True(t, changed)
	require.Equal(t, 0, s.Snapshot()[0].ActiveNoteCount())
}

func TestApplyIdempotentWhenUnchanged(t *testing.T) {
	s := New()
	require.True(t, s.Apply([]byte{0xB0, 7, 100}))
	require.False(t, s.Apply([]byte{0xB0, 7, 100}))
}

func TestPitchBendDefaultCenter(t *testing.T) {
	s := New()
	require.EqualValues(t, PitchBendCenter, s.Snapshot()[0].PitchBend)
}

func TestReset(t *testing.T) {
	s := New()
	s.Apply([]byte{0x90, 1, 100})
	s.Reset()
	require.Equal(t, 0, s.Snapshot()[0].ActiveNoteCount())
	require.EqualValues(t, PitchBendCenter, s.Snapshot()[0].PitchBend)
}
