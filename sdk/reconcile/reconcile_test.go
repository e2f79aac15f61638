package reconcile

import (
	"testing"

	"github.com/hakolsound/midinet/sdk/state"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenerateAppliedToFreshStateYieldsTarget(t *testing.T) {
	target := state.New()
	for _, msg := range [][]byte{
		{0x90, 60, 100},
		{0x95, 64, 80},
		{0xB0, 1, 64},
		{0xC0, 42},
		{0xE0, 0, 96},
	} {
		target.Apply(msg)
	}

	fresh := state.New()
	for _, msg := range splitReconciliation(Generate(target.Snapshot())) {
		fresh.Apply(msg)
	}
	require.Equal(t, target.Snapshot(), fresh.Snapshot())
}

func TestGenerateOrdersCCsAscendingThenNotesAscending(t *testing.T) {
	target := state.New()
	target.Apply([]byte{0xB0, 10, 5})
	target.Apply([]byte{0xB0, 3, 7})
	target.Apply([]byte{0x90, 70, 10})
	target.Apply([]byte{0x90, 20, 10})

	out := channelSequence(0, &target.Snapshot()[0])

	require.Equal(t, []byte{
		0xB0, state.CCAllSoundOff, 0,
		0xB0, 3, 7,
		0xB0, 10, 5,
		0x90, 20, 10,
		0x90, 70, 10,
	}, out)
}

func TestAllNotesOffCoversAllSixteenChannels(t *testing.T) {
	out := AllNotesOff()
	for ch := byte(0); ch < 16; ch++ {
		status := 0xB0 | ch
		idx := int(ch) * 6
		require.Equal(t, byte(status), out[idx])
		require.Equal(t, byte(state.CCAllSoundOff), out[idx+1])
		require.Equal(t, byte(status), out[idx+3])
		require.Equal(t, byte(state.CCAllNotesOff), out[idx+4])
	}
	require.Len(t, out, 16*6)
}

// Property: for any reachable state, replaying its own reconciliation
// sequence into a fresh state reproduces it exactly (spec §8).
func TestGenerateReconciliationPropertyFreshStateLaw(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		target := state.New()
		n := rapid.IntRange(0, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			target.Apply(randomChannelVoiceMessage(t, i))
		}

		fresh := state.New()
		for _, msg := range splitReconciliation(Generate(target.Snapshot())) {
			fresh.Apply(msg)
		}
		require.Equal(t, target.Snapshot(), fresh.Snapshot())
	})
}

func randomChannelVoiceMessage(t *rapid.T, i int) []byte {
	channel := byte(rapid.IntRange(0, 15).Draw(t, "channel"))
	switch rapid.IntRange(0, 4).Draw(t, "kind") {
	case 0:
		return []byte{0x90 | channel, byte(rapid.IntRange(0, 127).Draw(t, "note")), byte(rapid.IntRange(1, 127).Draw(t, "vel"))}
	case 1:
		return []byte{0xB0 | channel, byte(rapid.IntRange(0, 119).Draw(t, "cc")), byte(rapid.IntRange(0, 127).Draw(t, "val"))}
	case 2:
		return []byte{0xC0 | channel, byte(rapid.IntRange(0, 127).Draw(t, "prog"))}
	case 3:
		return []byte{0xE0 | channel, byte(rapid.IntRange(0, 127).Draw(t, "lsb")), byte(rapid.IntRange(0, 127).Draw(t, "msb"))}
	default:
		return []byte{0xD0 | channel, byte(rapid.IntRange(0, 127).Draw(t, "press"))}
	}
}

// splitReconciliation breaks a flat reconciliation byte stream back into
// individual messages, mirroring how a receiver's midimsg.Split would.
func splitReconciliation(buf []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(buf); {
		status := buf[i]
		n := 3
		if status&0xF0 == 0xC0 || status&0xF0 == 0xD0 {
			n = 2
		}
		out = append(out, buf[i:i+n])
		i += n
	}
	return out
}
