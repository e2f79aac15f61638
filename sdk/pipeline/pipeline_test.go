package pipeline

import (
	"testing"

	"github.com/hakolsound/midinet/sdk/midimsg"
	"github.com/stretchr/testify/require"
)

// Scenario 3 from spec §8: transpose out of range filters the message.
func TestTransposeOutOfRange(t *testing.T) {
	cfg := NewConfig()
	cfg.Transpose[0] = 48
	p := New(cfg)

	_, ok := p.Process([]byte{0x90, 100, 100})
	require.False(t, ok)

	cfg2 := NewConfig()
	cfg2.Transpose[0] = 12
	p.SetConfig(cfg2)

	out, ok := p.Process([]byte{0x90, 60, 100})
	require.True(t, ok)
	require.Equal(t, []byte{0x90, 72, 100}, out)
}

func TestChannelFilterDropsWholeChannel(t *testing.T) {
	cfg := NewConfig()
	cfg.ChannelFilter[3] = false
	p := New(cfg)

	_, ok := p.Process([]byte{0x93, 60, 100})
	require.False(t, ok)

	_, ok = p.Process([]byte{0x90, 60, 100})
	require.True(t, ok)
}

func TestMessageFilterFamily(t *testing.T) {
	cfg := NewConfig()
	cfg.Message.ControlChange = false
	p := New(cfg)

	_, ok := p.Process([]byte{0xB0, 7, 100})
	require.False(t, ok)

	out, ok := p.Process([]byte{0x90, 60, 100})
	require.True(t, ok)
	require.Equal(t, byte(0x90), out[0])
}

func TestChannelRemap(t *testing.T) {
	cfg := NewConfig()
	cfg.ChannelRemap[0] = 5
	p := New(cfg)

	out, ok := p.Process([]byte{0x90, 60, 100})
	require.True(t, ok)
	require.Equal(t, byte(0x95), out[0])
}

func TestSysexPolicyAndPassThroughUnchanged(t *testing.T) {
	cfg := NewConfig()
	cfg.SysexPassthrough = false
	p := New(cfg)

	sysex := []byte{0xF0, 0x7E, 0x00, 0xF7}
	_, ok := p.Process(sysex)
	require.False(t, ok)

	cfg2 := NewConfig()
	p.SetConfig(cfg2)
	out, ok := p.Process(sysex)
	require.True(t, ok)
	require.Equal(t, sysex, out)
}

func TestSystemRealtimeFilter(t *testing.T) {
	cfg := NewConfig()
	cfg.Message.SystemRealtime = false
	p := New(cfg)

	_, ok := p.Process([]byte{0xF8})
	require.False(t, ok)
}

// Idempotence + same-family law from spec §8.
func TestProcessIdempotentAndSameFamily(t *testing.T) {
	p := New(NewConfig())
	msg := []byte{0x90, 60, 100}
	out1, ok := p.Process(msg)
	require.True(t, ok)
	out2, ok := p.Process(out1)
	require.True(t, ok)
	require.Equal(t, out1, out2)
	require.Equal(t, midimsg.FamilyOf(msg[0]), midimsg.FamilyOf(out1[0]))
}

func TestProcessAllConcatenatesSurvivors(t *testing.T) {
	p := New(NewConfig())
	burst := []byte{0x90, 60, 100, 0xB0, 1, 64, 0x80, 60, 0}
	out := p.ProcessAll(burst)
	require.Equal(t, burst, out) // identity config: nothing filtered or altered
}

func TestVelocityCurvesMonotonicAndClamped(t *testing.T) {
	for _, curve := range []VelocityCurve{CurveLinear, CurveLogarithmic, CurveExponential, CurveSCurve} {
		prev := byte(0)
		for v := byte(1); v <= 127; v++ {
			out := applyCurve(curve, v)
			require.GreaterOrEqual(t, out, byte(1))
			require.LessOrEqual(t, out, byte(127))
			require.GreaterOrEqual(t, out, prev, "curve %v must be monotonic", curve)
			prev = out
		}
		require.EqualValues(t, 0, applyCurve(curve, 0))
	}
}
