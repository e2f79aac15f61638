// Package pipeline implements the per-message MIDI transform chain:
// channel filter, remap, transpose, velocity curve, and SysEx policy,
// as a pure function from one raw MIDI message to either a transformed
// message or "filtered" (spec §4.2). The pipeline never emits running
// status; every surviving message keeps its own status byte.
package pipeline

import (
	"sync/atomic"

	"github.com/hakolsound/midinet/sdk/midimsg"
)

// Pipeline holds a hot-reloadable Config and applies it to messages.
// It has no other state, so it is safe for concurrent use by multiple
// goroutines processing different messages at once.
type Pipeline struct {
	cfg atomic.Pointer[Config]
}

// New creates a Pipeline with the given initial config.
func New(cfg *Config) *Pipeline {
	p := &Pipeline{}
	p.cfg.Store(cfg)
	return p
}

// SetConfig hot-swaps the active configuration.
func (p *Pipeline) SetConfig(cfg *Config) {
	p.cfg.Store(cfg)
}

// Config returns the currently active configuration.
func (p *Pipeline) Config() *Config {
	return p.cfg.Load()
}

// Process runs one raw MIDI message through the pipeline. ok is false
// when the message was filtered (channel disabled, family disabled, an
// out-of-range transpose, or SysEx blocked); when ok is true, out is a
// well-formed message of the same family as msg.
func (p *Pipeline) Process(msg []byte) (out []byte, ok bool) {
	if len(msg) == 0 {
		return nil, false
	}
	cfg := p.cfg.Load()
	status := msg[0]

	if status >= 0xF0 {
		return p.processSystem(cfg, msg)
	}
	return p.processChannelVoice(cfg, msg)
}

// ProcessAll splits a burst into messages and runs each through
// Process, concatenating survivors in order — the broadcaster's step
// 2+3 and the receiver's step 3, in one call.
func (p *Pipeline) ProcessAll(burst []byte) []byte {
	var out []byte
	for _, msg := range midimsg.Split(burst) {
		if processed, ok := p.Process(msg); ok {
			out = append(out, processed...)
		}
	}
	return out
}

func (p *Pipeline) processSystem(cfg *Config, msg []byte) ([]byte, bool) {
	status := msg[0]
	if status == 0xF0 {
		if !cfg.SysexPassthrough || !cfg.Message.SysEx {
			return nil, false
		}
		return msg, true
	}
	if status >= 0xF8 {
		if !cfg.Message.SystemRealtime {
			return nil, false
		}
		return msg, true
	}
	// System common (0xF1-0xF7, excluding 0xF0): pass through unfiltered;
	// the spec names no per-family gate for these.
	return msg, true
}

func (p *Pipeline) processChannelVoice(cfg *Config, msg []byte) ([]byte, bool) {
	status := msg[0]
	channel := status & 0x0F
	kind := status & 0xF0

	if int(channel) >= len(cfg.ChannelFilter) || !cfg.ChannelFilter[channel] {
		return nil, false
	}
	if !familyAllowed(cfg, kind, msg) {
		return nil, false
	}

	out := append([]byte(nil), msg...)

	switch kind {
	case 0x80, 0x90:
		if len(out) < 3 {
			return nil, false
		}
		note := int(out[1]) + int(cfg.Transpose[channel])
		if note < 0 || note > 127 {
			return nil, false
		}
		out[1] = byte(note)
		if kind == 0x90 && out[2] > 0 {
			out[2] = applyCurve(cfg.VelocityCurve, out[2])
		}
	}

	remapped := cfg.ChannelRemap[channel]
	if remapped != IdentityRemap && remapped < 16 {
		out[0] = (out[0] & 0xF0) | (remapped & 0x0F)
	}
	return out, true
}

func familyAllowed(cfg *Config, kind byte, msg []byte) bool {
	switch kind {
	case 0x80:
		return cfg.Message.NoteOff
	case 0x90:
		// A Note On with velocity 0 is a Note Off in all but name.
		if len(msg) >= 3 && msg[2] == 0 {
			return cfg.Message.NoteOff
		}
		return cfg.Message.NoteOn
	case 0xA0:
		return cfg.Message.Aftertouch
	case 0xB0:
		return cfg.Message.ControlChange
	case 0xC0:
		return cfg.Message.ProgramChange
	case 0xD0:
		return cfg.Message.Aftertouch
	case 0xE0:
		return cfg.Message.PitchBend
	default:
		return true
	}
}
