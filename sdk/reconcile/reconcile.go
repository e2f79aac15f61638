// Package reconcile generates the minimal legal MIDI sequence that
// drives a receiver from "unknown" to a target MidiState, per spec §4.6.
// It is used on packet-loss recovery (journal-driven), on failover
// (All-Notes-Off safety), and on explicit reconcile requests.
package reconcile

import "github.com/hakolsound/midinet/sdk/state"

// Generate returns, for each of the 16 channels in order, the ordered
// byte sequence that drives a fresh channel to match target:
//  1. CC 120 0 (All Sound Off) to silence anything held.
//  2. Every non-zero CC in ascending order, skipping 120-127.
//  3. Program change, if non-zero.
//  4. Pitch bend, if not centered.
//  5. Channel pressure, if non-zero.
//  6. Note On for every held note, in ascending note order.
func Generate(target [16]state.ChannelState) []byte {
	var out []byte
	for ch := 0; ch < 16; ch++ {
		out = append(out, channelSequence(byte(ch), &target[ch])...)
	}
	return out
}

// GenerateChannel is Generate for a single channel, used by focus and
// failover paths that only need to resync one channel at a time.
func GenerateChannel(channel byte, target *state.ChannelState) []byte {
	return channelSequence(channel, target)
}

func channelSequence(channel byte, target *state.ChannelState) []byte {
	status := 0xB0 | channel
	out := []byte{byte(status), state.CCAllSoundOff, 0}

	for cc := 0; cc < 120; cc++ {
		if v := target.CC[cc]; v != 0 {
			out = append(out, byte(status), byte(cc), v)
		}
	}

	if target.Program != 0 {
		out = append(out, byte(0xC0|channel), target.Program)
	}

	if target.PitchBend != state.PitchBendCenter {
		out = append(out, byte(0xE0|channel), byte(target.PitchBend&0x7F), byte(target.PitchBend>>7))
	}

	if target.ChannelPressure != 0 {
		out = append(out, byte(0xD0|channel), target.ChannelPressure)
	}

	noteStatus := 0x90 | channel
	for note := 0; note < 128; note++ {
		if v := target.Notes[note]; v > 0 {
			out = append(out, byte(noteStatus), byte(note), v)
		}
	}

	return out
}

// AllNotesOff returns the failover-safety burst: CC 120 then CC 123 on
// all 16 channels, used before forwarding a new active input's payload
// (spec §4.7) and on focus handoff.
func AllNotesOff() []byte {
	var out []byte
	for ch := byte(0); ch < 16; ch++ {
		status := 0xB0 | ch
		out = append(out, byte(status), state.CCAllSoundOff, 0, byte(status), state.CCAllNotesOff, 0)
	}
	return out
}
