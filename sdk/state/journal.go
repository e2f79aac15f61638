package state

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedJournal is returned when a journal buffer ends mid-section.
var ErrTruncatedJournal = errors.New("state: truncated journal")

const (
	flagNotes = 1 << iota
	flagCC
	flagProgram
	flagPitchBend
	flagChannelPressure
)

// EncodeJournal produces the compact, non-default-only snapshot
// described in spec §3: a u16 channel mask followed by one section per
// set bit, each itself `flags u8` followed by the sections that flag
// enables.
func EncodeJournal(channels [16]ChannelState) []byte {
	var mask uint16
	channelFlags := make([]byte, 16)
	for i := range channels {
		f := sectionFlags(&channels[i])
		channelFlags[i] = f
		if f != 0 {
			mask |= 1 << uint(i)
		}
	}

	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, mask)

	for i := 0; i < 16; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		ch := &channels[i]
		f := channelFlags[i]
		buf = append(buf, f)

		if f&flagNotes != 0 {
			buf = append(buf, encodeNotes(ch)...)
		}
		if f&flagCC != 0 {
			buf = append(buf, encodeCC(ch)...)
		}
		if f&flagProgram != 0 {
			buf = append(buf, ch.Program)
		}
		if f&flagPitchBend != 0 {
			var pb [2]byte
			binary.BigEndian.PutUint16(pb[:], ch.PitchBend)
			buf = append(buf, pb[:]...)
		}
		if f&flagChannelPressure != 0 {
			buf = append(buf, ch.ChannelPressure)
		}
	}
	return buf
}

func sectionFlags(ch *ChannelState) byte {
	var f byte
	if hasAnyNote(ch) {
		f |= flagNotes
	}
	if hasAnyCC(ch) {
		f |= flagCC
	}
	if ch.Program != 0 {
		f |= flagProgram
	}
	if ch.PitchBend != PitchBendCenter {
		f |= flagPitchBend
	}
	if ch.ChannelPressure != 0 {
		f |= flagChannelPressure
	}
	return f
}

func hasAnyNote(ch *ChannelState) bool {
	for _, v := range ch.Notes {
		if v > 0 {
			return true
		}
	}
	return false
}

func hasAnyCC(ch *ChannelState) bool {
	for _, v := range ch.CC {
		if v != 0 {
			return true
		}
	}
	return false
}

func encodeNotes(ch *ChannelState) []byte {
	var pairs []byte
	count := 0
	for note, vel := range ch.Notes {
		if vel == 0 {
			continue
		}
		pairs = append(pairs, byte(note), vel)
		count++
	}
	return append([]byte{byte(count)}, pairs...)
}

func encodeCC(ch *ChannelState) []byte {
	var pairs []byte
	count := 0
	for cc, val := range ch.CC {
		if val == 0 {
			continue
		}
		pairs = append(pairs, byte(cc), val)
		count++
	}
	return append([]byte{byte(count)}, pairs...)
}

// DecodeJournal reverses EncodeJournal, returning a full 16-channel
// state with every channel not named in the mask left at its default.
func DecodeJournal(buf []byte) ([16]ChannelState, error) {
	var channels [16]ChannelState
	for i := range channels {
		channels[i] = freshChannel()
	}

	if len(buf) < 2 {
		return channels, ErrTruncatedJournal
	}
	mask := binary.BigEndian.Uint16(buf[0:2])
	off := 2

	for i := 0; i < 16; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if len(buf) <= off {
			return channels, ErrTruncatedJournal
		}
		f := buf[off]
		off++
		ch := &channels[i]

		if f&flagNotes != 0 {
			newOff, err := decodePairs(buf, off, ch.Notes[:])
			if err != nil {
				return channels, err
			}
			off = newOff
		}
		if f&flagCC != 0 {
			newOff, err := decodePairs(buf, off, ch.CC[:])
			if err != nil {
				return channels, err
			}
			off = newOff
		}
		if f&flagProgram != 0 {
			if len(buf) <= off {
				return channels, ErrTruncatedJournal
			}
			ch.Program = buf[off]
			off++
		}
		if f&flagPitchBend != 0 {
			if len(buf) < off+2 {
				return channels, ErrTruncatedJournal
			}
			ch.PitchBend = binary.BigEndian.Uint16(buf[off : off+2])
			off += 2
		}
		if f&flagChannelPressure != 0 {
			if len(buf) <= off {
				return channels, ErrTruncatedJournal
			}
			ch.ChannelPressure = buf[off]
			off++
		}
	}
	return channels, nil
}

func decodePairs(buf []byte, off int, dst []byte) (int, error) {
	if len(buf) <= off {
		return off, ErrTruncatedJournal
	}
	count := int(buf[off])
	off++
	if len(buf) < off+count*2 {
		return off, ErrTruncatedJournal
	}
	for i := 0; i < count; i++ {
		idx := buf[off]
		val := buf[off+1]
		off += 2
		if int(idx) < len(dst) {
			dst[idx] = val
		}
	}
	return off, nil
}
