package bridge

import "github.com/hakolsound/midinet/sdk/midimsg"

// PackUMP converts a burst of MIDI 1.0 bytes into 64-bit Universal MIDI
// Packets (spec §9's resolved Open Question): the source implementation
// this module was distilled from left bytes 4-5 of a SysEx chunk's
// second data word unwritten. Each message here becomes one or more
// UMPs, each carrying at most 6 SysEx data bytes split across
// word0[15:0] and word1[31:0] so no byte is silently dropped.
//
// Group 0, message type 0x3 (Data, 64-bit) is used for SysEx; channel
// voice messages use message type 0x2 (MIDI 1.0 Channel Voice).
func PackUMP(burst []byte) [][2]uint32 {
	var out [][2]uint32
	for _, msg := range midimsg.Split(burst) {
		if len(msg) == 0 {
			continue
		}
		if msg[0] == 0xF0 {
			out = append(out, packSysEx(msg)...)
			continue
		}
		out = append(out, packChannelVoice(msg))
	}
	return out
}

// packChannelVoice packs a channel-voice message (status + up to 2 data
// bytes) into one UMP: word0 holds the group/type/status/data0 nibbles,
// word1 holds data1 in its top byte.
func packChannelVoice(msg []byte) [2]uint32 {
	status := msg[0]
	var d0, d1 byte
	if len(msg) > 1 {
		d0 = msg[1]
	}
	if len(msg) > 2 {
		d1 = msg[2]
	}
	word0 := uint32(0x2)<<28 | uint32(status)<<16 | uint32(d0)<<8
	word1 := uint32(d1) << 24
	return [2]uint32{word0, word1}
}

// packSysEx splits a 0xF0...0xF7 SysEx message into 64-bit Data UMPs,
// each carrying up to 6 payload bytes (the body between F0 and F7,
// inclusive of neither terminator in the byte count). status nibble
// marks first/last/only/continue per the UMP SysEx7 convention: 0=complete
// in one packet, 1=start, 2=continue, 3=end.
func packSysEx(msg []byte) [][2]uint32 {
	if len(msg) < 2 {
		return nil
	}
	body := msg[1 : len(msg)-1] // strip 0xF0 and trailing 0xF7
	if len(body) == 0 {
		return [][2]uint32{{uint32(0x3)<<28 | uint32(0)<<20, 0}}
	}

	const chunkSize = 6
	var chunks [][]byte
	for i := 0; i < len(body); i += chunkSize {
		end := i + chunkSize
		if end > len(body) {
			end = len(body)
		}
		chunks = append(chunks, body[i:end])
	}

	var out [][2]uint32
	for i, chunk := range chunks {
		status := sysexStatus(i, len(chunks))
		n := len(chunk)

		var b [6]byte
		copy(b[:], chunk)

		word0 := uint32(0x3)<<28 | uint32(status)<<20 | uint32(n)<<16 |
			uint32(b[0])<<8 | uint32(b[1])
		word1 := uint32(b[2])<<24 | uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])
		out = append(out, [2]uint32{word0, word1})
	}
	return out
}

func sysexStatus(index, total int) byte {
	switch {
	case total == 1:
		return 0 // complete
	case index == 0:
		return 1 // start
	case index == total-1:
		return 3 // end
	default:
		return 2 // continue
	}
}
