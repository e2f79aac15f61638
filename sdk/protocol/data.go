package protocol

import "encoding/binary"

// DataMagic identifies a MidiDataPacket on the wire.
const DataMagic = "MDMI"

// DataFlagJournal marks that a journal snapshot follows the MIDI payload.
const DataFlagJournal = 1 << 0

// MidiDataPacket carries a slice of (already pipeline-processed) raw
// MIDI bytes plus an optional journal snapshot, per spec §3.
type MidiDataPacket struct {
	Sequence    uint16
	TimestampUS uint64
	HostID      uint8
	Flags       uint8
	Midi        []byte
	Journal     []byte // present iff Flags&DataFlagJournal != 0
}

// HasJournal reports whether the packet carries a journal snapshot.
func (p *MidiDataPacket) HasJournal() bool {
	return p.Flags&DataFlagJournal != 0
}

// Encode serializes the packet to its wire form.
func (p *MidiDataPacket) Encode() []byte {
	flags := p.Flags
	if len(p.Journal) > 0 {
		flags |= DataFlagJournal
	}

	size := 4 + 2 + 8 + 1 + 1 + 2 + len(p.Midi)
	if flags&DataFlagJournal != 0 {
		size += 2 + len(p.Journal)
	}

	buf := make([]byte, size)
	copy(buf[0:4], DataMagic)
	binary.BigEndian.PutUint16(buf[4:6], p.Sequence)
	binary.BigEndian.PutUint64(buf[6:14], p.TimestampUS)
	buf[14] = p.HostID
	buf[15] = flags
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(p.Midi)))
	off := 18
	copy(buf[off:off+len(p.Midi)], p.Midi)
	off += len(p.Midi)

	if flags&DataFlagJournal != 0 {
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(p.Journal)))
		off += 2
		copy(buf[off:off+len(p.Journal)], p.Journal)
	}
	return buf
}

// DecodeMidiDataPacket parses a MidiDataPacket, rejecting bad magic or
// truncated buffers.
func DecodeMidiDataPacket(buf []byte) (*MidiDataPacket, error) {
	if err := magicOf(buf, DataMagic); err != nil {
		return nil, err
	}
	if len(buf) < 18 {
		return nil, ErrTruncated
	}

	p := &MidiDataPacket{
		Sequence:    binary.BigEndian.Uint16(buf[4:6]),
		TimestampUS: binary.BigEndian.Uint64(buf[6:14]),
		HostID:      buf[14],
		Flags:       buf[15],
	}
	midiLen := int(binary.BigEndian.Uint16(buf[16:18]))
	off := 18
	if len(buf) < off+midiLen {
		return nil, ErrTruncated
	}
	p.Midi = append([]byte(nil), buf[off:off+midiLen]...)
	off += midiLen

	if p.HasJournal() {
		if len(buf) < off+2 {
			return nil, ErrTruncated
		}
		journalLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
		off += 2
		if len(buf) < off+journalLen {
			return nil, ErrTruncated
		}
		p.Journal = append([]byte(nil), buf[off:off+journalLen]...)
	}
	return p, nil
}
