package protocol

import "encoding/binary"

// FocusMagic identifies a FocusPacket on the wire.
const FocusMagic = "MDFC"

// FocusSize is the fixed wire size of a FocusPacket.
const FocusSize = 19

// FocusAction identifies the kind of focus-protocol message.
type FocusAction uint8

const (
	FocusClaim   FocusAction = 1
	FocusRelease FocusAction = 2
	FocusAck     FocusAction = 3
)

// FocusPacket implements the distributed, last-writer-wins focus claim
// arbitration described in spec §4.8.
type FocusPacket struct {
	Action      FocusAction
	ClientID    uint32
	Sequence    uint16
	TimestampUS uint64
}

// Encode serializes the packet to its fixed 19-byte wire form.
func (p *FocusPacket) Encode() []byte {
	buf := make([]byte, FocusSize)
	copy(buf[0:4], FocusMagic)
	buf[4] = uint8(p.Action)
	binary.BigEndian.PutUint32(buf[5:9], p.ClientID)
	binary.BigEndian.PutUint16(buf[9:11], p.Sequence)
	binary.BigEndian.PutUint64(buf[11:19], p.TimestampUS)
	return buf
}

// DecodeFocusPacket parses a fixed-size FocusPacket.
func DecodeFocusPacket(buf []byte) (*FocusPacket, error) {
	if err := magicOf(buf, FocusMagic); err != nil {
		return nil, err
	}
	if len(buf) < FocusSize {
		return nil, ErrTruncated
	}
	return &FocusPacket{
		Action:      FocusAction(buf[4]),
		ClientID:    binary.BigEndian.Uint32(buf[5:9]),
		Sequence:    binary.BigEndian.Uint16(buf[9:11]),
		TimestampUS: binary.BigEndian.Uint64(buf[11:19]),
	}, nil
}

// SequenceWins reports whether claimSeq beats lastClaimSeq under the
// focus protocol's u16-wraparound tolerance rule.
func SequenceWins(claimSeq, lastClaimSeq uint16) bool {
	if claimSeq > lastClaimSeq {
		return true
	}
	return claimSeq < 128 && lastClaimSeq > 0xFF80
}
