package protocol

import "encoding/binary"

// HeartbeatMagic identifies a HeartbeatPacket on the wire.
const HeartbeatMagic = "MDHB"

// HeartbeatSize is the fixed wire size of a HeartbeatPacket.
const HeartbeatSize = 16

// Role identifies a host's current position in the failover pair.
type Role uint8

const (
	// RolePrimary transmits authoritative MIDI data.
	RolePrimary Role = 1
	// RoleStandby sends heartbeats only, ready to take over.
	RoleStandby Role = 2
)

// HeartbeatPacket is sent at a fixed interval by both hosts so clients
// can evaluate liveness by elapsed time, not by sequence number.
type HeartbeatPacket struct {
	HostID      uint8
	Role        Role
	Sequence    uint16
	TimestampUS uint64
}

// Encode serializes the packet to its fixed 16-byte wire form.
func (p *HeartbeatPacket) Encode() []byte {
	buf := make([]byte, HeartbeatSize)
	copy(buf[0:4], HeartbeatMagic)
	buf[4] = p.HostID
	buf[5] = uint8(p.Role)
	binary.BigEndian.PutUint16(buf[6:8], p.Sequence)
	binary.BigEndian.PutUint64(buf[8:16], p.TimestampUS)
	return buf
}

// DecodeHeartbeatPacket parses a fixed-size HeartbeatPacket.
func DecodeHeartbeatPacket(buf []byte) (*HeartbeatPacket, error) {
	if err := magicOf(buf, HeartbeatMagic); err != nil {
		return nil, err
	}
	if len(buf) < HeartbeatSize {
		return nil, ErrTruncated
	}
	return &HeartbeatPacket{
		HostID:      buf[4],
		Role:        Role(buf[5]),
		Sequence:    binary.BigEndian.Uint16(buf[6:8]),
		TimestampUS: binary.BigEndian.Uint64(buf[8:16]),
	}, nil
}
