package contracts

import (
	"hash/crc32"

	"github.com/google/uuid"
)

// NewClientID generates a random 32-bit client identity for the wire
// protocol's client_id fields (FocusPacket, DiscoverRequest), which
// predate UUIDs and only budget 4 bytes. A UUIDv4 is generated for its
// collision properties and folded down with CRC-32 rather than reusing
// only its low bytes.
func NewClientID() uint32 {
	id := uuid.New()
	return crc32.ChecksumIEEE(id[:])
}
