package protocol

import (
	"encoding/binary"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// IdentityMagic identifies an IdentityPacket on the wire.
const IdentityMagic = "MDID"

// IdentityPacket announces a host's DeviceIdentity. The client daemon
// does not decode it; its virtual device identity comes from its own
// config.
type IdentityPacket struct {
	HostID   uint8
	Identity contracts.DeviceIdentity
}

func putString(buf []byte, off int, s string) int {
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(s)))
	off += 2
	copy(buf[off:off+len(s)], s)
	return off + len(s)
}

func getString(buf []byte, off int) (string, int, error) {
	if len(buf) < off+2 {
		return "", 0, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	if len(buf) < off+n {
		return "", 0, ErrTruncated
	}
	return string(buf[off : off+n]), off + n, nil
}

// Encode serializes the packet to its variable-length wire form.
func (p *IdentityPacket) Encode() []byte {
	id := p.Identity
	size := 4 + 1 + (2 + len(id.Name)) + (2 + len(id.Manufacturer)) + 2 + 2 + 1 + 15 + 1 + 1
	buf := make([]byte, size)
	copy(buf[0:4], IdentityMagic)
	buf[4] = p.HostID
	off := 5
	off = putString(buf, off, id.Name)
	off = putString(buf, off, id.Manufacturer)
	binary.BigEndian.PutUint16(buf[off:off+2], id.VendorID)
	off += 2
	binary.BigEndian.PutUint16(buf[off:off+2], id.ProductID)
	off += 2
	buf[off] = id.SysExIdentityLen
	off++
	copy(buf[off:off+15], id.SysExIdentity[:])
	off += 15
	buf[off] = id.InputPorts
	off++
	buf[off] = id.OutputPorts
	return buf
}

// DecodeIdentityPacket parses a variable-length IdentityPacket.
func DecodeIdentityPacket(buf []byte) (*IdentityPacket, error) {
	if err := magicOf(buf, IdentityMagic); err != nil {
		return nil, err
	}
	if len(buf) < 5 {
		return nil, ErrTruncated
	}
	p := &IdentityPacket{HostID: buf[4]}
	off := 5

	name, off2, err := getString(buf, off)
	if err != nil {
		return nil, err
	}
	off = off2
	p.Identity.Name = name

	mfr, off3, err := getString(buf, off)
	if err != nil {
		return nil, err
	}
	off = off3
	p.Identity.Manufacturer = mfr

	if len(buf) < off+2+2+1+15+1+1 {
		return nil, ErrTruncated
	}
	p.Identity.VendorID = binary.BigEndian.Uint16(buf[off : off+2])
	off += 2
	p.Identity.ProductID = binary.BigEndian.Uint16(buf[off : off+2])
	off += 2
	p.Identity.SysExIdentityLen = buf[off]
	off++
	copy(p.Identity.SysExIdentity[:], buf[off:off+15])
	off += 15
	p.Identity.InputPorts = buf[off]
	off++
	p.Identity.OutputPorts = buf[off]
	return p, nil
}
