package protocol

import "encoding/binary"

// DiscoverRequestMagic identifies a DiscoverRequest broadcast.
const DiscoverRequestMagic = "MDDS"

// DiscoverResponseMagic identifies a DiscoverResponse reply.
const DiscoverResponseMagic = "MDDR"

// DiscoverRequest is broadcast by a client looking for hosts.
type DiscoverRequest struct {
	ClientID uint32
}

// Encode serializes the request.
func (r *DiscoverRequest) Encode() []byte {
	buf := make([]byte, 8)
	copy(buf[0:4], DiscoverRequestMagic)
	binary.BigEndian.PutUint32(buf[4:8], r.ClientID)
	return buf
}

// DecodeDiscoverRequest parses a DiscoverRequest.
func DecodeDiscoverRequest(buf []byte) (*DiscoverRequest, error) {
	if err := magicOf(buf, DiscoverRequestMagic); err != nil {
		return nil, err
	}
	if len(buf) < 8 {
		return nil, ErrTruncated
	}
	return &DiscoverRequest{ClientID: binary.BigEndian.Uint32(buf[4:8])}, nil
}

// DiscoverResponse is a host's reply to a DiscoverRequest, carrying
// everything a client needs to join the multicast stream.
type DiscoverResponse struct {
	HostID          uint8
	Role            Role
	ProtocolVersion uint8
	DataPort        uint16
	HeartbeatPort   uint16
	AdminPort       uint16
	MulticastGroup  [4]byte
	DeviceName      string
}

// Encode serializes the response.
func (r *DiscoverResponse) Encode() []byte {
	size := 4 + 1 + 1 + 1 + 2 + 2 + 2 + 4 + 2 + len(r.DeviceName)
	buf := make([]byte, size)
	copy(buf[0:4], DiscoverResponseMagic)
	buf[4] = r.HostID
	buf[5] = uint8(r.Role)
	buf[6] = r.ProtocolVersion
	binary.BigEndian.PutUint16(buf[7:9], r.DataPort)
	binary.BigEndian.PutUint16(buf[9:11], r.HeartbeatPort)
	binary.BigEndian.PutUint16(buf[11:13], r.AdminPort)
	copy(buf[13:17], r.MulticastGroup[:])
	putString(buf, 17, r.DeviceName)
	return buf
}

// DecodeDiscoverResponse parses a DiscoverResponse.
func DecodeDiscoverResponse(buf []byte) (*DiscoverResponse, error) {
	if err := magicOf(buf, DiscoverResponseMagic); err != nil {
		return nil, err
	}
	if len(buf) < 19 {
		return nil, ErrTruncated
	}
	r := &DiscoverResponse{
		HostID:          buf[4],
		Role:            Role(buf[5]),
		ProtocolVersion: buf[6],
		DataPort:        binary.BigEndian.Uint16(buf[7:9]),
		HeartbeatPort:   binary.BigEndian.Uint16(buf[9:11]),
		AdminPort:       binary.BigEndian.Uint16(buf[11:13]),
	}
	copy(r.MulticastGroup[:], buf[13:17])
	name, _, err := getString(buf, 17)
	if err != nil {
		return nil, err
	}
	r.DeviceName = name
	return r, nil
}
