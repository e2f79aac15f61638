package bridgeipc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Type: FrameSendMidi, Payload: []byte{0x90, 60, 100}}
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, f))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestFrameEmptyPayload(t *testing.T) {
	f := Frame{Type: FrameHeartbeat}
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, f))
	require.Equal(t, HeaderSize, buf.Len())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, FrameHeartbeat, got.Type)
	require.Empty(t, got.Payload)
}

func TestFrameRejectsOversizedPayload(t *testing.T) {
	f := Frame{Type: FrameSendMidi, Payload: make([]byte, MaxPayload+1)}
	_, err := f.Encode()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReadFrameShortHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}

func TestIdentityAckStatusPayloadRoundTrip(t *testing.T) {
	id, err := EncodeIdentity(IdentityPayload{DeviceName: "APC40", Manufacturer: "Akai"})
	require.NoError(t, err)
	decodedID, err := DecodeIdentity(id)
	require.NoError(t, err)
	require.Equal(t, "APC40", decodedID.DeviceName)

	ack, err := EncodeAck(AckPayload{Created: true, DeviceName: "APC40"})
	require.NoError(t, err)
	decodedAck, err := DecodeAck(ack)
	require.NoError(t, err)
	require.True(t, decodedAck.Created)

	status, err := EncodeStatus(StatusPayload{DeviceOpen: true, ConnectedSince: 1234})
	require.NoError(t, err)
	decodedStatus, err := DecodeStatus(status)
	require.NoError(t, err)
	require.EqualValues(t, 1234, decodedStatus.ConnectedSince)
}
