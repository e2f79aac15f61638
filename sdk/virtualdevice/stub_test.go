package virtualdevice

import (
	"testing"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/stretchr/testify/require"
)

func TestStubRejectsSendBeforeCreate(t *testing.T) {
	s := NewStub()
	require.ErrorIs(t, s.Send([]byte{0x90, 60, 100}), ErrNotCreated)
}

func TestStubRecordsSentMessagesAfterCreate(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Create(contracts.DeviceIdentity{Name: "APC40", Manufacturer: "Akai"}))
	require.NoError(t, s.Send([]byte{0x90, 60, 100}))
	require.NoError(t, s.Send([]byte{0x80, 60, 0}))

	sent := s.Sent()
	require.Len(t, sent, 2)
	require.Equal(t, []byte{0x90, 60, 100}, sent[0])
}

func TestStubInjectSurfacesOnReceive(t *testing.T) {
	s := NewStub()
	s.Inject([]byte{0xB0, 7, 127})

	got := <-s.Receive()
	require.Equal(t, []byte{0xB0, 7, 127}, got)
}

func TestStubSendAllOffCoversSixteenChannels(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Create(contracts.DeviceIdentity{Name: "x"}))
	require.NoError(t, s.SendAllOff())

	sent := s.Sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0], 16*6)
	require.Equal(t, byte(0xB0), sent[0][0])
	require.Equal(t, byte(120), sent[0][1])
}

func TestStubSilenceAndDetachClearsCreatedButSucceeds(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Create(contracts.DeviceIdentity{Name: "x"}))
	require.NoError(t, s.SilenceAndDetach())
	require.ErrorIs(t, s.Send([]byte{0x90, 1, 1}), ErrNotCreated)
}
