package host

import (
	"net"
	"sync"
	"testing"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	mu  sync.Mutex
	got [][]byte
}

func (f *fakeOutput) ListDevices() ([]contracts.DeviceInfo, error) { return nil, nil }
func (f *fakeOutput) SelectDevice(int) error                       { return nil }
func (f *fakeOutput) Close() error                                 { return nil }
func (f *fakeOutput) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.got = append(f.got, cp)
	return nil
}
func (f *fakeOutput) sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.got...)
}

func TestControlReceiverRoutesFocusClaimToFocusManager(t *testing.T) {
	focus, _ := newLoopbackFocusManager(t)
	out := &fakeOutput{}
	feedback := NewFeedbackReceiver(pipeline.New(pipeline.NewConfig()), focus, out, nil)
	listener := NewControlListener(focus)
	recv := NewControlReceiver(nil, listener, feedback, NewClientRegistry(), nil)

	claim := (&protocol.FocusPacket{Action: protocol.FocusClaim, ClientID: 5, Sequence: 1}).Encode()
	remote := &net.UDPAddr{IP: net.ParseIP("10.1.1.1"), Port: 6000}
	recv.dispatch(claim, remote)

	require.True(t, focus.IsHolder(5))
	require.True(t, focus.IsHolderAddr(net.ParseIP("10.1.1.1")))
}

func TestControlReceiverRoutesFeedbackOnlyFromHolder(t *testing.T) {
	focus, _ := newLoopbackFocusManager(t)
	out := &fakeOutput{}
	feedback := NewFeedbackReceiver(pipeline.New(pipeline.NewConfig()), focus, out, nil)
	listener := NewControlListener(focus)
	recv := NewControlReceiver(nil, listener, feedback, NewClientRegistry(), nil)

	holder := &net.UDPAddr{IP: net.ParseIP("10.1.1.1"), Port: 6000}
	stranger := &net.UDPAddr{IP: net.ParseIP("10.1.1.2"), Port: 6001}

	focus.HandleClaim(5, 1, holder.IP)

	midiPkt := (&protocol.MidiDataPacket{Sequence: 1, HostID: 1, Midi: []byte{0x90, 60, 100}}).Encode()
	recv.dispatch(midiPkt, stranger)
	require.Empty(t, out.sent())

	recv.dispatch(midiPkt, holder)
	require.Len(t, out.sent(), 1)
}
