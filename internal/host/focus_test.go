package host

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

func newLoopbackFocusManager(t *testing.T) (*FocusManager, *net.UDPConn) {
	t.Helper()
	ackListener, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ackListener.Close() })

	sendConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sendConn.Close() })

	return NewFocusManager(sendConn, ackListener.LocalAddr().(*net.UDPAddr), nil), ackListener
}

func TestHandleClaimAcceptsEmptySlotAndAcks(t *testing.T) {
	f, ackListener := newLoopbackFocusManager(t)

	f.HandleClaim(1, 10, net.ParseIP("192.168.1.5"))
	require.True(t, f.IsHolder(1))
	require.True(t, f.IsHolderAddr(net.ParseIP("192.168.1.5")))

	buf := make([]byte, 64)
	require.NoError(t, ackListener.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := ackListener.ReadFromUDP(buf)
	require.NoError(t, err)
	ack, err := protocol.DecodeFocusPacket(buf[:n])
	require.NoError(t, err)
	require.Equal(t, protocol.FocusAck, ack.Action)
	require.Equal(t, uint32(1), ack.ClientID)
}

func TestHandleClaimRejectsLowerSequenceFromOtherClient(t *testing.T) {
	f, _ := newLoopbackFocusManager(t)

	f.HandleClaim(1, 100, net.ParseIP("192.168.1.5"))
	f.HandleClaim(2, 50, net.ParseIP("192.168.1.6"))

	require.True(t, f.IsHolder(1))
	require.False(t, f.IsHolder(2))
}

func TestHandleClaimAcceptsHigherSequenceFromOtherClient(t *testing.T) {
	f, _ := newLoopbackFocusManager(t)

	f.HandleClaim(1, 10, net.ParseIP("192.168.1.5"))
	f.HandleClaim(2, 20, net.ParseIP("192.168.1.6"))

	require.True(t, f.IsHolder(2))
	require.True(t, f.IsHolderAddr(net.ParseIP("192.168.1.6")))
}

func TestHandleReleaseOnlyClearsCurrentHolder(t *testing.T) {
	f, _ := newLoopbackFocusManager(t)

	f.HandleClaim(1, 10, net.ParseIP("192.168.1.5"))
	f.HandleRelease(2)
	require.True(t, f.IsHolder(1))

	f.HandleRelease(1)
	require.False(t, f.IsHolder(1))
}

func TestRunAutoReleaseClearsStaleHolder(t *testing.T) {
	f, _ := newLoopbackFocusManager(t)
	f.HandleClaim(1, 10, net.ParseIP("192.168.1.5"))
	f.state.LastFeedbackAt = time.Now().Add(-FocusAutoReleaseTimeout - time.Second)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		f.RunAutoRelease(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return !f.IsHolder(1) }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
