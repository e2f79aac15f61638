package host

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatSenderEmitsCurrentRole(t *testing.T) {
	sendConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sendConn.Close() })

	recvConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = recvConn.Close() })

	role := contracts.NewWatch(protocol.RoleStandby)
	h := NewHeartbeatSender(9, role, 5*time.Millisecond, sendConn, recvConn.LocalAddr().(*net.UDPAddr), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.NoError(t, recvConn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 32)
	n, err := recvConn.Read(buf)
	require.NoError(t, err)

	pkt, err := protocol.DecodeHeartbeatPacket(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint8(9), pkt.HostID)
	require.Equal(t, protocol.RoleStandby, pkt.Role)

	cancel()
	<-done
}
