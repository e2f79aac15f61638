package host

import (
	"net"
	"testing"
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryResponderRepliesWithHostDetails(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	cfg := config.DefaultHostConfig()
	cfg.HostID = 3
	cfg.DeviceName = "Test Controller"

	role := contracts.NewWatch(protocol.RolePrimary)
	resp := NewDiscoveryResponder(conn, cfg, role, protocol.Version, nil)

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	req := (&protocol.DiscoverRequest{ClientID: 1}).Encode()
	_, err = client.WriteToUDP(req, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, remoteAddr, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	resp.handle(buf[:n], remoteAddr)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	rbuf := make([]byte, 128)
	rn, _, err := client.ReadFromUDP(rbuf)
	require.NoError(t, err)

	reply, err := protocol.DecodeDiscoverResponse(rbuf[:rn])
	require.NoError(t, err)
	require.Equal(t, uint8(3), reply.HostID)
	require.Equal(t, protocol.RolePrimary, reply.Role)
	require.Equal(t, "Test Controller", reply.DeviceName)
}
