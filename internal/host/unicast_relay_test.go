package host

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnicastRelaySendsToAllTargets(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	a, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	b, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	relay := NewUnicastRelay(conn)
	relay.SetTargets([]*net.UDPAddr{a.LocalAddr().(*net.UDPAddr), b.LocalAddr().(*net.UDPAddr)})

	relay.Send([]byte("hello"))

	for _, c := range []*net.UDPConn{a, b} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
		buf := make([]byte, 16)
		n, err := c.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "hello", string(buf[:n]))
	}
}
