package host

import (
	"net"
	"testing"
	"time"

	"github.com/hakolsound/midinet/sdk/inputmux"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/state"
	"github.com/stretchr/testify/require"
)

// fakeSource is a single-shot inputmux.Source: it yields one burst then
// blocks until done fires, just enough to drive one Broadcaster loop
// iteration deterministically.
type fakeSource struct {
	burst []byte
	sent  bool
}

func (s *fakeSource) TryPop(buf []byte) (int, bool) { return 0, false }
func (s *fakeSource) Drain(f func([]byte)) int      { return 0 }
func (s *fakeSource) Pop(buf []byte, done <-chan struct{}) (int, bool) {
	if !s.sent {
		s.sent = true
		return copy(buf, s.burst), true
	}
	<-done
	return 0, false
}

func TestBroadcasterEncodesAndSendsOnePacket(t *testing.T) {
	sendConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sendConn.Close() })

	recvConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = recvConn.Close() })

	primary := &fakeSource{burst: []byte{0x90, 60, 100}}
	secondary := &fakeSource{burst: nil}
	mux := inputmux.New(primary, secondary, nil)

	var tapped []byte
	b := NewBroadcaster(mux, pipeline.New(pipeline.NewConfig()), state.New(), 7, sendConn, recvConn.LocalAddr().(*net.UDPAddr), nil, nil)
	b.SetRawTap(func(burst []byte) { tapped = append([]byte(nil), burst...) })

	done := make(chan struct{})
	buf := make([]byte, 64)
	go func() {
		n, ok := mux.Pop(buf, nil)
		if ok {
			b.handleBurst(buf[:n])
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not process the burst in time")
	}

	require.NoError(t, recvConn.SetReadDeadline(time.Now().Add(time.Second)))
	rbuf := make([]byte, 128)
	n, err := recvConn.Read(rbuf)
	require.NoError(t, err)

	pkt, err := protocol.DecodeMidiDataPacket(rbuf[:n])
	require.NoError(t, err)
	require.Equal(t, uint8(7), pkt.HostID)
	require.Equal(t, []byte{0x90, 60, 100}, pkt.Midi)
	require.NotEmpty(t, pkt.Journal, "first packet should carry a full journal")
	require.Equal(t, []byte{0x90, 60, 100}, tapped)
}
