package host

import (
	"context"
	"net"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// ControlReceiver owns the single control-group socket (spec §4.6:
// FocusPacket and upstream feedback MidiDataPacket share one
// group:port) and demuxes each datagram by its magic to the focus
// listener or the feedback receiver.
type ControlReceiver struct {
	conn     *net.UDPConn
	focusL   *ControlListener
	feedback *FeedbackReceiver
	registry *ClientRegistry
	logger   contracts.Logger
}

// NewControlReceiver builds a receiver over an already-joined conn.
// Every recognized FocusPacket also touches registry, which is how the
// host learns a client's address for unicast fan-out (spec §5).
func NewControlReceiver(conn *net.UDPConn, focusL *ControlListener, feedback *FeedbackReceiver, registry *ClientRegistry, logger contracts.Logger) *ControlReceiver {
	return &ControlReceiver{conn: conn, focusL: focusL, feedback: feedback, registry: registry, logger: logger}
}

// Run reads packets until ctx is canceled, dispatching by magic.
func (c *ControlReceiver) Run(ctx context.Context) error {
	buf := make([]byte, 65536)
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()
	for {
		n, remote, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				if c.logger != nil {
					c.logger.Warn("control receiver read error", c.logger.Field().Error("error", err))
				}
				return err
			}
		}
		c.dispatch(buf[:n], remote)
	}
}

func (c *ControlReceiver) dispatch(buf []byte, remote *net.UDPAddr) {
	if len(buf) < 4 {
		return
	}
	switch string(buf[0:4]) {
	case protocol.FocusMagic:
		if pkt, err := protocol.DecodeFocusPacket(buf); err == nil {
			c.registry.Touch(pkt.ClientID, remote.IP)
		}
		c.focusL.handle(buf, remote)
	case protocol.DataMagic:
		c.feedback.handle(buf, remote)
	}
}
