package host

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// HeartbeatSender emits HeartbeatPacket at a fixed interval carrying the
// host's current role, per spec §4.4's "parallel heartbeat task."
type HeartbeatSender struct {
	hostID   uint8
	role     *contracts.Watch[protocol.Role]
	interval time.Duration

	conn  *net.UDPConn
	addr  *net.UDPAddr
	relay *UnicastRelay

	logger contracts.Logger
}

// NewHeartbeatSender builds a sender bound to an already-open conn.
func NewHeartbeatSender(hostID uint8, role *contracts.Watch[protocol.Role], interval time.Duration, conn *net.UDPConn, addr *net.UDPAddr, relay *UnicastRelay, logger contracts.Logger) *HeartbeatSender {
	return &HeartbeatSender{hostID: hostID, role: role, interval: interval, conn: conn, addr: addr, relay: relay, logger: logger}
}

// Run ticks until ctx is canceled.
func (h *HeartbeatSender) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var seq uint16
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			seq++
			pkt := &protocol.HeartbeatPacket{
				HostID:      h.hostID,
				Role:        h.role.Get(),
				Sequence:    seq,
				TimestampUS: uint64(time.Now().UnixMicro()),
			}
			encoded := pkt.Encode()
			if _, err := h.conn.WriteToUDP(encoded, h.addr); err != nil && h.logger != nil {
				h.logger.Warn("heartbeat send failed", h.logger.Field().Error("error", err))
			}
			if h.relay != nil {
				h.relay.Send(encoded)
			}
		}
	}
}
