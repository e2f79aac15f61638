package host

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// IdentityInterval is how often the host re-announces its DeviceIdentity
// over the data group, so a listener that joins mid-session still
// receives it without a dedicated request/response round trip.
const IdentityInterval = time.Second

// IdentitySender periodically publishes IdentityPacket (spec §3's
// "immutable once published... client creates its virtual device once
// per received identity").
type IdentitySender struct {
	hostID   uint8
	identity contracts.DeviceIdentity
	conn     *net.UDPConn
	addr     *net.UDPAddr
	relay    *UnicastRelay
	logger   contracts.Logger
}

// NewIdentitySender builds a sender from the configured identity.
func NewIdentitySender(cfg config.HostConfig, conn *net.UDPConn, addr *net.UDPAddr, relay *UnicastRelay, logger contracts.Logger) *IdentitySender {
	id := contracts.DeviceIdentity{
		Name:         cfg.DeviceName,
		Manufacturer: cfg.Identity.Manufacturer,
		VendorID:     cfg.Identity.VendorID,
		ProductID:    cfg.Identity.ProductID,
		InputPorts:   cfg.Identity.InputPorts,
		OutputPorts:  cfg.Identity.OutputPorts,
	}
	n := len(cfg.Identity.SysExIdentity)
	if n > 15 {
		n = 15
	}
	copy(id.SysExIdentity[:], cfg.Identity.SysExIdentity[:n])
	id.SysExIdentityLen = uint8(n)

	return &IdentitySender{hostID: cfg.HostID, identity: id, conn: conn, addr: addr, relay: relay, logger: logger}
}

// Run ticks until ctx is canceled.
func (s *IdentitySender) Run(ctx context.Context) error {
	ticker := time.NewTicker(IdentityInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pkt := &protocol.IdentityPacket{HostID: s.hostID, Identity: s.identity}
			encoded := pkt.Encode()
			if _, err := s.conn.WriteToUDP(encoded, s.addr); err != nil && s.logger != nil {
				s.logger.Warn("identity send failed", s.logger.Field().Error("error", err))
			}
			if s.relay != nil {
				s.relay.Send(encoded)
			}
		}
	}
}
