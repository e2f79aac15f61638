package host

import (
	"context"
	"net"
	"strconv"

	"github.com/brutella/dnssd"
	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// DiscoveryServiceType is the DNS-SD service type hosts advertise under
// when config.Discovery.MDNS is enabled, alongside the always-on UDP
// broadcast responder (spec §4.11).
const DiscoveryServiceType = "_midinet._udp"

// DiscoveryResponder answers broadcast DiscoverRequests with everything
// a client needs to join the multicast streams.
type DiscoveryResponder struct {
	conn     *net.UDPConn
	cfg      config.HostConfig
	role     *contracts.Watch[protocol.Role]
	protoVer uint8
	logger   contracts.Logger
}

// NewDiscoveryResponder builds a responder over an already-bound conn.
func NewDiscoveryResponder(conn *net.UDPConn, cfg config.HostConfig, role *contracts.Watch[protocol.Role], protoVer uint8, logger contracts.Logger) *DiscoveryResponder {
	return &DiscoveryResponder{conn: conn, cfg: cfg, role: role, protoVer: protoVer, logger: logger}
}

// Run replies to DiscoverRequests until ctx is canceled.
func (d *DiscoveryResponder) Run(ctx context.Context) error {
	buf := make([]byte, 256)
	go func() {
		<-ctx.Done()
		_ = d.conn.Close()
	}()
	for {
		n, remote, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				if d.logger != nil {
					d.logger.Warn("discovery read error", d.logger.Field().Error("error", err))
				}
				return err
			}
		}
		d.handle(buf[:n], remote)
	}
}

func (d *DiscoveryResponder) handle(buf []byte, remote *net.UDPAddr) {
	if _, err := protocol.DecodeDiscoverRequest(buf); err != nil {
		return
	}
	group := net.ParseIP(d.cfg.Network.DataGroup).To4()
	resp := &protocol.DiscoverResponse{
		HostID:          d.cfg.HostID,
		Role:            d.role.Get(),
		ProtocolVersion: d.protoVer,
		DataPort:        d.cfg.Network.DataPort,
		HeartbeatPort:   d.cfg.Network.HeartbeatPort,
		AdminPort:       d.cfg.Network.AdminPort,
		DeviceName:      d.cfg.DeviceName,
	}
	if group != nil {
		copy(resp.MulticastGroup[:], group)
	}
	if _, err := d.conn.WriteToUDP(resp.Encode(), remote); err != nil && d.logger != nil {
		d.logger.Warn("discovery reply send failed", d.logger.Field().Error("error", err))
	}
}

// AdvertiseMDNS registers the host as a DNS-SD service whose TXT record
// carries protocol.Version under "version". It returns an error only if
// registration fails; the responder runs until ctx is canceled. Gated by
// config.Discovery.MDNS — the UDP broadcast responder above is always
// sufficient on its own, this is purely an additional discovery path
// for mDNS-aware clients/tools.
func AdvertiseMDNS(ctx context.Context, cfg config.HostConfig, logger contracts.Logger) error {
	service, err := dnssd.NewService(dnssd.Config{
		Name: cfg.DeviceName,
		Type: DiscoveryServiceType,
		Port: int(cfg.Network.DiscoveryPort),
		Text: map[string]string{"version": strconv.Itoa(int(protocol.Version))},
	})
	if err != nil {
		return err
	}
	responder, err := dnssd.NewResponder()
	if err != nil {
		return err
	}
	if _, err := responder.Add(service); err != nil {
		return err
	}
	go func() {
		if err := responder.Respond(ctx); err != nil && logger != nil {
			logger.Warn("mdns responder stopped", logger.Field().Error("error", err))
		}
	}()
	return nil
}
