package client

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// DiscoveryInterval is how often the client re-broadcasts a
// DiscoverRequest, whether or not it already has a live host.
const DiscoveryInterval = 2 * time.Second

// Discoverer broadcasts DiscoverRequest on the LAN and folds every
// DiscoverResponse into a HostTable (spec §6's "zero-config... works on
// all LANs" broadcast discovery).
type Discoverer struct {
	clientID uint32
	port     uint16
	table    *HostTable
	logger   contracts.Logger

	conn *net.UDPConn
}

// NewDiscoverer opens the broadcast send/receive socket.
func NewDiscoverer(clientID uint32, port uint16, table *HostTable, logger contracts.Logger) (*Discoverer, error) {
	conn, err := broadcastSocket()
	if err != nil {
		return nil, err
	}
	if err := setBroadcast(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Discoverer{clientID: clientID, port: port, table: table, logger: logger, conn: conn}, nil
}

// Run alternates between listening for responses and periodically
// re-broadcasting a request, until ctx is canceled.
func (d *Discoverer) Run(ctx context.Context) error {
	defer d.conn.Close()

	go d.sendLoop(ctx)

	buf := make([]byte, 256)
	for {
		if err := d.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
			return err
		}
		n, remote, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		resp, err := protocol.DecodeDiscoverResponse(buf[:n])
		if err != nil {
			continue
		}
		d.table.Upsert(resp, remote.IP)
		if d.logger != nil {
			d.logger.Info("discovered host", d.logger.Field().Uint8("host_id", resp.HostID))
		}
	}
}

func (d *Discoverer) sendLoop(ctx context.Context) {
	ticker := time.NewTicker(DiscoveryInterval)
	defer ticker.Stop()

	dest := &net.UDPAddr{IP: net.IPv4bcast, Port: int(d.port)}
	req := (&protocol.DiscoverRequest{ClientID: d.clientID}).Encode()

	send := func() {
		if _, err := d.conn.WriteToUDP(req, dest); err != nil && d.logger != nil {
			d.logger.Warn("discovery broadcast failed", d.logger.Field().Error("error", err))
		}
	}
	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
