package host

import (
	"net"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// UnicastRelay fans one already-encoded packet out to every registered
// unicast client in addition to its multicast send, per spec §4.4 step
// 8. The target list is a watch channel (spec §5) so the registry
// refresh loop can swap it without the send path taking a lock.
type UnicastRelay struct {
	conn    *net.UDPConn
	targets *contracts.Watch[[]*net.UDPAddr]
}

// NewUnicastRelay builds a relay that sends over an already-bound conn.
func NewUnicastRelay(conn *net.UDPConn) *UnicastRelay {
	return &UnicastRelay{conn: conn, targets: contracts.NewWatch[[]*net.UDPAddr](nil)}
}

// SetTargets replaces the unicast fan-out list.
func (r *UnicastRelay) SetTargets(targets []*net.UDPAddr) {
	r.targets.Set(targets)
}

// Send writes data to every current target, best-effort.
func (r *UnicastRelay) Send(data []byte) {
	for _, addr := range r.targets.Get() {
		_, _ = r.conn.WriteToUDP(data, addr)
	}
}

// AddrsFromRegistry builds the unicast target list for the given port
// from every client record in reg.
func AddrsFromRegistry(reg *ClientRegistry, port uint16) []*net.UDPAddr {
	records := reg.Records()
	out := make([]*net.UDPAddr, 0, len(records))
	for _, rec := range records {
		if rec.Addr == nil {
			continue
		}
		out = append(out, &net.UDPAddr{IP: rec.Addr, Port: int(port)})
	}
	return out
}
