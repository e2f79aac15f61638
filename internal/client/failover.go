package client

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/state"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// LivenessCheckInterval is how often the failover monitor evaluates the
// table in spec §4.7; production heartbeats are 3ms so this stays well
// below the 9ms liveness threshold.
const LivenessCheckInterval = 3 * time.Millisecond

// FailoverMonitor listens for HeartbeatPacket on the data group and
// drives the client-side failover state machine of spec §4.7. Unlike
// the host's FailoverManager, this one is a passive observer: it never
// originates a switch, only follows whichever host is alive.
type FailoverMonitor struct {
	conn   *net.UDPConn
	table  *HostTable
	policy config.SwitchBackPolicy
	miss   time.Duration

	vdev virtualdevice.Device
	st   *state.MidiState

	active         *contracts.Watch[uint8]
	needsReconcile *contracts.Watch[bool]
	frozen         bool

	logger contracts.Logger
}

// NewFailoverMonitor builds a monitor bound to an already-joined
// multicast conn (the heartbeat port on the data group).
func NewFailoverMonitor(conn *net.UDPConn, table *HostTable, hb config.Heartbeat, policy config.SwitchBackPolicy, vdev virtualdevice.Device, st *state.MidiState, logger contracts.Logger) *FailoverMonitor {
	return &FailoverMonitor{
		conn:           conn,
		table:          table,
		policy:         policy,
		miss:           time.Duration(hb.MissThreshold) * time.Duration(hb.IntervalMS) * time.Millisecond,
		vdev:           vdev,
		st:             st,
		active:         contracts.NewWatch[uint8](0),
		needsReconcile: contracts.NewWatch(false),
		logger:         logger,
	}
}

// ActiveHostID exposes the currently-selected host id as a watch
// channel (0 means "none selected yet").
func (m *FailoverMonitor) ActiveHostID() *contracts.Watch[uint8] { return m.active }

// NeedsReconcile reports (and the caller should consume via
// ConsumeReconcile) whether the receiver should request/replay a full
// reconciliation on the next packet.
func (m *FailoverMonitor) NeedsReconcile() bool { return m.needsReconcile.Get() }

// ConsumeReconcile clears the reconcile flag, called once the receiver
// has handled it.
func (m *FailoverMonitor) ConsumeReconcile() { m.needsReconcile.Set(false) }

// ConsumeReconcileIfSet atomically reads and clears the flag, so the
// receiver's hot path never races a concurrent switchTo between the
// Get and the Set.
func (m *FailoverMonitor) ConsumeReconcileIfSet() bool {
	if m.needsReconcile.Get() {
		m.needsReconcile.Set(false)
		return true
	}
	return false
}

// Run reads heartbeats and re-evaluates liveness on a fixed tick until
// ctx is canceled.
func (m *FailoverMonitor) Run(ctx context.Context) error {
	go m.recvLoop(ctx)

	ticker := time.NewTicker(LivenessCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.evaluate()
		}
	}
}

func (m *FailoverMonitor) recvLoop(ctx context.Context) {
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := m.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return
		}
		n, _, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		pkt, err := protocol.DecodeHeartbeatPacket(buf[:n])
		if err != nil {
			continue
		}
		rec := m.table.Get(pkt.HostID)
		rec.Role = pkt.Role
		rec.RecordHeartbeat(pkt.Sequence)
	}
}

// evaluate applies spec §4.7's failover table. Primary/standby are
// identified by Role (not host_id), since either of the two physical
// hosts can hold either role after a manual switch on the host side.
func (m *FailoverMonitor) evaluate() {
	var primary, standby *HostRecord
	for _, rec := range m.table.Records() {
		switch rec.Role {
		case protocol.RolePrimary:
			primary = rec
		case protocol.RoleStandby:
			standby = rec
		}
	}

	primaryAlive := primary != nil && primary.Alive(m.miss)
	standbyAlive := standby != nil && standby.Alive(m.miss)
	current := m.active.Get()

	if !primaryAlive && !standbyAlive {
		if current != 0 && !m.frozen && m.logger != nil {
			m.logger.Warn("both hosts unreachable; freezing active selection")
		}
		m.frozen = true
		return
	}
	m.frozen = false

	currentIsPrimary := primary != nil && current == primary.HostID
	currentIsStandby := standby != nil && current == standby.HostID

	switch {
	case current == 0:
		if primaryAlive {
			m.switchTo(primary.HostID)
		} else {
			m.switchTo(standby.HostID)
		}
	case currentIsPrimary:
		if !primaryAlive && standbyAlive {
			m.switchTo(standby.HostID)
		}
	case currentIsStandby:
		switch {
		case !standbyAlive && primaryAlive:
			m.switchTo(primary.HostID)
		case standbyAlive && primaryAlive && m.policy == config.SwitchBackAuto:
			m.switchTo(primary.HostID)
		}
	}
}

func (m *FailoverMonitor) switchTo(hostID uint8) {
	// All-notes-off and state reset must complete before the new active
	// host id is published: Receiver.handle gates forwarding purely on
	// ActiveHostID(), so publishing early lets a packet from the new
	// host reach the device ahead of the safety burst (spec §8).
	if m.vdev != nil {
		if err := m.vdev.SendAllOff(); err != nil && m.logger != nil {
			m.logger.Warn("all notes off on failover failed", m.logger.Field().Error("error", err))
		}
	}
	m.st.Reset()
	m.active.Set(hostID)
	m.needsReconcile.Set(true)
	if m.logger != nil {
		m.logger.Info("failover: active host switched", m.logger.Field().Uint8("host_id", hostID))
	}
}
