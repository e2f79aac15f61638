package client

import (
	"net"
	"sync"
	"time"

	"github.com/hakolsound/midinet/sdk/protocol"
)

// HostRecord is the client's view of one host it has discovered (spec
// §3's "Host record"): identity plus the liveness trackers §4.7's
// failover table reads (last_heartbeat_instant, last_sequence,
// miss_count).
type HostRecord struct {
	HostID          uint8
	Role            protocol.Role
	Addr            net.IP
	MulticastGroup  net.IP
	DataPort        uint16
	HeartbeatPort   uint16
	AdminPort       uint16
	DeviceName      string
	ProtocolVersion uint8

	mu            sync.Mutex
	lastHeartbeat time.Time
	lastSequence  uint16
	missCount     uint32
}

// RecordHeartbeat updates the liveness trackers on receipt of a
// HeartbeatPacket from this host.
func (h *HostRecord) RecordHeartbeat(seq uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastHeartbeat = time.Now()
	h.lastSequence = seq
	h.missCount = 0
}

// Alive reports whether a heartbeat arrived within
// miss_threshold * interval_ms, per spec §4.7. Each call beyond the
// window also advances the miss counter, readable via MissCount (the
// health snapshot's loss figure comes from sequence gaps, not from this
// counter).
func (h *HostRecord) Alive(timeout time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastHeartbeat.IsZero() {
		return false
	}
	alive := time.Since(h.lastHeartbeat) < timeout
	if !alive {
		h.missCount++
	}
	return alive
}

// MissCount returns how many consecutive liveness checks have found
// this host's heartbeat stale.
func (h *HostRecord) MissCount() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.missCount
}

// HostTable tracks every discovered host by id, deduplicating repeated
// DiscoverResponse/heartbeat traffic from the same host.
type HostTable struct {
	mu    sync.RWMutex
	hosts map[uint8]*HostRecord
}

// NewHostTable returns an empty table.
func NewHostTable() *HostTable {
	return &HostTable{hosts: make(map[uint8]*HostRecord)}
}

// Upsert records or refreshes a host's discovery details, returning its
// (possibly pre-existing) HostRecord so liveness state survives
// repeated discovery replies.
func (t *HostTable) Upsert(resp *protocol.DiscoverResponse, addr net.IP) *HostRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.hosts[resp.HostID]
	if !ok {
		rec = &HostRecord{HostID: resp.HostID}
		t.hosts[resp.HostID] = rec
	}
	rec.Role = resp.Role
	rec.Addr = addr
	rec.MulticastGroup = net.IPv4(resp.MulticastGroup[0], resp.MulticastGroup[1], resp.MulticastGroup[2], resp.MulticastGroup[3])
	rec.DataPort = resp.DataPort
	rec.HeartbeatPort = resp.HeartbeatPort
	rec.AdminPort = resp.AdminPort
	rec.DeviceName = resp.DeviceName
	rec.ProtocolVersion = resp.ProtocolVersion
	return rec
}

// Get returns the record for hostID, creating an empty one (used by the
// heartbeat listener, which may observe a host before its discovery
// reply arrives).
func (t *HostTable) Get(hostID uint8) *HostRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.hosts[hostID]
	if !ok {
		rec = &HostRecord{HostID: hostID}
		t.hosts[hostID] = rec
	}
	return rec
}

// Records returns a snapshot of every known host.
func (t *HostTable) Records() []*HostRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*HostRecord, 0, len(t.hosts))
	for _, rec := range t.hosts {
		out = append(out, rec)
	}
	return out
}
