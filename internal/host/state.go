package host

import (
	"net"
	"sync"
	"time"
)

// ClientRecord is the host's view of one client that has interacted
// with it by sending a focus packet (the only thing that registers a
// client), matching spec §3's "Client record" data model.
type ClientRecord struct {
	ClientID        uint32
	Addr            net.IP
	DeviceReady     bool
	LastSeen        time.Time
	RecentLatencyMS float64
	RecentLossPct   float64
}

// ClientRegistry tracks every client the host has heard from, feeding
// both the focus slot and the unicast fan-out target list.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[uint32]*ClientRecord
}

// NewClientRegistry returns an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[uint32]*ClientRecord)}
}

// Touch records that clientID was seen from addr just now, creating the
// record if this is the first time.
func (r *ClientRegistry) Touch(clientID uint32, addr net.IP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.clients[clientID]
	if !ok {
		rec = &ClientRecord{ClientID: clientID}
		r.clients[clientID] = rec
	}
	rec.Addr = addr
	rec.LastSeen = time.Now()
}

// SetDeviceReady records whether clientID's virtual device is up.
func (r *ClientRegistry) SetDeviceReady(clientID uint32, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.clients[clientID]; ok {
		rec.DeviceReady = ready
	}
}

// Records returns a snapshot of every known client.
func (r *ClientRegistry) Records() []ClientRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientRecord, 0, len(r.clients))
	for _, rec := range r.clients {
		out = append(out, *rec)
	}
	return out
}

// Prune drops any client not seen within maxAge, returning how many
// were removed.
func (r *ClientRegistry) Prune(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	cutoff := time.Now().Add(-maxAge)
	for id, rec := range r.clients {
		if rec.LastSeen.Before(cutoff) {
			delete(r.clients, id)
			n++
		}
	}
	return n
}

// FocusState is the host's single focus slot (spec §3/§4.8).
type FocusState struct {
	HasHolder      bool
	HolderClientID uint32
	HolderAddr     net.IP
	LastClaimSeq   uint16
	ClaimedAt      time.Time
	LastFeedbackAt time.Time
}
