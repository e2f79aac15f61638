package client

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hakolsound/midinet/sdk/contracts"
)

// HealthPushInterval is how often /ws pushes a fresh snapshot, per
// SPEC_FULL.md §6.
const HealthPushInterval = 500 * time.Millisecond

// HealthSnapshot is the client's loopback health surface (spec §9's
// resolved Open Question: a single AvgLatencyMS field stands in for the
// original's p50/p95/p99 triplicate, since nothing upstream of this
// client ever produces more than one latency sample per packet).
type HealthSnapshot struct {
	Connected     bool    `json:"connected"`
	ActiveHostID  uint8   `json:"active_host_id"`
	FocusHeld     bool    `json:"focus_held"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	PacketLossPct float64 `json:"packet_loss_pct"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthCollector accumulates the atomic counters a HealthServer turns
// into periodic snapshots, mirroring the shape of
// original_source/crates/midi-client/src/health.rs's TrafficCounters
// without its task-pulse/memory-monitor machinery (that lives in
// watchdog.go instead).
type HealthCollector struct {
	start time.Time

	packetsReceived atomic.Uint64
	sequenceGaps    atomic.Uint64
	latencySumUS    atomic.Uint64
	latencyCount    atomic.Uint64

	failover *FailoverMonitor
	focus    *FocusClient
}

// NewHealthCollector starts the uptime clock.
func NewHealthCollector(failover *FailoverMonitor, focus *FocusClient) *HealthCollector {
	return &HealthCollector{start: time.Now(), failover: failover, focus: focus}
}

// RecordPacket tallies one received MidiDataPacket and its end-to-end
// latency estimate (now minus the packet's embedded send timestamp).
func (c *HealthCollector) RecordPacket(latency time.Duration) {
	c.packetsReceived.Add(1)
	c.latencySumUS.Add(uint64(latency.Microseconds()))
	c.latencyCount.Add(1)
}

// RecordGap tallies one detected sequence gap, for the loss estimate.
func (c *HealthCollector) RecordGap() {
	c.sequenceGaps.Add(1)
}

// Snapshot builds a HealthSnapshot from the current counters and the
// live failover/focus state.
func (c *HealthCollector) Snapshot() HealthSnapshot {
	received := c.packetsReceived.Load()
	gaps := c.sequenceGaps.Load()
	var lossPct float64
	if total := received + gaps; total > 0 {
		lossPct = float64(gaps) / float64(total) * 100
	}

	var avgLatencyMS float64
	if n := c.latencyCount.Load(); n > 0 {
		avgLatencyMS = float64(c.latencySumUS.Load()) / float64(n) / 1000
	}

	var activeHost uint8
	if c.failover != nil {
		activeHost = c.failover.ActiveHostID().Get()
	}
	var focusHeld bool
	if c.focus != nil {
		focusHeld = c.focus.HasFocus().Get()
	}

	return HealthSnapshot{
		Connected:     activeHost != 0,
		ActiveHostID:  activeHost,
		FocusHeld:     focusHeld,
		AvgLatencyMS:  avgLatencyMS,
		PacketLossPct: lossPct,
		UptimeSeconds: time.Since(c.start).Seconds(),
	}
}

// HealthServer exposes HealthCollector over loopback HTTP/WS, plus the
// focus claim/release actions SPEC_FULL.md's EXTERNAL INTERFACES
// section folds into the same surface.
type HealthServer struct {
	addr      string
	collector *HealthCollector
	focus     *FocusClient
	upgrader  websocket.Upgrader
	logger    contracts.Logger
	srv       *http.Server
}

// NewHealthServer builds a server bound to addr (e.g. "127.0.0.1:5009").
func NewHealthServer(addr string, collector *HealthCollector, focus *FocusClient, logger contracts.Logger) *HealthServer {
	return &HealthServer{
		addr:      addr,
		collector: collector,
		focus:     focus,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:    logger,
	}
}

// ListenAndServe blocks serving the health surface until the server is
// shut down via Shutdown.
func (s *HealthServer) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/focus/claim", s.handleFocusClaim)
	mux.HandleFunc("/focus/release", s.handleFocusRelease)
	s.srv = &http.Server{Addr: s.addr, Handler: mux}
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *HealthServer) Shutdown() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.collector.Snapshot())
}

func (s *HealthServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("health ws upgrade failed", s.logger.Field().Error("error", err))
		}
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	ticker := time.NewTicker(HealthPushInterval)
	defer ticker.Stop()
	for range ticker.C {
		writeMu.Lock()
		err := conn.WriteJSON(s.collector.Snapshot())
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (s *HealthServer) handleFocusClaim(w http.ResponseWriter, r *http.Request) {
	if s.focus == nil {
		http.Error(w, "focus client not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.focus.Claim(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *HealthServer) handleFocusRelease(w http.ResponseWriter, r *http.Request) {
	if s.focus == nil {
		http.Error(w, "focus client not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.focus.Release(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
