package client

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/midimsg"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/reconcile"
	"github.com/hakolsound/midinet/sdk/state"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// Receiver is the client-side wire decoder and reconciler (spec §4.5):
// it listens on multicast_group:data_port, detects sequence gaps,
// replays a journal-driven reconciliation when one is available, and
// forwards surviving bytes to the virtual device.
type Receiver struct {
	conn     *net.UDPConn
	pipeline *pipeline.Pipeline
	state    *state.MidiState
	vdev     virtualdevice.Device
	failover *FailoverMonitor
	health   *HealthCollector

	lastSequence uint16
	haveLastSeq  bool
	deviceReady  func() bool

	logger contracts.Logger
}

// NewReceiver builds a Receiver bound to an already-joined multicast
// conn. deviceReady reports whether a virtual device is currently
// installed (with the bridge backend, none is until the first dial
// succeeds).
// health may be nil; when set it is fed latency and loss samples for
// the /health and /ws surface.
func NewReceiver(conn *net.UDPConn, pl *pipeline.Pipeline, st *state.MidiState, vdev virtualdevice.Device, failover *FailoverMonitor, health *HealthCollector, deviceReady func() bool, logger contracts.Logger) *Receiver {
	return &Receiver{conn: conn, pipeline: pl, state: st, vdev: vdev, failover: failover, health: health, deviceReady: deviceReady, logger: logger}
}

// Run drives the receive loop until ctx is canceled.
func (r *Receiver) Run(ctx context.Context) error {
	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return err
		}
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		r.handle(buf[:n])
	}
}

func (r *Receiver) handle(buf []byte) {
	pkt, err := protocol.DecodeMidiDataPacket(buf)
	if err != nil {
		return
	}

	if r.failover != nil && pkt.HostID != r.failover.ActiveHostID().Get() {
		return // not from the currently active host; ignore (spec §4.7)
	}

	expected := r.lastSequence + 1
	gap := r.haveLastSeq && pkt.Sequence != expected
	forcedReconcile := r.failover != nil && r.failover.ConsumeReconcileIfSet()

	if r.health != nil {
		if gap {
			r.health.RecordGap()
		}
		if pkt.TimestampUS != 0 {
			r.health.RecordPacket(time.Since(time.UnixMicro(int64(pkt.TimestampUS))))
		}
	}

	if (gap || forcedReconcile) && len(pkt.Journal) > 0 {
		channels, err := state.DecodeJournal(pkt.Journal)
		if err == nil {
			r.state.Replace(channels)
			if r.deviceReady == nil || r.deviceReady() {
				for _, msg := range midimsg.Split(reconcile.Generate(channels)) {
					if err := r.vdev.Send(msg); err != nil && r.logger != nil {
						r.logger.Warn("reconciliation send failed", r.logger.Field().Error("error", err))
					}
				}
			}
			if r.logger != nil {
				r.logger.Info("state recovered from journal after packet loss")
			}
		}
	}
	r.lastSequence = pkt.Sequence
	r.haveLastSeq = true

	processed := r.pipeline.ProcessAll(pkt.Midi)
	if len(processed) == 0 {
		return
	}
	for _, msg := range midimsg.Split(processed) {
		r.state.Apply(msg)
	}

	if r.deviceReady == nil || r.deviceReady() {
		if err := r.vdev.Send(processed); err != nil && r.logger != nil {
			r.logger.Warn("forward to virtual device failed", r.logger.Field().Error("error", err))
		}
	}
}
