package client

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// FeedbackPollInterval is how often FocusClient drains the virtual
// device for upstream feedback while it holds focus.
const FeedbackPollInterval = 5 * time.Millisecond

// FocusClient implements the client side of spec §4.8's focus
// protocol: claims/releases focus over the control multicast group,
// tracks whether this client currently holds it, and while holding it
// drains the virtual device's feedback channel upstream to the active
// host.
type FocusClient struct {
	clientID uint32
	dest     *net.UDPAddr
	conn     *net.UDPConn

	pipeline *pipeline.Pipeline
	vdev     virtualdevice.Device
	failover *FailoverMonitor
	autoClaim bool

	sequence uint16
	hasFocus *contracts.Watch[bool]

	logger contracts.Logger
}

// NewFocusClient builds a FocusClient bound to an already-joined
// control-group conn (send+receive, mirroring the host's single-socket
// pattern from internal/host/control_receiver.go).
func NewFocusClient(clientID uint32, conn *net.UDPConn, controlGroup string, controlPort uint16, pl *pipeline.Pipeline, vdev virtualdevice.Device, failover *FailoverMonitor, autoClaim bool, logger contracts.Logger) *FocusClient {
	return &FocusClient{
		clientID:  clientID,
		dest:      &net.UDPAddr{IP: net.ParseIP(controlGroup), Port: int(controlPort)},
		conn:      conn,
		pipeline:  pl,
		vdev:      vdev,
		failover:  failover,
		autoClaim: autoClaim,
		hasFocus:  contracts.NewWatch(false),
		logger:    logger,
	}
}

// HasFocus exposes whether this client currently holds the upstream
// feedback slot.
func (f *FocusClient) HasFocus() *contracts.Watch[bool] { return f.hasFocus }

// Claim sends an explicit FocusClaim, used both for auto-claim on
// startup and for a user-triggered claim (e.g. via the health server's
// POST /focus/claim).
func (f *FocusClient) Claim() error {
	return f.send(protocol.FocusClaim)
}

// Release sends an explicit FocusRelease.
func (f *FocusClient) Release() error {
	return f.send(protocol.FocusRelease)
}

func (f *FocusClient) send(action protocol.FocusAction) error {
	pkt := &protocol.FocusPacket{
		Action:      action,
		ClientID:    f.clientID,
		Sequence:    f.sequence,
		TimestampUS: uint64(time.Now().UnixMicro()),
	}
	f.sequence++
	_, err := f.conn.WriteToUDP(pkt.Encode(), f.dest)
	return err
}

// Run waits for deviceReady, auto-claims if configured, then services
// incoming Ack/Release notifications and the feedback drain loop until
// ctx is canceled.
func (f *FocusClient) Run(ctx context.Context, deviceReady func() bool) error {
	for !deviceReady() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	if f.autoClaim {
		if err := f.Claim(); err != nil && f.logger != nil {
			f.logger.Warn("focus auto-claim failed", f.logger.Field().Error("error", err))
		}
	}

	go f.recvLoop(ctx)

	ticker := time.NewTicker(FeedbackPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.drainFeedback()
		}
	}
}

func (f *FocusClient) recvLoop(ctx context.Context) {
	buf := make([]byte, protocol.FocusSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return
		}
		n, _, err := f.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		pkt, err := protocol.DecodeFocusPacket(buf[:n])
		if err != nil {
			continue
		}
		switch pkt.Action {
		case protocol.FocusAck:
			granted := pkt.ClientID == f.clientID
			f.hasFocus.Set(granted)
			if f.logger != nil && granted {
				f.logger.Info("focus granted")
			}
		case protocol.FocusRelease:
			if pkt.ClientID == f.clientID {
				f.hasFocus.Set(false)
				if f.logger != nil {
					f.logger.Info("focus released")
				}
			}
		}
	}
}

// drainFeedback forwards every pending virtual-device message upstream
// as a MidiDataPacket on the same control-group socket used for focus
// claims, so the host's FocusManager.IsHolderAddr check recognizes the
// source (spec §4.8 step 3).
func (f *FocusClient) drainFeedback() {
	if !f.hasFocus.Get() {
		return
	}
	if f.failover == nil || f.failover.ActiveHostID().Get() == 0 {
		return
	}

	for {
		select {
		case msg, ok := <-f.vdev.Receive():
			if !ok {
				return
			}
			processed := f.pipeline.ProcessAll(msg)
			if len(processed) == 0 {
				continue
			}
			pkt := &protocol.MidiDataPacket{
				Sequence: f.sequence,
				HostID:   0,
				Midi:     processed,
			}
			f.sequence++
			if _, err := f.conn.WriteToUDP(pkt.Encode(), f.dest); err != nil && f.logger != nil {
				f.logger.Warn("feedback send failed", f.logger.Field().Error("error", err))
			}
		default:
			return
		}
	}
}
