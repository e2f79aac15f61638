package client

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/internal/bridgeipc"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// BridgeReconnectBase and BridgeReconnectMax bound the exponential
// backoff a client applies when its bridge sidecar connection drops,
// supplemented from original_source's bridge-client retry loop (not
// named in spec.md, but required for spec §4.10's "the bridge keeps
// the device alive across client restarts" to mean anything in
// practice — a client that never reconnects never sees it).
const (
	BridgeReconnectBase = 100 * time.Millisecond
	BridgeReconnectMax  = 5 * time.Second
)

// DialBridge connects to the local bridge sidecar and completes its
// identity handshake, returning a ready-to-use virtualdevice.Bridge
// handle.
func DialBridge(identity contracts.DeviceIdentity, logger contracts.Logger) (*virtualdevice.Bridge, error) {
	conn, err := net.Dial(bridgeipc.Network(), bridgeipc.DefaultAddress())
	if err != nil {
		return nil, err
	}
	b := virtualdevice.NewBridge(conn, logger)
	if err := b.Create(identity); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// BridgeReconnector keeps a virtualdevice.Bridge handle alive across
// sidecar restarts, redialing with exponential backoff whenever the
// connection drops, and swapping the new handle in via onReconnect.
type BridgeReconnector struct {
	identity    contracts.DeviceIdentity
	onReconnect func(*virtualdevice.Bridge)
	logger      contracts.Logger
}

// NewBridgeReconnector builds a reconnector; onReconnect is called with
// every freshly dialed handle, including the first.
func NewBridgeReconnector(identity contracts.DeviceIdentity, onReconnect func(*virtualdevice.Bridge), logger contracts.Logger) *BridgeReconnector {
	return &BridgeReconnector{identity: identity, onReconnect: onReconnect, logger: logger}
}

// Run dials, hands the handle to onReconnect, then blocks on a
// heartbeat keepalive loop; when that loop ends (connection dropped) it
// redials with backoff, resetting the delay on every successful dial.
func (r *BridgeReconnector) Run(ctx context.Context) error {
	delay := BridgeReconnectBase
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b, err := DialBridge(r.identity, r.logger)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("bridge dial failed, retrying", r.logger.Field().Duration("delay", delay), r.logger.Field().Error("error", err))
			}
			if !sleepOrDone(ctx, delay) {
				return ctx.Err()
			}
			delay = nextBackoff(delay)
			continue
		}

		delay = BridgeReconnectBase
		r.onReconnect(b)
		r.keepalive(ctx, b)
		_ = b.Close()
	}
}

func (r *BridgeReconnector) keepalive(ctx context.Context, b *virtualdevice.Bridge) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Heartbeat(); err != nil {
				if r.logger != nil {
					r.logger.Warn("bridge heartbeat failed; reconnecting", r.logger.Field().Error("error", err))
				}
				return
			}
		}
	}
}

func nextBackoff(delay time.Duration) time.Duration {
	next := delay * 2
	if next > BridgeReconnectMax {
		return BridgeReconnectMax
	}
	return next
}

func sleepOrDone(ctx context.Context, delay time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
