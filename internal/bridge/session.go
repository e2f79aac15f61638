package bridge

import (
	"net"
	"time"

	"github.com/hakolsound/midinet/internal/bridgeipc"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// ReadTimeout bounds each individual frame read so the session loop can
// re-check the idle deadline instead of blocking forever in a syscall
// (spec §5: "the host read timeout on the bridge IPC is 5s").
const ReadTimeout = 5 * time.Second

// IdleTimeout disconnects a client that has sent nothing — not even a
// Heartbeat — for this long (spec §5: "idle beyond 10s disconnects the
// client").
const IdleTimeout = 10 * time.Second

// Session is one client connection to the bridge sidecar: it performs
// the Identity/Ack handshake, then relays SendMidi frames to the owned
// device and the device's feedback back as FeedbackMidi frames, until
// the connection drops or goes idle.
type Session struct {
	conn     net.Conn
	registry *DeviceRegistry
	logger   contracts.Logger

	deviceName string
	device     virtualdevice.Device
}

// NewSession wraps an accepted connection.
func NewSession(conn net.Conn, registry *DeviceRegistry, logger contracts.Logger) *Session {
	return &Session{conn: conn, registry: registry, logger: logger}
}

// Run performs the handshake and then services the connection until it
// closes. The registry's device is never closed here — only silenced
// on disconnect — so it survives the client's next reconnect.
func (s *Session) Run() {
	defer s.conn.Close()

	if err := s.handshake(); err != nil {
		if s.logger != nil {
			s.logger.Warn("bridge session handshake failed", s.logger.Field().Error("error", err))
		}
		return
	}
	defer s.registry.Release(s.deviceName)

	stopFeedback := make(chan struct{})
	defer close(stopFeedback)
	go s.relayFeedback(stopFeedback)

	lastActivity := time.Now()
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
			return
		}
		frame, err := bridgeipc.ReadFrame(s.conn)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if time.Since(lastActivity) > IdleTimeout {
					if s.logger != nil {
						s.logger.Info("bridge session idle timeout; disconnecting")
					}
					return
				}
				continue
			}
			return
		}
		lastActivity = time.Now()
		s.dispatch(frame)
	}
}

func (s *Session) handshake() error {
	frame, err := bridgeipc.ReadFrame(s.conn)
	if err != nil {
		return err
	}
	identity, err := bridgeipc.DecodeIdentity(frame.Payload)
	if err != nil {
		return err
	}

	s.deviceName = identity.DeviceName

	// Acquire itself detects an identity mismatch against whatever was
	// last registered under this name and evicts+recreates (spec
	// §4.10) — a new Session is spawned per connection, so there is no
	// prior identity on s to compare against here.
	dev, created, err := s.registry.Acquire(contracts.DeviceIdentity{
		Name:         identity.DeviceName,
		Manufacturer: identity.Manufacturer,
	})
	if err != nil {
		return err
	}
	s.device = dev

	payload, err := bridgeipc.EncodeAck(bridgeipc.AckPayload{Created: created, DeviceName: identity.DeviceName})
	if err != nil {
		return err
	}
	return bridgeipc.WriteFrame(s.conn, bridgeipc.Frame{Type: bridgeipc.FrameAck, Payload: payload})
}

func (s *Session) dispatch(frame bridgeipc.Frame) {
	switch frame.Type {
	case bridgeipc.FrameSendMidi:
		if err := s.device.Send(frame.Payload); err != nil && s.logger != nil {
			s.logger.Warn("bridge device send failed", s.logger.Field().Error("error", err))
		}
	case bridgeipc.FrameHeartbeat:
		// handled by the idle-timeout reset in Run; no payload to act on.
	}
}

func (s *Session) relayFeedback(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-s.device.Receive():
			if !ok {
				return
			}
			if err := bridgeipc.WriteFrame(s.conn, bridgeipc.Frame{Type: bridgeipc.FrameFeedback, Payload: msg}); err != nil {
				return
			}
		}
	}
}
