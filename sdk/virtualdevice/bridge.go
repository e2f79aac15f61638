package virtualdevice

import (
	"fmt"
	"io"
	"sync"

	"github.com/hakolsound/midinet/internal/bridgeipc"
	"github.com/hakolsound/midinet/sdk/contracts"
)

// Bridge is a remote handle to a device owned by the bridge sidecar
// (spec §3: "the client's reference to a bridge-owned device is a
// remote handle, not ownership"). It speaks the bridgeipc framing over
// an already-connected conn.
type Bridge struct {
	conn   io.ReadWriteCloser
	logger contracts.Logger

	mu       sync.Mutex
	created  bool
	feedback chan []byte
	done     chan struct{}
}

// NewBridge wraps an established bridge IPC connection. Create sends
// the Identity frame that opens the handshake and marks this handle
// ready; the bridge's Ack reply is not waited for (the read loop
// forwards only Feedback frames).
func NewBridge(conn io.ReadWriteCloser, logger contracts.Logger) *Bridge {
	b := &Bridge{conn: conn, logger: logger, feedback: make(chan []byte, 64), done: make(chan struct{})}
	go b.readLoop()
	return b
}

func (b *Bridge) readLoop() {
	for {
		frame, err := bridgeipc.ReadFrame(b.conn)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("bridge ipc read loop ended", b.logger.Field().Error("error", err))
			}
			close(b.feedback)
			return
		}
		if frame.Type == bridgeipc.FrameFeedback {
			select {
			case b.feedback <- frame.Payload:
			default:
				if b.logger != nil {
					b.logger.Warn("bridge feedback buffer full; dropping")
				}
			}
		}
	}
}

func (b *Bridge) Create(identity contracts.DeviceIdentity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	payload, err := bridgeipc.EncodeIdentity(bridgeipc.IdentityPayload{
		DeviceName:   identity.Name,
		Manufacturer: identity.Manufacturer,
	})
	if err != nil {
		return fmt.Errorf("virtualdevice: encode identity: %w", err)
	}
	if err := bridgeipc.WriteFrame(b.conn, bridgeipc.Frame{Type: bridgeipc.FrameIdentity, Payload: payload}); err != nil {
		return fmt.Errorf("virtualdevice: send identity: %w", err)
	}
	b.created = true
	return nil
}

func (b *Bridge) Send(data []byte) error {
	b.mu.Lock()
	created := b.created
	b.mu.Unlock()
	if !created {
		return ErrNotCreated
	}
	return bridgeipc.WriteFrame(b.conn, bridgeipc.Frame{Type: bridgeipc.FrameSendMidi, Payload: data})
}

func (b *Bridge) Receive() <-chan []byte { return b.feedback }

func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = false
	return b.conn.Close()
}

// SendAllOff asks the bridge-owned device to silence all 16 channels.
func (b *Bridge) SendAllOff() error { return b.Send(allOffSequence()) }

// SilenceAndDetach silences the device then closes this handle without
// asking the bridge to close the underlying OS endpoint — the bridge
// keeps the device alive across client restarts by design (spec §4.10).
func (b *Bridge) SilenceAndDetach() error {
	if err := b.SendAllOff(); err != nil {
		return err
	}
	b.mu.Lock()
	b.created = false
	b.mu.Unlock()
	return nil
}

// Heartbeat sends a FrameHeartbeat, used by the owning client's
// reconnect/keepalive loop.
func (b *Bridge) Heartbeat() error {
	return bridgeipc.WriteFrame(b.conn, bridgeipc.Frame{Type: bridgeipc.FrameHeartbeat})
}
