package client

import (
	"fmt"

	"github.com/hakolsound/midinet/internal/devio"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/reconcile"
)

// LocalDevice is the no-bridge virtualdevice.Device backend: a real OS
// MIDI port pair (output to drive the physical controller this client
// represents, input to read its feedback, e.g. motorized-fader echoes
// or LED-state SysEx) selected the same way the host selects its
// physical controllers in internal/host/daemon.go.
type LocalDevice struct {
	out    contracts.OutputDevice
	in     contracts.InputDevice
	health chan contracts.HealthEvent
	fb     chan []byte
	logger contracts.Logger
}

// NewLocalDevice opens the output and input backends and selects
// deviceID on each.
func NewLocalDevice(name string, deviceID int, logger contracts.Logger) (*LocalDevice, error) {
	out, err := devio.NewOutput(logger)
	if err != nil {
		return nil, fmt.Errorf("client: open local output: %w", err)
	}
	if err := out.SelectDevice(deviceID); err != nil {
		return nil, fmt.Errorf("client: select local output: %w", err)
	}
	in, err := devio.NewInput(name, logger)
	if err != nil {
		return nil, fmt.Errorf("client: open local input: %w", err)
	}
	if err := in.SelectDevice(deviceID); err != nil {
		return nil, fmt.Errorf("client: select local input: %w", err)
	}
	return &LocalDevice{
		out:    out,
		in:     in,
		health: make(chan contracts.HealthEvent, 8),
		fb:     make(chan []byte, 64),
		logger: logger,
	}, nil
}

func (d *LocalDevice) Create(contracts.DeviceIdentity) error {
	d.in.StartCapture(func(data []byte) {
		select {
		case d.fb <- append([]byte(nil), data...):
		default:
			if d.logger != nil {
				d.logger.Warn("local device feedback buffer full; dropping")
			}
		}
	}, d.health)
	return nil
}

func (d *LocalDevice) Send(data []byte) error { return d.out.Send(data) }

func (d *LocalDevice) Receive() <-chan []byte { return d.fb }

func (d *LocalDevice) Close() error {
	_ = d.in.Stop()
	return d.out.Close()
}

func (d *LocalDevice) SendAllOff() error { return d.out.Send(reconcile.AllNotesOff()) }

func (d *LocalDevice) SilenceAndDetach() error {
	if err := d.SendAllOff(); err != nil {
		return err
	}
	return d.Close()
}
