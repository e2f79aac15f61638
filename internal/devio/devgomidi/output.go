package devgomidi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hakolsound/midinet/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

var ErrNoMIDIOutputs = errors.New("devgomidi: no MIDI output ports found")

// Output implements contracts.OutputDevice, driving the physical
// controller's feedback path (lit pads, motorised faders) with the
// focus-arbitrated upstream stream the host routes back to it.
type Output struct {
	mu   sync.Mutex
	drv  *driverHandle
	out  drivers_Out
	send func(midi.Message) error
}

type drivers_Out interface {
	String() string
	Open() error
	Close() error
}

// driverHandle narrows the portmidi driver to the Outs() call this
// package needs, shared with Device via NewOutput.
type driverHandle struct {
	outs func() ([]drivers_Out, error)
}

// NewOutput wraps the portmidi driver instance of the given Device
// rather than opening another one. devio.NewOutput passes it a Device
// of its own, so a process that opens input and output through devio
// holds one driver handle per direction.
func NewOutput(d *Device) *Output {
	return &Output{drv: &driverHandle{outs: func() ([]drivers_Out, error) {
		outs, err := d.drv.Outs()
		if err != nil {
			return nil, err
		}
		wrapped := make([]drivers_Out, len(outs))
		for i, o := range outs {
			wrapped[i] = o
		}
		return wrapped, nil
	}}}
}

func (o *Output) ListDevices() ([]contracts.DeviceInfo, error) {
	outs, err := o.drv.outs()
	if err != nil {
		return nil, fmt.Errorf("devgomidi: list outputs: %w", err)
	}
	if len(outs) == 0 {
		return nil, ErrNoMIDIOutputs
	}
	info := make([]contracts.DeviceInfo, len(outs))
	for i, p := range outs {
		info[i] = contracts.DeviceInfo{Name: p.String(), EntityName: p.String()}
	}
	return info, nil
}

func (o *Output) SelectDevice(deviceID int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.out != nil {
		_ = o.out.Close()
		o.out = nil
	}
	outs, err := o.drv.outs()
	if err != nil {
		return fmt.Errorf("devgomidi: list outputs: %w", err)
	}
	if deviceID < 0 || deviceID >= len(outs) {
		return fmt.Errorf("devgomidi: invalid device id %d", deviceID)
	}
	out, err := midi.FindOutPort(outs[deviceID].String())
	if err != nil {
		return fmt.Errorf("devgomidi: find port: %w", err)
	}
	if err := out.Open(); err != nil {
		return fmt.Errorf("devgomidi: open port: %w", err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return fmt.Errorf("devgomidi: bind sender: %w", err)
	}
	o.out = out
	o.send = send
	return nil
}

func (o *Output) Send(data []byte) error {
	o.mu.Lock()
	send := o.send
	o.mu.Unlock()
	if send == nil {
		return fmt.Errorf("devgomidi: no output port selected")
	}
	return send(midi.Message(data))
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.out == nil {
		return nil
	}
	err := o.out.Close()
	o.out = nil
	return err
}
