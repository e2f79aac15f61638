// Package devgomidi backs contracts.InputDevice with
// gitlab.com/gomidi/midi/v2 over portmidi, the cross-platform fallback
// used where no OS-specific backend (devdarwin, devwindows) applies —
// most notably Linux/ALSA, which the teacher shipped no backend for at
// all.
package devgomidi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hakolsound/midinet/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	driver "gitlab.com/gomidi/midi/v2/drivers/portmididrv"
)

var ErrNoMIDIDevices = errors.New("devgomidi: no MIDI input ports found")

// Device implements contracts.InputDevice over a portmidi driver
// instance, shared across ListDevices/SelectDevice/Stop calls.
type Device struct {
	logger contracts.Logger

	mu     sync.Mutex
	drv    *driver.Driver
	in     drivers_In
	stopFn func()

	handler atomic.Value // contracts.RawHandler
	health  atomic.Value // chan<- contracts.HealthEvent
}

// drivers_In narrows drivers.In to the subset this package calls,
// avoiding a direct import of the drivers package's In type name.
type drivers_In interface {
	String() string
	Open() error
	Close() error
}

// New opens the portmidi driver.
func New(logger contracts.Logger) (*Device, error) {
	drv, err := driver.New()
	if err != nil {
		return nil, fmt.Errorf("devgomidi: open driver: %w", err)
	}
	return &Device{logger: logger, drv: drv}, nil
}

func (d *Device) ListDevices() ([]contracts.DeviceInfo, error) {
	ins, err := d.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("devgomidi: list inputs: %w", err)
	}
	if len(ins) == 0 {
		return nil, ErrNoMIDIDevices
	}
	out := make([]contracts.DeviceInfo, len(ins))
	for i, p := range ins {
		out[i] = contracts.DeviceInfo{Name: p.String(), EntityName: p.String()}
	}
	return out, nil
}

func (d *Device) SelectDevice(deviceID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopFn != nil {
		d.stopFn()
		d.stopFn = nil
	}
	if d.in != nil {
		d.in.Close()
		d.in = nil
	}

	ins, err := d.drv.Ins()
	if err != nil {
		return fmt.Errorf("devgomidi: list inputs: %w", err)
	}
	if deviceID < 0 || deviceID >= len(ins) {
		return fmt.Errorf("devgomidi: invalid device id %d", deviceID)
	}

	in, err := midi.FindInPort(ins[deviceID].String())
	if err != nil {
		if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
			h <- contracts.HealthEvent{State: contracts.Disconnected, Message: err.Error()}
		}
		return fmt.Errorf("devgomidi: find port: %w", err)
	}
	if err := in.Open(); err != nil {
		if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
			h <- contracts.HealthEvent{State: contracts.Disconnected, Message: err.Error()}
		}
		return fmt.Errorf("devgomidi: open port: %w", err)
	}
	d.in = in

	stop, err := midi.ListenTo(in, d.onMessage, midi.UseSysEx())
	if err != nil {
		return fmt.Errorf("devgomidi: listen: %w", err)
	}
	d.stopFn = stop

	if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
		h <- contracts.HealthEvent{State: contracts.Active}
	}
	return nil
}

func (d *Device) onMessage(msg midi.Message, _ int32) {
	h, _ := d.handler.Load().(contracts.RawHandler)
	if h == nil || len(msg) == 0 {
		return
	}
	h([]byte(msg))
}

func (d *Device) StartCapture(handler contracts.RawHandler, health chan<- contracts.HealthEvent) {
	d.handler.Store(handler)
	d.health.Store(health)
}

func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopFn != nil {
		d.stopFn()
		d.stopFn = nil
	}
	if d.in != nil {
		err := d.in.Close()
		d.in = nil
		return err
	}
	return nil
}

// Close releases the underlying driver handle. It must be called once
// per Device, after the last Stop.
func (d *Device) Close() error {
	return d.drv.Close()
}
