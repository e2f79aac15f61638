//go:build darwin

// Package devdarwin backs contracts.InputDevice with CoreMIDI on macOS,
// adapted from the teacher's mididarwin client to push raw MIDI bytes
// through a RawHandler instead of a fixed three-field event struct, so
// the same backend can feed the host's ring buffer.
package devdarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

var (
	ErrNoMIDIDevices       = errors.New("devdarwin: no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("devdarwin: invalid MIDI device")
	ErrMIDIConnectionError = errors.New("devdarwin: error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("devdarwin: error creating input port")
)

type portConnection interface {
	Disconnect()
}

// Device implements contracts.InputDevice over CoreMIDI.
type Device struct {
	logger    contracts.Logger
	client    coremidi.Client
	inputPort coremidi.InputPort
	portConn  portConnection

	handler atomic.Value // contracts.RawHandler
	health  atomic.Value // chan<- contracts.HealthEvent

	mu        sync.Mutex
	capturing bool
}

// New opens a CoreMIDI client under the given client name.
func New(clientName string, logger contracts.Logger) (*Device, error) {
	client, err := coremidi.NewClient(clientName)
	if err != nil {
		return nil, fmt.Errorf("devdarwin: new client: %w", err)
	}
	return &Device{logger: logger, client: client}, nil
}

func (d *Device) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("devdarwin: list sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, ErrNoMIDIDevices
	}
	out := make([]contracts.DeviceInfo, len(sources))
	for i, src := range sources {
		entity := src.Entity()
		out[i] = contracts.DeviceInfo{
			Name:         src.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return out, nil
}

func (d *Device) SelectDevice(deviceID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("devdarwin: list sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		return ErrInvalidMIDIDevice
	}
	if d.portConn != nil {
		d.portConn.Disconnect()
		d.portConn = nil
	}

	source := sources[deviceID]
	d.inputPort, err = coremidi.NewInputPort(d.client, "midinet-input", d.handlePacket)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}
	d.portConn, err = d.inputPort.Connect(source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
		h <- contracts.HealthEvent{State: contracts.Active}
	}
	return nil
}

func (d *Device) handlePacket(source coremidi.Source, packet coremidi.Packet) {
	h, _ := d.handler.Load().(contracts.RawHandler)
	if h == nil || len(packet.Data) == 0 {
		return
	}
	h(packet.Data)
}

// StartCapture installs handler and health; CoreMIDI delivers on its own
// callback thread, so there is no reader goroutine to spawn here.
func (d *Device) StartCapture(handler contracts.RawHandler, health chan<- contracts.HealthEvent) {
	d.handler.Store(handler)
	d.health.Store(health)
	d.mu.Lock()
	d.capturing = true
	d.mu.Unlock()
}

func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.portConn != nil {
		d.portConn.Disconnect()
		d.portConn = nil
	}
	d.handler.Store(contracts.RawHandler(nil))
	d.capturing = false
	return nil
}
