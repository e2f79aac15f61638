// Package bridge implements the optional virtual-device bridge sidecar
// (spec §4.10): a long-lived process that owns the OS-visible MIDI
// endpoint independently of the client's lifetime, so downstream apps
// never see the device disappear across a client restart.
package bridge

import (
	"context"
	"fmt"
	"net"

	"github.com/hakolsound/midinet/internal/bridgeipc"
	"github.com/hakolsound/midinet/internal/devio"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/reconcile"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// ownedDevice pairs an output+input port pair under one
// virtualdevice.Device, the same adapter shape
// internal/client/localdevice.go uses for the client's own no-bridge
// backend — the bridge's job is only to keep that pair alive longer
// than any one client connection.
type ownedDevice struct {
	out    contracts.OutputDevice
	in     contracts.InputDevice
	fb     chan []byte
	health chan contracts.HealthEvent
}

func newOwnedDevice(name string, logger contracts.Logger) (*ownedDevice, error) {
	out, err := devio.NewOutput(logger)
	if err != nil {
		return nil, fmt.Errorf("bridge: open output: %w", err)
	}
	in, err := devio.NewInput(name, logger)
	if err != nil {
		return nil, fmt.Errorf("bridge: open input: %w", err)
	}
	return &ownedDevice{out: out, in: in, fb: make(chan []byte, 64), health: make(chan contracts.HealthEvent, 8)}, nil
}

func (d *ownedDevice) Create(contracts.DeviceIdentity) error {
	d.in.StartCapture(func(data []byte) {
		select {
		case d.fb <- append([]byte(nil), data...):
		default:
		}
	}, d.health)
	return nil
}
func (d *ownedDevice) Send(data []byte) error  { return d.out.Send(data) }
func (d *ownedDevice) Receive() <-chan []byte  { return d.fb }
func (d *ownedDevice) Close() error            { _ = d.in.Stop(); return d.out.Close() }
func (d *ownedDevice) SendAllOff() error       { return d.out.Send(reconcile.AllNotesOff()) }
func (d *ownedDevice) SilenceAndDetach() error { return d.SendAllOff() }

var _ virtualdevice.Device = (*ownedDevice)(nil)

// Daemon accepts bridge IPC connections and services each as a Session
// over a shared DeviceRegistry, so multiple client reconnects against
// the same device_name converge on one real OS device.
type Daemon struct {
	registry *DeviceRegistry
	logger   contracts.Logger
	listener net.Listener
}

// New builds a Daemon whose devices are real OS MIDI port pairs,
// selected by the devio backend for the host OS (spec §9's tagged
// {Alsa, CoreMidi, TeVirtualMidi, MidiServices, Bridge, Stub} device
// dispatch collapses, on this module's driver set, to whatever
// internal/devio resolves for the current OS).
func New(logger contracts.Logger) *Daemon {
	factory := func(name string) (virtualdevice.Device, error) {
		return newOwnedDevice(name, logger)
	}
	return &Daemon{registry: NewDeviceRegistry(factory), logger: logger}
}

// Run listens on the bridge IPC transport and services connections
// until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen(bridgeipc.Network(), bridgeipc.DefaultAddress())
	if err != nil {
		return fmt.Errorf("bridge: listen on %s: %w", bridgeipc.DefaultAddress(), err)
	}
	d.listener = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.logger != nil {
				d.logger.Warn("bridge accept failed", d.logger.Field().Error("error", err))
			}
			continue
		}
		go NewSession(conn, d.registry, d.logger).Run()
	}
}
