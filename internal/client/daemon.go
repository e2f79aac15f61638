// Package client implements the MIDInet client daemon (spec §4.5,
// §4.7-§4.8): broadcast discovery of hosts, dual-host failover
// monitoring, multicast reception with journal-driven reconciliation,
// focus-protocol feedback upload, and a loopback health surface.
package client

import (
	"context"
	"fmt"
	"net"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/state"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// Daemon owns every client-side subsystem and runs them to completion
// under a single context.
type Daemon struct {
	cfg      config.ClientConfig
	clientID uint32
	logger   contracts.Logger

	table    *HostTable
	device   *DeviceHandle
	pipeline *pipeline.Pipeline
	state    *state.MidiState

	discoverer *Discoverer
	failover   *FailoverMonitor
	receiver   *Receiver
	focus      *FocusClient
	health     *HealthCollector
	healthSrv  *HealthServer
	watchdog   *Watchdog
	bridge     *BridgeReconnector

	dataConn *net.UDPConn
	hbConn   *net.UDPConn
	ctrlConn *net.UDPConn
}

// New builds every client subsystem, opening its sockets (and, for the
// non-bridge backend, its local device) but starting nothing until Run
// is called.
func New(cfg config.ClientConfig, logger contracts.Logger) (*Daemon, error) {
	d := &Daemon{
		cfg:      cfg,
		clientID: contracts.NewClientID(),
		logger:   logger,
		table:    NewHostTable(),
		device:   NewDeviceHandle(),
		pipeline: pipeline.New(&cfg.Pipeline),
		state:    state.New(),
	}

	var err error
	if d.dataConn, err = joinMulticast(cfg.Network.DataGroup, cfg.Network.DataPort); err != nil {
		return nil, fmt.Errorf("client: join data group: %w", err)
	}
	if d.hbConn, err = joinMulticast(cfg.Network.DataGroup, cfg.Network.HeartbeatPort); err != nil {
		return nil, fmt.Errorf("client: join heartbeat group: %w", err)
	}
	if d.ctrlConn, err = joinMulticast(cfg.Network.ControlGroup, cfg.Network.ControlPort); err != nil {
		return nil, fmt.Errorf("client: join control group: %w", err)
	}

	d.discoverer, err = NewDiscoverer(d.clientID, cfg.Network.DiscoveryPort, d.table, logger)
	if err != nil {
		return nil, fmt.Errorf("client: build discoverer: %w", err)
	}

	d.failover = NewFailoverMonitor(d.hbConn, d.table, cfg.Heartbeat, cfg.SwitchBackPolicy, d.device, d.state, logger)
	d.focus = NewFocusClient(d.clientID, d.ctrlConn, cfg.Network.ControlGroup, cfg.Network.ControlPort, d.pipeline, d.device, d.failover, cfg.Focus.AutoClaim, logger)
	d.health = NewHealthCollector(d.failover, d.focus)
	d.receiver = NewReceiver(d.dataConn, d.pipeline, d.state, d.device, d.failover, d.health, d.device.Ready, logger)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.HealthPort)
	d.healthSrv = NewHealthServer(addr, d.health, d.focus, logger)
	d.watchdog = NewWatchdog(logger)

	identity := contracts.DeviceIdentity{Name: cfg.Device.Name}
	if cfg.Device.UseBridge {
		d.bridge = NewBridgeReconnector(identity, d.device.Swap, logger)
	} else {
		local, err := NewLocalDevice(cfg.Device.Name, cfg.Device.DeviceID, logger)
		if err != nil {
			return nil, fmt.Errorf("client: open local device: %w", err)
		}
		if err := local.Create(identity); err != nil {
			return nil, fmt.Errorf("client: create local device: %w", err)
		}
		d.device.Swap(local)
	}

	return d, nil
}

// Run starts every subsystem and blocks until ctx is canceled or a
// subsystem returns a fatal error.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 8)
	run := func(f func(context.Context) error) {
		go func() { errCh <- f(ctx) }()
	}

	run(d.discoverer.Run)
	run(d.failover.Run)
	run(d.receiver.Run)
	run(func(ctx context.Context) error { return d.focus.Run(ctx, d.device.Ready) })
	run(d.watchdog.Run)
	if d.bridge != nil {
		run(d.bridge.Run)
	}

	go func() {
		if err := d.healthSrv.ListenAndServe(); err != nil && d.logger != nil {
			d.logger.Warn("health server stopped", d.logger.Field().Error("error", err))
		}
	}()

	select {
	case <-ctx.Done():
		_ = d.healthSrv.Shutdown()
		_ = d.device.Close()
		_ = d.dataConn.Close()
		_ = d.hbConn.Close()
		_ = d.ctrlConn.Close()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

var _ virtualdevice.Device = (*DeviceHandle)(nil)
