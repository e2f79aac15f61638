// Package host implements the MIDInet host daemon (spec §4.3-§4.11):
// dual-controller input arbitration, pipeline processing, multicast
// publishing with unicast fan-out, heartbeat-driven role advertising,
// focus arbitration for upstream feedback, manual failover triggers,
// and discovery.
package host

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/internal/devio"
	"github.com/hakolsound/midinet/internal/osctrigger"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/inputmux"
	"github.com/hakolsound/midinet/sdk/midimsg"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/state"
)

// RegistryPruneInterval is how often client records older than
// RegistryMaxAge are dropped, so a stale entry doesn't linger in the
// unicast fan-out list forever.
const RegistryPruneInterval = 30 * time.Second

// RegistryMaxAge is how long a client record survives without being
// touched again.
const RegistryMaxAge = 60 * time.Second

// UnicastRefreshInterval controls how often the relay's target list is
// rebuilt from the live registry.
const UnicastRefreshInterval = time.Second

// Daemon owns every host-side subsystem and runs them to completion
// under a single context.
type Daemon struct {
	cfg    config.HostConfig
	logger contracts.Logger

	registry *ClientRegistry
	failover *FailoverManager
	focus    *FocusManager
	mux      *inputmux.Mux
	pipeline *pipeline.Pipeline
	state    *state.MidiState

	primaryReader   *InputReader
	secondaryReader *InputReader
	output          contracts.OutputDevice

	broadcaster *Broadcaster
	heartbeat   *HeartbeatSender
	identity    *IdentitySender
	control     *ControlReceiver
	discovery   *DiscoveryResponder
	oscListener *osctrigger.Listener
	midiTrigger *MIDITrigger

	unicastRelay *UnicastRelay
}

// New builds every subsystem, opening its sockets and physical
// devices, but starts nothing until Run is called.
func New(cfg config.HostConfig, primaryDeviceID, secondaryDeviceID int, logger contracts.Logger) (*Daemon, error) {
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		registry: NewClientRegistry(),
		pipeline: pipeline.New(&cfg.Pipeline),
		state:    state.New(),
	}

	d.failover = NewFailoverManager(protocol.RolePrimary, time.Duration(cfg.Failover.LockoutSeconds)*time.Second, logger)

	primaryIn, err := devio.NewInput(cfg.DeviceName+"-A", logger)
	if err != nil {
		return nil, fmt.Errorf("host: open primary controller: %w", err)
	}
	if err := primaryIn.SelectDevice(primaryDeviceID); err != nil {
		return nil, fmt.Errorf("host: select primary controller: %w", err)
	}
	d.primaryReader = NewInputReader(primaryIn, logger)

	secondaryIn, err := devio.NewInput(cfg.DeviceName+"-B", logger)
	if err != nil {
		return nil, fmt.Errorf("host: open secondary controller: %w", err)
	}
	if err := secondaryIn.SelectDevice(secondaryDeviceID); err != nil {
		return nil, fmt.Errorf("host: select secondary controller: %w", err)
	}
	d.secondaryReader = NewInputReader(secondaryIn, logger)

	d.mux = inputmux.New(d.primaryReader.Consumer(), d.secondaryReader.Consumer(), logger)

	output, err := devio.NewOutput(logger)
	if err != nil {
		return nil, fmt.Errorf("host: open feedback output: %w", err)
	}
	d.output = output

	dataConn, err := sendSocket()
	if err != nil {
		return nil, fmt.Errorf("host: open data socket: %w", err)
	}
	hbConn, err := sendSocket()
	if err != nil {
		return nil, fmt.Errorf("host: open heartbeat socket: %w", err)
	}
	controlRecvConn, err := joinMulticast(cfg.Network.ControlGroup, cfg.Network.ControlPort)
	if err != nil {
		return nil, fmt.Errorf("host: join control group: %w", err)
	}
	focusAckConn, err := sendSocket()
	if err != nil {
		return nil, fmt.Errorf("host: open focus ack socket: %w", err)
	}
	discoveryConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: int(cfg.Network.DiscoveryPort)})
	if err != nil {
		return nil, fmt.Errorf("host: open discovery socket: %w", err)
	}

	d.unicastRelay = NewUnicastRelay(dataConn)
	d.broadcaster = NewBroadcaster(d.mux, d.pipeline, d.state, cfg.HostID, dataConn, udpAddr(cfg.Network.DataGroup, cfg.Network.DataPort), d.unicastRelay, logger)
	d.heartbeat = NewHeartbeatSender(cfg.HostID, d.failover.Role(), time.Duration(cfg.Heartbeat.IntervalMS)*time.Millisecond, hbConn, udpAddr(cfg.Network.DataGroup, cfg.Network.HeartbeatPort), d.unicastRelay, logger)
	d.identity = NewIdentitySender(cfg, dataConn, udpAddr(cfg.Network.DataGroup, cfg.Network.DataPort), d.unicastRelay, logger)

	d.focus = NewFocusManager(focusAckConn, udpAddr(cfg.Network.ControlGroup, cfg.Network.ControlPort), logger)
	focusListener := NewControlListener(d.focus)
	feedbackReceiver := NewFeedbackReceiver(d.pipeline, d.focus, d.output, logger)
	d.control = NewControlReceiver(controlRecvConn, focusListener, feedbackReceiver, d.registry, logger)

	d.discovery = NewDiscoveryResponder(discoveryConn, cfg, d.failover.Role(), protocol.Version, logger)

	if cfg.Failover.OSC != nil && cfg.Failover.OSC.Enabled {
		listener, err := osctrigger.New(cfg.Failover.OSC.AllowCIDRs, osctrigger.Handlers{
			SwitchFailover: d.failover.TriggerSwitch,
			SwitchInput:    d.switchInput,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("host: build osc trigger listener: %w", err)
		}
		d.oscListener = listener
	}

	if cfg.Failover.MIDITrigger != nil {
		d.midiTrigger = NewMIDITrigger(*cfg.Failover.MIDITrigger, d.failover, logger)
	}

	return d, nil
}

// Run starts every subsystem and blocks until ctx is canceled or a
// subsystem returns a fatal error.
func (d *Daemon) Run(ctx context.Context) error {
	d.primaryReader.Start()
	d.secondaryReader.Start()
	go d.primaryReader.ForwardHealth(0, d.mux)
	go d.secondaryReader.ForwardHealth(1, d.mux)

	if d.midiTrigger != nil {
		d.broadcaster.SetRawTap(func(burst []byte) {
			for _, msg := range midimsg.Split(burst) {
				d.midiTrigger.Observe(msg)
			}
		})
	}

	if d.oscListener != nil {
		addr := d.cfg.OSC.ListenPort
		if err := d.oscListener.Start(int(addr)); err != nil {
			return fmt.Errorf("host: start osc trigger listener: %w", err)
		}
		defer d.oscListener.Close()
	}

	errCh := make(chan error, 8)
	run := func(f func(context.Context) error) {
		go func() { errCh <- f(ctx) }()
	}
	run(d.broadcaster.Run)
	run(d.heartbeat.Run)
	run(d.identity.Run)
	run(d.control.Run)
	run(d.discovery.Run)
	go d.focus.RunAutoRelease(ctx)
	go d.runRegistryMaintenance(ctx)

	if d.cfg.Discovery.MDNS {
		if err := AdvertiseMDNS(ctx, d.cfg, d.logger); err != nil && d.logger != nil {
			d.logger.Warn("mdns advertise failed", d.logger.Field().Error("error", err))
		}
	}

	select {
	case <-ctx.Done():
		_ = d.primaryReader.Stop()
		_ = d.secondaryReader.Stop()
		_ = d.output.Close()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// switchInput implements the `/midinet/input/switch` OSC address (spec
// §6): target selects an explicit controller index, or nil toggles.
func (d *Daemon) switchInput(target *int) error {
	if target != nil {
		d.mux.Switch(*target)
		return nil
	}
	d.mux.Switch(1 - d.mux.ActiveIndex())
	return nil
}

func (d *Daemon) runRegistryMaintenance(ctx context.Context) {
	ticker := time.NewTicker(UnicastRefreshInterval)
	defer ticker.Stop()
	var sincePrune time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.unicastRelay.SetTargets(AddrsFromRegistry(d.registry, d.cfg.Network.DataPort))
			sincePrune += UnicastRefreshInterval
			if sincePrune >= RegistryPruneInterval {
				sincePrune = 0
				d.registry.Prune(RegistryMaxAge)
			}
		}
	}
}
