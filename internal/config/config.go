// Package config defines the TOML-loadable configuration for the host
// and client daemons (spec §6): network group/ports, heartbeat timing,
// the failover section with its REST/MIDI/OSC trigger sub-sections, the
// OSC listener, and the hot-reloadable pipeline config.
package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/BurntSushi/toml"
	"github.com/hakolsound/midinet/sdk/pipeline"
)

// ErrInvalidMulticastGroup is returned when a configured group address
// does not parse as a valid IPv4 multicast address.
var ErrInvalidMulticastGroup = errors.New("config: invalid multicast group")

// ErrInvalidCIDR is returned when an OSC/failover allow-list entry does
// not parse as a CIDR.
var ErrInvalidCIDR = errors.New("config: invalid CIDR allow-list entry")

// Network carries the multicast/broadcast addressing spec §6 names.
type Network struct {
	DataGroup     string `toml:"data_group"`
	DataPort      uint16 `toml:"data_port"`
	HeartbeatPort uint16 `toml:"heartbeat_port"`
	ControlGroup  string `toml:"control_group"`
	ControlPort   uint16 `toml:"control_port"`
	DiscoveryPort uint16 `toml:"discovery_port"`
	AdminPort     uint16 `toml:"admin_port"`
}

// DefaultNetwork matches the addresses/ports named in spec §6.
func DefaultNetwork() Network {
	return Network{
		DataGroup:     "239.69.83.1",
		DataPort:      5004,
		HeartbeatPort: 5005,
		ControlGroup:  "239.69.83.2",
		ControlPort:   5006,
		DiscoveryPort: 5008,
		AdminPort:     5009,
	}
}

// Heartbeat configures heartbeat cadence and the liveness threshold
// (miss_threshold x interval_ms) used by the failover state machine.
type Heartbeat struct {
	IntervalMS    uint32 `toml:"interval_ms"`
	MissThreshold uint32 `toml:"miss_threshold"`
}

// DefaultHeartbeat matches spec §4.7's production example (3ms x 3).
func DefaultHeartbeat() Heartbeat {
	return Heartbeat{IntervalMS: 3, MissThreshold: 3}
}

// MIDITrigger is the (channel, note, velocity-threshold) pattern that
// fires a manual host switchover from the input stream, optionally
// gated by a simultaneously-held guard note (spec §4.9).
type MIDITrigger struct {
	Channel           uint8  `toml:"channel"`
	Note              uint8  `toml:"note"`
	VelocityThreshold uint8  `toml:"velocity_threshold"`
	GuardNote         *uint8 `toml:"guard_note,omitempty"`
}

// OSCTrigger is the failover section's OSC-specific sub-config: the
// listener address and a CIDR allow-list for accepted senders.
type OSCTrigger struct {
	Enabled    bool     `toml:"enabled"`
	Address    string   `toml:"address"`
	AllowCIDRs []string `toml:"allow_cidrs"`
}

// SwitchBackPolicy controls what happens when a standby-active host
// observes the primary become alive again.
type SwitchBackPolicy string

const (
	SwitchBackManual SwitchBackPolicy = "manual"
	SwitchBackAuto   SwitchBackPolicy = "auto"
)

// ConfirmationMode controls whether a manual switch trigger fires
// immediately or requires a confirming second signal (left to the
// external admin surface to implement; named here so its config slot
// exists).
type ConfirmationMode string

const (
	ConfirmationImmediate ConfirmationMode = "immediate"
	ConfirmationConfirm   ConfirmationMode = "confirm"
)

// Failover is the host's failover section: automatic switchover policy
// plus the lockout-guarded manual triggers (spec §4.7, §4.9).
type Failover struct {
	AutoEnabled      bool             `toml:"auto_enabled"`
	SwitchBackPolicy SwitchBackPolicy `toml:"switch_back_policy"`
	LockoutSeconds   uint32           `toml:"lockout_seconds"`
	ConfirmationMode ConfirmationMode `toml:"confirmation_mode"`
	MIDITrigger      *MIDITrigger     `toml:"midi_trigger,omitempty"`
	OSC              *OSCTrigger      `toml:"osc_trigger,omitempty"`
}

// DefaultFailover matches spec §4.7/§4.9's documented defaults.
func DefaultFailover() Failover {
	return Failover{
		AutoEnabled:      true,
		SwitchBackPolicy: SwitchBackManual,
		LockoutSeconds:   5,
		ConfirmationMode: ConfirmationImmediate,
	}
}

// OSC is the top-level OSC listener section (spec §6): the port the
// failover/input-switch addresses are served on.
type OSC struct {
	ListenPort uint16   `toml:"listen_port"`
	AllowCIDRs []string `toml:"allow_cidrs"`
}

// DefaultOSC matches the default port named in spec §6.
func DefaultOSC() OSC {
	return OSC{ListenPort: 8000}
}

// Discovery configures the optional mDNS advertisement layered on top
// of the always-on UDP broadcast responder (SPEC §4.11).
type Discovery struct {
	MDNS bool `toml:"mdns"`
}

// Identity is the host's published DeviceIdentity (spec §3), sourced
// from config since generic MIDI backends have no portable way to read
// a controller's USB VID/PID or SysEx identity reply.
type Identity struct {
	Manufacturer  string `toml:"manufacturer"`
	VendorID      uint16 `toml:"vendor_id"`
	ProductID     uint16 `toml:"product_id"`
	SysExIdentity []byte `toml:"sysex_identity"`
	InputPorts    uint8  `toml:"input_ports"`
	OutputPorts   uint8  `toml:"output_ports"`
}

// HostConfig is the full config file for cmd/midinet-host.
type HostConfig struct {
	HostID     uint8           `toml:"host_id"`
	DeviceName string          `toml:"device_name"`
	Identity   Identity        `toml:"identity"`
	Network    Network         `toml:"network"`
	Heartbeat  Heartbeat       `toml:"heartbeat"`
	Failover   Failover        `toml:"failover"`
	OSC        OSC             `toml:"osc"`
	Discovery  Discovery       `toml:"discovery"`
	Pipeline   pipeline.Config `toml:"pipeline"`
}

// ClientConfig is the full config file for cmd/midinet-client.
type ClientConfig struct {
	Network          Network          `toml:"network"`
	Heartbeat        Heartbeat        `toml:"heartbeat"`
	HealthPort       uint16           `toml:"health_port"`
	SwitchBackPolicy SwitchBackPolicy `toml:"switch_back_policy"`
	Pipeline         pipeline.Config  `toml:"pipeline"`
	Focus            ClientFocus      `toml:"focus"`
	Device           ClientDevice     `toml:"device"`
}

// ClientFocus configures the client's focus-protocol behavior (spec
// §4.8): whether it auto-claims the upstream feedback slot once its
// virtual device is ready.
type ClientFocus struct {
	AutoClaim bool `toml:"auto_claim"`
}

// ClientDevice selects how the client represents the remote controller
// locally: either handed off to a bridge sidecar (spec §4.10) or opened
// directly as a local OS MIDI port pair by device id.
type ClientDevice struct {
	UseBridge bool   `toml:"use_bridge"`
	DeviceID  int    `toml:"device_id"`
	Name      string `toml:"name"`
}

// DefaultClientDevice opens local device id 0 with no bridge, matching
// DefaultClientConfig's out-of-the-box stance.
func DefaultClientDevice() ClientDevice {
	return ClientDevice{Name: "MIDInet Remote Controller"}
}

// DefaultHostConfig returns a HostConfig usable out of the box on a LAN
// with no further configuration.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		HostID:     1,
		DeviceName: "MIDInet Controller",
		Identity:   Identity{InputPorts: 1, OutputPorts: 1},
		Network:    DefaultNetwork(),
		Heartbeat:  DefaultHeartbeat(),
		Failover:   DefaultFailover(),
		OSC:        DefaultOSC(),
		Pipeline:   *pipeline.NewConfig(),
	}
}

// DefaultClientConfig mirrors DefaultHostConfig for the client daemon.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Network:          DefaultNetwork(),
		Heartbeat:        DefaultHeartbeat(),
		HealthPort:       5009,
		SwitchBackPolicy: SwitchBackManual,
		Pipeline:         *pipeline.NewConfig(),
		Focus:            ClientFocus{AutoClaim: true},
		Device:           DefaultClientDevice(),
	}
}

// LoadHost reads and validates a host TOML config file, path.
func LoadHost(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return HostConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := validateGroup(cfg.Network.DataGroup); err != nil {
		return HostConfig{}, err
	}
	if err := validateGroup(cfg.Network.ControlGroup); err != nil {
		return HostConfig{}, err
	}
	if cfg.Failover.OSC != nil {
		if err := validateCIDRs(cfg.Failover.OSC.AllowCIDRs); err != nil {
			return HostConfig{}, err
		}
	}
	if err := validateCIDRs(cfg.OSC.AllowCIDRs); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

// LoadClient reads and validates a client TOML config file.
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := validateGroup(cfg.Network.DataGroup); err != nil {
		return ClientConfig{}, err
	}
	if err := validateGroup(cfg.Network.ControlGroup); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func validateGroup(addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil || !ip.IsMulticast() {
		return fmt.Errorf("%w: %q", ErrInvalidMulticastGroup, addr)
	}
	return nil
}

func validateCIDRs(cidrs []string) error {
	for _, c := range cidrs {
		if _, _, err := net.ParseCIDR(c); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidCIDR, c)
		}
	}
	return nil
}
