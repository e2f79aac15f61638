// Package osctrigger implements the OSC failover/input-switch trigger
// named in spec §4.9 and §6: a UDP listener gated by a source CIDR
// allow-list, rebindable at runtime when the configured port changes.
//
// The package owns its own net.ListenUDP loop rather than go-osc's
// built-in Server, because the allow-list check needs the packet's
// source address, which go-osc's dispatcher does not surface; go-osc is
// still used for the actual OSC packet decoding, grounded on
// `other_examples`'s `fjammes-midi2osc`.
package osctrigger

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hypebeast/go-osc/osc"
	"gopkg.in/yaml.v3"
)

const (
	AddressFailoverSwitch = "/midinet/failover/switch"
	AddressInputSwitch    = "/midinet/input/switch"
)

// Handlers are the two actions an incoming OSC trigger can invoke.
type Handlers struct {
	// SwitchFailover is called on AddressFailoverSwitch; args are ignored.
	SwitchFailover func() error
	// SwitchInput is called on AddressInputSwitch. target is nil to
	// toggle, or points at the requested 0/1 index.
	SwitchInput func(target *int) error
}

// Listener is the OSC UDP trigger receiver. It is safe to rebind its
// port while running, per spec §5's "OSC listener rebind on port
// change" broadcast-channel note.
type Listener struct {
	handlers   Handlers
	allowCIDRs []*net.IPNet
	logger     contracts.Logger

	mu   sync.Mutex
	conn *net.UDPConn
	port int
	done chan struct{}
}

// New builds a Listener bound to no socket yet; call Start to bind.
func New(allowCIDRs []string, handlers Handlers, logger contracts.Logger) (*Listener, error) {
	nets, err := parseCIDRs(allowCIDRs)
	if err != nil {
		return nil, err
	}
	return &Listener{handlers: handlers, allowCIDRs: nets, logger: logger}, nil
}

func parseCIDRs(cidrs []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("osctrigger: invalid CIDR %q: %w", c, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Start binds to the given port and begins serving. Call Close or
// Rebind to stop/move it.
func (l *Listener) Start(port int) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("osctrigger: bind port %d: %w", port, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.port = conn.LocalAddr().(*net.UDPAddr).Port
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go l.serve(conn, done)
	return nil
}

// Rebind closes the current socket and opens a new one on newPort. On
// failure, the old socket is left untouched and an error is returned,
// matching spec §5's "if the new port fails to bind, the listener
// reverts and surfaces an error."
func (l *Listener) Rebind(newPort int) error {
	l.mu.Lock()
	oldConn := l.conn
	oldPort := l.port
	l.mu.Unlock()

	newAddr := &net.UDPAddr{IP: net.IPv4zero, Port: newPort}
	newConn, err := net.ListenUDP("udp", newAddr)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("osc rebind failed, keeping old port",
				l.logger.Field().Int("old_port", oldPort),
				l.logger.Field().Int("attempted_port", newPort),
				l.logger.Field().Error("error", err))
		}
		return fmt.Errorf("osctrigger: rebind to %d: %w", newPort, err)
	}

	l.mu.Lock()
	l.conn = newConn
	l.port = newConn.LocalAddr().(*net.UDPAddr).Port
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	if oldConn != nil {
		_ = oldConn.Close()
	}
	go l.serve(newConn, done)
	return nil
}

// WatchPortChanges subscribes to a broadcast of new port numbers (e.g.
// from a config hot-reload) and rebinds on each change.
func (l *Listener) WatchPortChanges(changes *contracts.Broadcast[int]) func() {
	ch, cancel := changes.Subscribe(1)
	go func() {
		for port := range ch {
			if err := l.Rebind(port); err != nil && l.logger != nil {
				l.logger.Error("osc port rebind failed", l.logger.Field().Error("error", err))
			}
		}
	}()
	return cancel
}

func (l *Listener) serve(conn *net.UDPConn, done chan struct{}) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-done:
			return
		default:
		}
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return
			default:
				if l.logger != nil {
					l.logger.Warn("osc read error", l.logger.Field().Error("error", err))
				}
				return
			}
		}
		if !l.sourceAllowed(remote.IP) {
			if l.logger != nil {
				l.logger.Warn("osc trigger rejected: source not in allow-list", l.logger.Field().String("source", remote.IP.String()))
			}
			continue
		}
		l.handle(buf[:n])
	}
}

func (l *Listener) sourceAllowed(ip net.IP) bool {
	if len(l.allowCIDRs) == 0 {
		return false
	}
	for _, n := range l.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (l *Listener) handle(data []byte) {
	packet, err := osc.ParsePacket(string(data))
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("osc packet parse error", l.logger.Field().Error("error", err))
		}
		return
	}
	msg, ok := packet.(*osc.Message)
	if !ok {
		return
	}
	switch msg.Address {
	case AddressFailoverSwitch:
		if l.handlers.SwitchFailover == nil {
			return
		}
		if err := l.handlers.SwitchFailover(); err != nil && l.logger != nil {
			l.logger.Warn("osc failover trigger rejected", l.logger.Field().Error("error", err))
		}
	case AddressInputSwitch:
		if l.handlers.SwitchInput == nil {
			return
		}
		target := parseOptionalIntArg(msg)
		if err := l.handlers.SwitchInput(target); err != nil && l.logger != nil {
			l.logger.Warn("osc input switch rejected", l.logger.Field().Error("error", err))
		}
	}
}

func parseOptionalIntArg(msg *osc.Message) *int {
	if len(msg.Arguments) == 0 {
		return nil
	}
	switch v := msg.Arguments[0].(type) {
	case int32:
		i := int(v)
		return &i
	case int64:
		i := int(v)
		return &i
	default:
		return nil
	}
}

// Close stops serving and releases the socket.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		close(l.done)
	}
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}

// GuardNoteBinding names an extra, user-defined OSC trigger beyond the
// two built-in addresses, kept in its own YAML file rather than the
// main TOML config — mirroring midi2osc's mapping-file split.
type GuardNoteBinding struct {
	Address     string `yaml:"address"`
	GuardNote   uint8  `yaml:"guard_note"`
	GuardHeldMS int    `yaml:"guard_held_ms"`
}

// LoadGuardNoteBindings reads the optional guard-note mapping file; a
// missing file is not an error (the feature is entirely optional).
func LoadGuardNoteBindings(path string) ([]GuardNoteBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("osctrigger: read guard-note file: %w", err)
	}
	var bindings []GuardNoteBinding
	if err := yaml.Unmarshal(data, &bindings); err != nil {
		return nil, fmt.Errorf("osctrigger: parse guard-note file: %w", err)
	}
	return bindings, nil
}
