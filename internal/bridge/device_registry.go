package bridge

import (
	"fmt"
	"sync"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// DeviceFactory builds a fresh virtualdevice.Device for a given name,
// left pluggable so tests can hand in virtualdevice.Stub instead of a
// real OS port.
type DeviceFactory func(name string) (virtualdevice.Device, error)

// DeviceRegistry tracks bridge-owned devices by name (spec §4.10's
// create-or-reuse-by-name rule): a client that reconnects with the same
// device_name gets the same live device back, created=false — unless
// its full identity no longer matches the one last acquired under that
// name, in which case the stale device is evicted and recreated (spec
// §4.10's identity-mismatch rule).
type DeviceRegistry struct {
	mu         sync.Mutex
	factory    DeviceFactory
	devices    map[string]virtualdevice.Device
	identities map[string]contracts.DeviceIdentity
}

// NewDeviceRegistry builds an empty registry using factory to create
// devices on first reference to a name.
func NewDeviceRegistry(factory DeviceFactory) *DeviceRegistry {
	return &DeviceRegistry{
		factory:    factory,
		devices:    make(map[string]virtualdevice.Device),
		identities: make(map[string]contracts.DeviceIdentity),
	}
}

// Acquire returns the device for identity.Name, creating it via the
// factory if this is the first time the name has been seen, or if the
// incoming identity no longer matches the one last acquired under that
// name. created reports whether a new device was just built.
func (r *DeviceRegistry) Acquire(identity contracts.DeviceIdentity) (dev virtualdevice.Device, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[identity.Name]; ok {
		if r.identities[identity.Name].Equal(identity) {
			return existing, false, nil
		}
		delete(r.devices, identity.Name)
		delete(r.identities, identity.Name)
		_ = existing.Close()
	}

	dev, err = r.factory(identity.Name)
	if err != nil {
		return nil, false, fmt.Errorf("bridge: create device %q: %w", identity.Name, err)
	}
	if err := dev.Create(identity); err != nil {
		return nil, false, fmt.Errorf("bridge: initialize device %q: %w", identity.Name, err)
	}
	r.devices[identity.Name] = dev
	r.identities[identity.Name] = identity
	return dev, true, nil
}

// Release silences a device on client disconnect without closing it
// (spec §4.10: "bridge silences the device but keeps it alive").
func (r *DeviceRegistry) Release(name string) {
	r.mu.Lock()
	dev, ok := r.devices[name]
	r.mu.Unlock()
	if ok {
		_ = dev.SendAllOff()
	}
}

// Evict closes and forgets a device, an explicit force-recreate for a
// caller that already knows the device is stale. Identity mismatches on
// reconnect are handled by Acquire itself, not by Evict.
func (r *DeviceRegistry) Evict(name string) {
	r.mu.Lock()
	dev, ok := r.devices[name]
	if ok {
		delete(r.devices, name)
		delete(r.identities, name)
	}
	r.mu.Unlock()
	if ok {
		_ = dev.Close()
	}
}
