package client

import (
	"sync"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
)

// DeviceHandle lets Receiver, FailoverMonitor, and FocusClient hold one
// stable virtualdevice.Device reference across a bridge sidecar's
// reconnects (spec §4.10: the bridge may drop and redial while the
// client daemon keeps running). Swap installs the freshly dialed
// handle. While no device is installed, the sending and creating calls
// report virtualdevice.ErrNotCreated rather than blocking; Close returns
// nil and Receive still returns the handle's own feedback channel.
type DeviceHandle struct {
	mu       sync.RWMutex
	current  virtualdevice.Device
	feedback chan []byte
}

// NewDeviceHandle returns an empty handle with no device installed.
func NewDeviceHandle() *DeviceHandle {
	return &DeviceHandle{feedback: make(chan []byte, 64)}
}

// Swap installs dev as the current device and starts relaying its
// Receive() channel into the handle's stable feedback channel.
func (h *DeviceHandle) Swap(dev virtualdevice.Device) {
	h.mu.Lock()
	h.current = dev
	h.mu.Unlock()
	go func() {
		for msg := range dev.Receive() {
			select {
			case h.feedback <- msg:
			default:
			}
		}
	}()
}

// Ready reports whether a device is currently installed.
func (h *DeviceHandle) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil
}

func (h *DeviceHandle) Create(identity contracts.DeviceIdentity) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return virtualdevice.ErrNotCreated
	}
	return h.current.Create(identity)
}

func (h *DeviceHandle) Send(data []byte) error {
	h.mu.RLock()
	dev := h.current
	h.mu.RUnlock()
	if dev == nil {
		return virtualdevice.ErrNotCreated
	}
	return dev.Send(data)
}

func (h *DeviceHandle) Receive() <-chan []byte { return h.feedback }

func (h *DeviceHandle) Close() error {
	h.mu.RLock()
	dev := h.current
	h.mu.RUnlock()
	if dev == nil {
		return nil
	}
	return dev.Close()
}

func (h *DeviceHandle) SendAllOff() error {
	h.mu.RLock()
	dev := h.current
	h.mu.RUnlock()
	if dev == nil {
		return virtualdevice.ErrNotCreated
	}
	return dev.SendAllOff()
}

func (h *DeviceHandle) SilenceAndDetach() error {
	h.mu.RLock()
	dev := h.current
	h.mu.RUnlock()
	if dev == nil {
		return virtualdevice.ErrNotCreated
	}
	return dev.SilenceAndDetach()
}
