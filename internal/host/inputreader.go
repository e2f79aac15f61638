package host

import (
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/inputmux"
	"github.com/hakolsound/midinet/sdk/ringbuffer"
)

// InputReaderSlotSize is the per-slot size used for each controller's
// ring buffer, comfortably above ringbuffer.MinSlotSize for SysEx
// bursts.
const InputReaderSlotSize = 1024

// InputReaderCapacity is the slot count for each controller's ring
// buffer.
const InputReaderCapacity = 256

// InputReader bridges one physical controller's blocking read loop
// (contracts.InputDevice.StartCapture) into a ring buffer, so it can
// serve as an inputmux.Source.
type InputReader struct {
	device contracts.InputDevice
	prod   *ringbuffer.Producer
	cons   *ringbuffer.Consumer
	health chan contracts.HealthEvent
	logger contracts.Logger
}

// NewInputReader allocates the ring buffer and wraps device.
func NewInputReader(device contracts.InputDevice, logger contracts.Logger) *InputReader {
	prod, cons := ringbuffer.New(InputReaderCapacity, InputReaderSlotSize)
	return &InputReader{
		device: device,
		prod:   prod,
		cons:   cons,
		health: make(chan contracts.HealthEvent, 16),
		logger: logger,
	}
}

// Consumer exposes the ring buffer's read half, satisfying
// inputmux.Source.
func (r *InputReader) Consumer() *ringbuffer.Consumer { return r.cons }

// Health exposes the raw health channel the device reports to.
func (r *InputReader) Health() <-chan contracts.HealthEvent { return r.health }

// Start begins capture, pushing every raw burst into the ring buffer.
func (r *InputReader) Start() {
	r.device.StartCapture(func(data []byte) {
		r.prod.Push(data)
	}, r.health)
}

// Stop tears down the underlying device.
func (r *InputReader) Stop() error {
	return r.device.Stop()
}

// ForwardHealth relays this reader's health events into mux, tagging
// them with index (0 = primary, 1 = secondary), until health is closed.
func (r *InputReader) ForwardHealth(index int, mux *inputmux.Mux) {
	for ev := range r.health {
		mux.ReportHealth(index, ev)
		if r.logger != nil {
			r.logger.Info("controller health event", r.logger.Field().Int("index", index), r.logger.Field().Int("state", int(ev.State)))
		}
	}
}
