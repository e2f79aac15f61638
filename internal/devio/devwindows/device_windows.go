//go:build windows

// Package devwindows backs contracts.InputDevice with the winmm MIDI
// input API on Windows, adapted from the teacher's midiwindows client:
// the callback now forwards raw status/data1/data2 bytes to a
// RawHandler instead of populating a fixed three-field event struct.
package devwindows

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hakolsound/midinet/sdk/contracts"
	"golang.org/x/sys/windows"
)

type hmidiin windows.Handle

const (
	callbackFunction = 0x00030000
	midiIOStatus     = 0x00000020
)

const (
	mimOpen      = 0x3C1
	mimClose     = 0x3C2
	mimData      = 0x3C3
	mimError     = 0x3C5
	mimLongError = 0x3C6
)

type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// Device implements contracts.InputDevice over winmm.
type Device struct {
	logger   contracts.Logger
	handle   hmidiin
	open     bool
	mu       sync.Mutex
	callback uintptr

	handler atomic.Value // contracts.RawHandler
	health  atomic.Value // chan<- contracts.HealthEvent
}

// New returns a Device ready for ListDevices/SelectDevice.
func New(logger contracts.Logger) *Device {
	return &Device{logger: logger}
}

func (d *Device) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		return nil, fmt.Errorf("devwindows: no MIDI devices found")
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         name,
			EntityName:   name,
			Manufacturer: fmt.Sprintf("MID:%d PID:%d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

func (d *Device) SelectDevice(deviceID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		if err := d.stopLocked(); err != nil {
			return fmt.Errorf("devwindows: stop previous capture: %w", err)
		}
	}

	d.callback = windows.NewCallback(midiInCallback)
	fdwOpen := callbackFunction | midiIOStatus

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&d.handle)),
		uintptr(deviceID),
		d.callback,
		uintptr(unsafe.Pointer(d)),
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
			h <- contracts.HealthEvent{State: contracts.Disconnected, Message: err.Error()}
		}
		return fmt.Errorf("devwindows: open device %d: %w", deviceID, err)
	}
	d.open = true

	r1, _, err = procMidiInStart.Call(uintptr(d.handle))
	if r1 != 0 {
		return fmt.Errorf("devwindows: start capture: %w", err)
	}
	if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
		h <- contracts.HealthEvent{State: contracts.Active}
	}
	return nil
}

func (d *Device) StartCapture(handler contracts.RawHandler, health chan<- contracts.HealthEvent) {
	d.handler.Store(handler)
	d.health.Store(health)
}

// midiInCallback receives raw winmm packed MIDI short messages and
// forwards the unpacked status/data1/data2 bytes to the installed
// handler.
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	d := (*Device)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case mimData:
		status := byte(dwParam1 & 0xFF)
		data1 := byte((dwParam1 >> 8) & 0xFF)
		data2 := byte((dwParam1 >> 16) & 0xFF)

		if h, ok := d.handler.Load().(contracts.RawHandler); ok && h != nil {
			h([]byte{status, data1, data2})
		}
	case mimError, mimLongError:
		if h, ok := d.health.Load().(chan<- contracts.HealthEvent); ok && h != nil {
			h <- contracts.HealthEvent{State: contracts.ErrorState, Message: fmt.Sprintf("winmm error 0x%X", wMsg)}
		}
	case mimOpen, mimClose:
		// No state carried by these beyond what SelectDevice/Stop already report.
	}
	return 0
}

func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	if !d.open {
		return nil
	}
	if r1, _, err := procMidiInStop.Call(uintptr(d.handle)); r1 != 0 {
		return fmt.Errorf("devwindows: stop: %w", err)
	}
	if r1, _, err := procMidiInClose.Call(uintptr(d.handle)); r1 != 0 {
		return fmt.Errorf("devwindows: close: %w", err)
	}
	d.open = false
	d.handle = 0
	return nil
}
