//go:build !darwin && !windows

// Package devio selects the physical-MIDI backend appropriate to the
// build's target OS: devdarwin on macOS, devwindows on Windows, and the
// portmidi-backed devgomidi everywhere else (notably Linux, which the
// teacher shipped no OS-specific backend for at all).
package devio

import (
	"github.com/hakolsound/midinet/internal/devio/devgomidi"
	"github.com/hakolsound/midinet/sdk/contracts"
)

// NewInput opens the portmidi fallback input backend.
func NewInput(clientName string, logger contracts.Logger) (contracts.InputDevice, error) {
	return devgomidi.New(logger)
}
