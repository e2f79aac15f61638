package devio

import (
	"github.com/hakolsound/midinet/internal/devio/devgomidi"
	"github.com/hakolsound/midinet/sdk/contracts"
)

// NewOutput opens the feedback-path output backend. devdarwin and
// devwindows only implement contracts.InputDevice, so the host's
// physical-controller feedback path always goes through the portmidi
// based devgomidi.Output, regardless of target OS.
func NewOutput(logger contracts.Logger) (contracts.OutputDevice, error) {
	dev, err := devgomidi.New(logger)
	if err != nil {
		return nil, err
	}
	return devgomidi.NewOutput(dev), nil
}
