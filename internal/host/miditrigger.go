package host

import (
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
)

// MIDITrigger watches the raw (pre-pipeline) input stream for the
// configured (channel, note, velocity >= threshold) pattern, optionally
// gated by a guard note held at the same time, and fires a failover
// switch (spec §4.9's third trigger kind).
type MIDITrigger struct {
	cfg     config.MIDITrigger
	failMgr *FailoverManager
	logger  contracts.Logger

	guardHeldUntil time.Time
}

// NewMIDITrigger builds a trigger watcher from its config section.
func NewMIDITrigger(cfg config.MIDITrigger, failMgr *FailoverManager, logger contracts.Logger) *MIDITrigger {
	return &MIDITrigger{cfg: cfg, failMgr: failMgr, logger: logger}
}

// Observe inspects one raw MIDI message from the (post-mux, pre-pipeline)
// input stream, tracking the guard note and firing on the trigger note.
func (t *MIDITrigger) Observe(msg []byte) {
	if len(msg) < 3 {
		return
	}
	status, data1, data2 := msg[0], msg[1], msg[2]
	family := status & 0xF0
	if family != 0x90 && family != 0x80 {
		return
	}
	channel := status & 0x0F
	noteOn := family == 0x90 && data2 > 0

	if t.cfg.GuardNote != nil && data1 == *t.cfg.GuardNote {
		if noteOn {
			t.guardHeldUntil = time.Now().Add(2 * time.Second)
		} else {
			t.guardHeldUntil = time.Time{}
		}
	}

	if !noteOn || channel != t.cfg.Channel || data1 != t.cfg.Note || data2 < t.cfg.VelocityThreshold {
		return
	}
	if t.cfg.GuardNote != nil && time.Now().After(t.guardHeldUntil) {
		return
	}

	if err := t.failMgr.TriggerSwitch(); err != nil && t.logger != nil {
		t.logger.Warn("midi failover trigger rejected", t.logger.Field().Error("error", err))
	}
}
