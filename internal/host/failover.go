package host

import (
	"errors"
	"sync"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// ErrLockout is returned by TriggerSwitch when lockout_seconds hasn't
// elapsed since the last switch.
var ErrLockout = errors.New("host: failover lockout still in effect")

// FailoverManager is the host-side manual-switch authority (spec §4.9):
// REST, OSC, and MIDI triggers all funnel through TriggerSwitch, which
// is the single place lockout (the only anti-oscillation mechanism) is
// enforced.
type FailoverManager struct {
	role    *contracts.Watch[protocol.Role]
	lockout time.Duration
	logger  contracts.Logger

	mu         sync.Mutex
	lastSwitch time.Time
}

// NewFailoverManager seeds the role watch at initialRole.
func NewFailoverManager(initialRole protocol.Role, lockout time.Duration, logger contracts.Logger) *FailoverManager {
	return &FailoverManager{
		role:    contracts.NewWatch(initialRole),
		lockout: lockout,
		logger:  logger,
	}
}

// Role exposes the role watch channel for the broadcaster/heartbeat
// sender to read.
func (f *FailoverManager) Role() *contracts.Watch[protocol.Role] { return f.role }

// CanSwitch reports whether lockout_seconds has elapsed since the last
// switch.
func (f *FailoverManager) CanSwitch() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSwitch.IsZero() || time.Since(f.lastSwitch) >= f.lockout
}

// TriggerSwitch atomically flips the role watch and records the switch
// instant, or returns ErrLockout if called too soon after a previous
// switch.
func (f *FailoverManager) TriggerSwitch() error {
	f.mu.Lock()
	if !f.lastSwitch.IsZero() && time.Since(f.lastSwitch) < f.lockout {
		f.mu.Unlock()
		return ErrLockout
	}
	f.lastSwitch = time.Now()
	f.mu.Unlock()

	next := protocol.RoleStandby
	if f.role.Get() == protocol.RoleStandby {
		next = protocol.RolePrimary
	}
	f.role.Set(next)
	if f.logger != nil {
		f.logger.Info("failover: role switched", f.logger.Field().Int("role", int(next)))
	}
	return nil
}
