package host

import (
	"testing"
	"time"

	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

func TestTriggerSwitchFlipsRole(t *testing.T) {
	f := NewFailoverManager(protocol.RolePrimary, time.Hour, nil)
	require.Equal(t, protocol.RolePrimary, f.Role().Get())

	require.NoError(t, f.TriggerSwitch())
	require.Equal(t, protocol.RoleStandby, f.Role().Get())
}

func TestTriggerSwitchRespectsLockout(t *testing.T) {
	f := NewFailoverManager(protocol.RolePrimary, time.Hour, nil)
	require.NoError(t, f.TriggerSwitch())
	require.ErrorIs(t, f.TriggerSwitch(), ErrLockout)
	require.False(t, f.CanSwitch())
}

func TestTriggerSwitchAllowedAfterLockoutElapses(t *testing.T) {
	f := NewFailoverManager(protocol.RolePrimary, 10*time.Millisecond, nil)
	require.NoError(t, f.TriggerSwitch())
	time.Sleep(20 * time.Millisecond)
	require.True(t, f.CanSwitch())
	require.NoError(t, f.TriggerSwitch())
	require.Equal(t, protocol.RolePrimary, f.Role().Get())
}
