package client

import (
	"testing"
	"time"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/state"
	"github.com/hakolsound/midinet/sdk/virtualdevice"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T, policy config.SwitchBackPolicy) (*FailoverMonitor, *virtualdevice.Stub) {
	t.Helper()
	table := NewHostTable()
	vdev := virtualdevice.NewStub()
	require.NoError(t, vdev.Create(contracts.DeviceIdentity{Name: "test"}))
	st := state.New()
	hb := config.Heartbeat{IntervalMS: 3, MissThreshold: 3}
	m := NewFailoverMonitor(nil, table, hb, policy, vdev, st, nil)
	return m, vdev
}

func markAlive(rec *HostRecord, seq uint16) {
	rec.RecordHeartbeat(seq)
}

func TestFailoverEvaluateSelectsPrimaryWhenBothAlive(t *testing.T) {
	m, _ := newTestMonitor(t, config.SwitchBackManual)
	primary := m.table.Get(1)
	primary.Role = protocol.RolePrimary
	markAlive(primary, 1)
	standby := m.table.Get(2)
	standby.Role = protocol.RoleStandby
	markAlive(standby, 1)

	m.evaluate()

	require.Equal(t, uint8(1), m.ActiveHostID().Get())
	require.True(t, m.ConsumeReconcileIfSet())
}

func TestFailoverEvaluateFreezesWhenBothDown(t *testing.T) {
	m, _ := newTestMonitor(t, config.SwitchBackManual)
	primary := m.table.Get(1)
	primary.Role = protocol.RolePrimary
	standby := m.table.Get(2)
	standby.Role = protocol.RoleStandby
	// Neither host has ever sent a heartbeat: both report not-alive.

	m.evaluate()

	require.Equal(t, uint8(0), m.ActiveHostID().Get())
	require.True(t, m.frozen)
}

func TestFailoverSwitchesToStandbyWhenPrimaryDies(t *testing.T) {
	m, vdev := newTestMonitor(t, config.SwitchBackManual)
	primary := m.table.Get(1)
	primary.Role = protocol.RolePrimary
	markAlive(primary, 1)
	standby := m.table.Get(2)
	standby.Role = protocol.RoleStandby
	markAlive(standby, 1)

	m.evaluate()
	require.Equal(t, uint8(1), m.ActiveHostID().Get())
	require.True(t, m.ConsumeReconcileIfSet())

	// Primary goes stale; standby keeps heartbeating.
	primary.lastHeartbeat = time.Now().Add(-time.Hour)
	markAlive(standby, 2)

	m.evaluate()

	require.Equal(t, uint8(2), m.ActiveHostID().Get())
	require.True(t, m.ConsumeReconcileIfSet())
	require.NotEmpty(t, vdev.Sent(), "failover should send all-notes-off on switch")
}

func TestFailoverHonorsManualSwitchBackPolicy(t *testing.T) {
	m, _ := newTestMonitor(t, config.SwitchBackManual)
	primary := m.table.Get(1)
	primary.Role = protocol.RolePrimary
	standby := m.table.Get(2)
	standby.Role = protocol.RoleStandby

	// Primary starts dead, standby alive: client follows standby.
	markAlive(standby, 1)
	m.evaluate()
	require.Equal(t, uint8(2), m.ActiveHostID().Get())
	m.ConsumeReconcileIfSet()

	// Primary comes back; manual policy must NOT switch back automatically.
	markAlive(primary, 1)
	markAlive(standby, 2)
	m.evaluate()

	require.Equal(t, uint8(2), m.ActiveHostID().Get())
	require.False(t, m.ConsumeReconcileIfSet())
}

func TestFailoverAutoSwitchesBackToPrimary(t *testing.T) {
	m, _ := newTestMonitor(t, config.SwitchBackAuto)
	primary := m.table.Get(1)
	primary.Role = protocol.RolePrimary
	standby := m.table.Get(2)
	standby.Role = protocol.RoleStandby

	markAlive(standby, 1)
	m.evaluate()
	require.Equal(t, uint8(2), m.ActiveHostID().Get())
	m.ConsumeReconcileIfSet()

	markAlive(primary, 1)
	markAlive(standby, 2)
	m.evaluate()

	require.Equal(t, uint8(1), m.ActiveHostID().Get())
	require.True(t, m.ConsumeReconcileIfSet())
}
