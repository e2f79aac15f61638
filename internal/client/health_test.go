package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthSnapshotComputesAverageLatencyAndLoss(t *testing.T) {
	c := NewHealthCollector(nil, nil)

	c.RecordPacket(10 * time.Millisecond)
	c.RecordPacket(20 * time.Millisecond)
	c.RecordGap()

	snap := c.Snapshot()

	require.InDelta(t, 15.0, snap.AvgLatencyMS, 0.01)
	require.InDelta(t, 100.0/3.0, snap.PacketLossPct, 0.01)
	require.False(t, snap.Connected, "no failover monitor means no active host")
	require.Zero(t, snap.ActiveHostID)
	require.False(t, snap.FocusHeld)
}

func TestHealthSnapshotZeroPacketsHasNoLoss(t *testing.T) {
	c := NewHealthCollector(nil, nil)

	snap := c.Snapshot()

	require.Zero(t, snap.AvgLatencyMS)
	require.Zero(t, snap.PacketLossPct)
}

func TestHealthSnapshotReflectsActiveHost(t *testing.T) {
	m, _ := newTestMonitor(t, "manual")
	primary := m.table.Get(5)
	primary.Role = 1
	markAlive(primary, 1)
	m.evaluate()

	c := NewHealthCollector(m, nil)
	snap := c.Snapshot()

	require.True(t, snap.Connected)
	require.Equal(t, uint8(5), snap.ActiveHostID)
}
