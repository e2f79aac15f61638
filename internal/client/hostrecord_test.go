package client

import (
	"net"
	"testing"
	"time"

	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/stretchr/testify/require"
)

func TestHostRecordAliveBeforeFirstHeartbeat(t *testing.T) {
	rec := &HostRecord{HostID: 1}
	require.False(t, rec.Alive(time.Second))
}

func TestHostRecordAliveWithinWindow(t *testing.T) {
	rec := &HostRecord{HostID: 1}
	rec.RecordHeartbeat(42)

	require.True(t, rec.Alive(time.Second))
	require.Zero(t, rec.MissCount())
}

func TestHostRecordMissCountIncrementsOnStaleCheck(t *testing.T) {
	rec := &HostRecord{HostID: 1}
	rec.RecordHeartbeat(1)
	rec.lastHeartbeat = time.Now().Add(-time.Hour)

	require.False(t, rec.Alive(time.Millisecond))
	require.False(t, rec.Alive(time.Millisecond))
	require.Equal(t, uint32(2), rec.MissCount())
}

func TestHostRecordRecordHeartbeatResetsMissCount(t *testing.T) {
	rec := &HostRecord{HostID: 1}
	rec.lastHeartbeat = time.Now().Add(-time.Hour)
	rec.Alive(time.Millisecond)
	require.Equal(t, uint32(1), rec.MissCount())

	rec.RecordHeartbeat(7)
	require.Zero(t, rec.MissCount())
}

func TestHostTableGetCreatesRecordOnFirstAccess(t *testing.T) {
	table := NewHostTable()
	rec := table.Get(9)
	require.Equal(t, uint8(9), rec.HostID)

	again := table.Get(9)
	require.Same(t, rec, again)
}

func TestHostTableUpsertPreservesLivenessAcrossRediscovery(t *testing.T) {
	table := NewHostTable()
	resp := &protocol.DiscoverResponse{
		HostID:          3,
		Role:            protocol.RolePrimary,
		MulticastGroup:  [4]byte{239, 0, 0, 1},
		DataPort:        6000,
		HeartbeatPort:   6001,
		AdminPort:       6002,
		DeviceName:      "Main Controller",
		ProtocolVersion: 1,
	}

	rec := table.Upsert(resp, net.ParseIP("10.0.0.5"))
	rec.RecordHeartbeat(100)
	require.True(t, rec.Alive(time.Second))

	again := table.Upsert(resp, net.ParseIP("10.0.0.5"))
	require.Same(t, rec, again)
	require.True(t, again.Alive(time.Second), "re-upserting must not reset liveness tracking")
}

func TestHostTableRecordsListsAllHosts(t *testing.T) {
	table := NewHostTable()
	table.Get(1)
	table.Get(2)

	recs := table.Records()
	require.Len(t, recs, 2)
}
