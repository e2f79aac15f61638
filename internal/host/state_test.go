package host

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientRegistryTouchCreatesRecord(t *testing.T) {
	r := NewClientRegistry()
	r.Touch(7, net.ParseIP("10.0.0.5"))

	records := r.Records()
	require.Len(t, records, 1)
	require.Equal(t, uint32(7), records[0].ClientID)
	require.True(t, records[0].Addr.Equal(net.ParseIP("10.0.0.5")))
}

func TestClientRegistrySetDeviceReadyRequiresExistingRecord(t *testing.T) {
	r := NewClientRegistry()
	r.SetDeviceReady(99, true)
	require.Empty(t, r.Records())

	r.Touch(99, net.ParseIP("10.0.0.6"))
	r.SetDeviceReady(99, true)
	require.True(t, r.Records()[0].DeviceReady)
}

func TestClientRegistryPruneDropsStaleRecords(t *testing.T) {
	r := NewClientRegistry()
	r.Touch(1, net.ParseIP("10.0.0.1"))
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, 1, r.Prune(time.Millisecond))
	require.Empty(t, r.Records())
}

func TestAddrsFromRegistrySkipsRecordsWithoutAddr(t *testing.T) {
	r := NewClientRegistry()
	r.Touch(1, net.ParseIP("10.0.0.1"))
	r.Touch(2, nil)

	addrs := AddrsFromRegistry(r, 5004)
	require.Len(t, addrs, 1)
	require.Equal(t, 5004, addrs[0].Port)
}
