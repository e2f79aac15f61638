package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadHostAppliesDefaultsOnEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	cfg, err := LoadHost(path)
	require.NoError(t, err)
	require.Equal(t, DefaultNetwork(), cfg.Network)
	require.Equal(t, DefaultHeartbeat(), cfg.Heartbeat)
}

func TestLoadHostOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.toml")
	body := `
host_id = 2
device_name = "APC40"

[network]
data_group = "239.69.83.1"
data_port = 5004
heartbeat_port = 5005
control_group = "239.69.83.2"
control_port = 5006
discovery_port = 5008
admin_port = 5009

[failover]
auto_enabled = true
switch_back_policy = "auto"
lockout_seconds = 10
confirmation_mode = "immediate"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadHost(path)
	require.NoError(t, err)
	require.EqualValues(t, 2, cfg.HostID)
	require.Equal(t, "APC40", cfg.DeviceName)
	require.Equal(t, SwitchBackAuto, cfg.Failover.SwitchBackPolicy)
	require.EqualValues(t, 10, cfg.Failover.LockoutSeconds)
}

func TestLoadHostRejectsBadMulticastGroup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.toml")
	body := "[network]\ndata_group = \"10.0.0.1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadHost(path)
	require.ErrorIs(t, err, ErrInvalidMulticastGroup)
}

func TestLoadHostRejectsBadCIDR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.toml")
	body := "[osc]\nallow_cidrs = [\"not-a-cidr\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadHost(path)
	require.ErrorIs(t, err, ErrInvalidCIDR)
}
