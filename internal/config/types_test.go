package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestVMDeclarationDefaults(t *testing.T) {
	t.Parallel()

	src := `
api:
  host: pve.example.com:8006
  user: root@pam
vmid: 100
`

	var decl VMDeclaration
	require.NoError(t, yaml.Unmarshal([]byte(src), &decl))

	require.Equal(t, StatePresent, decl.State)
	require.Equal(t, 3, decl.Disk)
	require.Equal(t, 1, decl.CPUs)
	require.Equal(t, 512, decl.Memory)
	require.Equal(t, 0, decl.Swap)
	require.Equal(t, "local", decl.Storage)
	require.Equal(t, 1000, decl.CPUUnits)
	require.Equal(t, 30, decl.Timeout)
	require.False(t, decl.OnBoot)
	require.False(t, decl.Force)
}

func TestVMDeclarationOverridesDefaults(t *testing.T) {
	t.Parallel()

	src := `
api:
  host: pve.example.com:8006
  user: root@pam
vmid: 100
state: stopped
disk: 10
cpus: 4
memory: 2048
swap: 512
storage: ceph
cpuunits: 500
timeout: 120
force: true
`

	var decl VMDeclaration
	require.NoError(t, yaml.Unmarshal([]byte(src), &decl))

	require.Equal(t, StateStopped, decl.State)
	require.Equal(t, 10, decl.Disk)
	require.Equal(t, 4, decl.CPUs)
	require.Equal(t, 2048, decl.Memory)
	require.Equal(t, 512, decl.Swap)
	require.Equal(t, "ceph", decl.Storage)
	require.Equal(t, 500, decl.CPUUnits)
	require.Equal(t, 120, decl.Timeout)
	require.True(t, decl.Force)
}

func TestMonitorDeclarationLeavesUnsetOptionsNil(t *testing.T) {
	t.Parallel()

	src := `
api:
  api_key: abc
  app_key: def
type: service check
name: Test check
query: '"check".over(tags).last(count).count_by_status()'
thresholds:
  ok: 1
  critical: 2
  warning: 1
`

	var decl MonitorDeclaration
	require.NoError(t, yaml.Unmarshal([]byte(src), &decl))

	require.Equal(t, MonitorServiceCheck, decl.Type)
	require.Nil(t, decl.NotifyNoData)
	require.Nil(t, decl.NoDataTimeframe)
	require.Nil(t, decl.TimeoutH)
	require.Nil(t, decl.RenotifyInterval)
	require.Nil(t, decl.NotifyAudit)
	require.Nil(t, decl.Silenced)
	require.Equal(t, map[string]float64{"ok": 1, "critical": 2, "warning": 1}, decl.Thresholds)
}
