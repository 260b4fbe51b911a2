package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

func validVM() *VMDeclaration {
	return &VMDeclaration{
		API:      ProxmoxAPI{Host: "pve.example.com:8006", User: "root@pam"},
		VMID:     100,
		State:    StatePresent,
		Disk:     3,
		CPUs:     1,
		Memory:   512,
		Storage:  "local",
		CPUUnits: 1000,
		Timeout:  30,
	}
}

func validMonitor() *MonitorDeclaration {
	return &MonitorDeclaration{
		API:   DatadogAPI{APIKey: "abc", AppKey: "def"},
		Type:  MonitorServiceCheck,
		Name:  "Test check",
		Query: `"check".over(tags).last(count).count_by_status()`,
	}
}

func TestValidateVMAcceptsCompleteDeclaration(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateVM(validVM()))
}

func TestValidateVMRejectsMissingVMID(t *testing.T) {
	t.Parallel()

	decl := validVM()
	decl.VMID = 0

	err := ValidateVM(decl)
	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Field, "vmid")
}

func TestValidateVMRejectsUnknownState(t *testing.T) {
	t.Parallel()

	decl := validVM()
	decl.State = DesiredState("paused")

	err := ValidateVM(decl)
	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Field, "state")
}

func TestValidateVMRejectsMissingAPIHost(t *testing.T) {
	t.Parallel()

	decl := validVM()
	decl.API.Host = ""

	err := ValidateVM(decl)
	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestValidateMonitorAcceptsServiceCheckWithThresholds(t *testing.T) {
	t.Parallel()

	decl := validMonitor()
	decl.Thresholds = map[string]float64{"ok": 1, "critical": 2}

	require.NoError(t, ValidateMonitor(decl))
}

func TestValidateMonitorRejectsThresholdsForMetricAlert(t *testing.T) {
	t.Parallel()

	decl := validMonitor()
	decl.Type = MonitorMetricAlert
	decl.Thresholds = map[string]float64{"ok": 1}

	err := ValidateMonitor(decl)
	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Message, "thresholds may not be set for metric monitors")
}

func TestValidateMonitorRejectsUnknownType(t *testing.T) {
	t.Parallel()

	decl := validMonitor()
	decl.Type = MonitorType("event alert")

	err := ValidateMonitor(decl)
	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Field, "type")
}

func TestValidateMonitorRejectsMissingQuery(t *testing.T) {
	t.Parallel()

	decl := validMonitor()
	decl.Query = ""

	err := ValidateMonitor(decl)
	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Field, "query")
}
