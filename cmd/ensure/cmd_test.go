package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensureops/ensure/internal/config"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, 3)
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "vm")
	assert.Contains(t, names, "monitor")
	assert.Contains(t, names, "version")
}

func TestVMCmdRequiresConfigFlag(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"vm"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestProxmoxPasswordFallback(t *testing.T) {
	t.Setenv("PROXMOX_PASSWORD", "from-env")

	decl := &config.VMDeclaration{}
	applyProxmoxPasswordFallback(decl)

	assert.Equal(t, "from-env", decl.API.Password)
}

func TestProxmoxPasswordDeclarationWins(t *testing.T) {
	t.Setenv("PROXMOX_PASSWORD", "from-env")

	decl := &config.VMDeclaration{}
	decl.API.Password = "from-decl"
	applyProxmoxPasswordFallback(decl)

	assert.Equal(t, "from-decl", decl.API.Password)
}

func TestDatadogKeyFallback(t *testing.T) {
	t.Setenv("DATADOG_API_KEY", "api-from-env")
	t.Setenv("DATADOG_APP_KEY", "app-from-env")

	decl := &config.MonitorDeclaration{}
	decl.API.AppKey = "app-from-decl"
	applyDatadogKeyFallback(decl)

	assert.Equal(t, "api-from-env", decl.API.APIKey)
	assert.Equal(t, "app-from-decl", decl.API.AppKey)
}
