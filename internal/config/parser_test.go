package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

func writeDecl(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "decl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseVMDeclaration(t *testing.T) {
	t.Parallel()

	path := writeDecl(t, `
api:
  host: pve.example.com:8006
  user: root@pam
vmid: 100
state: present
node: pve1
hostname: web1
password: secret
ostemplate: local:vztmpl/debian-12-standard_amd64.tar.zst
`)

	decl, err := ParseVMDeclaration(path)
	require.NoError(t, err)
	require.Equal(t, 100, decl.VMID)
	require.Equal(t, StatePresent, decl.State)
	require.Equal(t, "pve1", decl.Node)
	require.Equal(t, "local", decl.Storage)
}

func TestParseVMDeclarationMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseVMDeclaration(filepath.Join(t.TempDir(), "missing.yaml"))

	var parseErr *ensureerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseVMDeclarationInvalidYAMLReportsLine(t *testing.T) {
	t.Parallel()

	path := writeDecl(t, "vmid: 100\n  bad: indent\n")

	_, err := ParseVMDeclaration(path)

	var parseErr *ensureerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Greater(t, parseErr.Line, 0)
}

func TestParseMonitorDeclaration(t *testing.T) {
	t.Parallel()

	path := writeDecl(t, `
api:
  api_key: abc
  app_key: def
type: metric alert
name: High bytes received
query: "avg(last_1h):sum:system.net.bytes_rcvd{host:host0} > 100"
message: Arbitrary alert message.
`)

	decl, err := ParseMonitorDeclaration(path)
	require.NoError(t, err)
	require.Equal(t, MonitorMetricAlert, decl.Type)
	require.Equal(t, "High bytes received", decl.Name)
}

func TestParseMonitorDeclarationFailsValidationBeforeUse(t *testing.T) {
	t.Parallel()

	path := writeDecl(t, `
api:
  api_key: abc
  app_key: def
type: metric alert
name: High bytes received
query: "avg(last_1h):sum:system.net.bytes_rcvd{host:host0} > 100"
thresholds:
  ok: 1
`)

	_, err := ParseMonitorDeclaration(path)

	var validationErr *ensureerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
