package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config source at empty temp directories so tests
// never pick up a developer's real nimbus.yaml.
func isolate(t *testing.T) string {
	t.Helper()
	cwd := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(cwd)
	return cwd
}

func TestInitCliConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := InitCliConfig()
	require.NoError(t, err)

	assert.Equal(t, "Info", cfg.Logs.Level)
	assert.Equal(t, 3307, cfg.Tunnel.LocalPort)
	assert.Equal(t, 3306, cfg.Tunnel.RemotePort)
	assert.Equal(t, "~/.ssh/id_rsa", cfg.Tunnel.SSHKeyPath)
	assert.Equal(t, "Ubuntu2204", cfg.Azure.JumpServerImage)
	assert.Equal(t, "Standard_B1s", cfg.Azure.JumpServerSize)
	assert.Equal(t, "azureuser", cfg.Azure.JumpServerAdminUser)
	assert.Equal(t, "mysqladmin", cfg.Azure.MySQLAdminUser)
	assert.Equal(t, "ec2-quarantine-sg", cfg.AWS.QuarantineSGName)
	assert.Equal(t, 60, cfg.Retry.MaxAttempts)
}

func TestInitCliConfigCurrentDirOverridesDefaults(t *testing.T) {
	cwd := isolate(t)

	yaml := "logs:\n  level: Debug\ntunnel:\n  local_port: 13307\n"
	require.NoError(t, os.WriteFile(filepath.Join(cwd, CliConfigFileName), []byte(yaml), 0o644))

	cfg, err := InitCliConfig()
	require.NoError(t, err)

	assert.Equal(t, "Debug", cfg.Logs.Level)
	assert.Equal(t, 13307, cfg.Tunnel.LocalPort)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3306, cfg.Tunnel.RemotePort)
}

func TestInitCliConfigUserDirOverriddenByCurrentDir(t *testing.T) {
	cwd := isolate(t)

	userDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "nimbus")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, CliConfigFileName),
		[]byte("azure:\n  default_location: westeurope\n  mysql_admin_user: homeadmin\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cwd, CliConfigFileName),
		[]byte("azure:\n  mysql_admin_user: cwdadmin\n"), 0o644))

	cfg, err := InitCliConfig()
	require.NoError(t, err)

	// Later sources win key by key; untouched keys survive from earlier ones.
	assert.Equal(t, "cwdadmin", cfg.Azure.MySQLAdminUser)
	assert.Equal(t, "westeurope", cfg.Azure.DefaultLocation)
}

func TestInitCliConfigEnvVarsWin(t *testing.T) {
	isolate(t)
	t.Setenv("NIMBUS_LOGS_LEVEL", "Warning")

	cfg, err := InitCliConfig()
	require.NoError(t, err)

	assert.Equal(t, "Warning", cfg.Logs.Level)
}
