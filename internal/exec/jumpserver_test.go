package exec

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJumpServerStateRoundTrip(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	js := &JumpServer{
		Name:          "mysql-jumpserver-1710500000",
		ResourceGroup: "rg-forensics",
		PublicIP:      "203.0.113.10",
	}

	require.NoError(t, SaveState(js))

	loaded, err := LoadState()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, js.Name, loaded.Name)
	assert.Equal(t, js.ResourceGroup, loaded.ResourceGroup)
	assert.Equal(t, js.PublicIP, loaded.PublicIP)

	ClearState()

	loaded, err = LoadState()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadStateMalformed(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	require.NoError(t, os.WriteFile(StateFilePath(), []byte("not the expected format"), 0o600))

	_, err := LoadState()
	assert.Error(t, err)
}
