package errors

import (
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, 0, GetExitCode(nil))
	assert.Equal(t, 1, GetExitCode(ErrCommandFailed))
}

func TestGetExitCodePropagatesWrappedCLICode(t *testing.T) {
	err := exec.Command("sh", "-c", "exit 42").Run()
	require.Error(t, err)

	wrapped := fmt.Errorf("%w: az failed: %w", ErrCommandFailed, err)
	assert.Equal(t, 42, GetExitCode(wrapped))
}

func TestCheckErrorPrintAndExit(t *testing.T) {
	exitCode := -1
	original := OsExit
	OsExit = func(code int) { exitCode = code }
	defer func() { OsExit = original }()

	CheckErrorPrintAndExit(nil)
	assert.Equal(t, -1, exitCode, "nil error must not exit")

	CheckErrorPrintAndExit(ErrNotLoggedIn)
	assert.Equal(t, 1, exitCode)
}
