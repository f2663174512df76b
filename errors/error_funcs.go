package errors

import (
	"errors"
	"os"
	"os/exec"

	"github.com/fatih/color"
)

// OsExit is a variable for testing, so we can mock os.Exit.
var OsExit = os.Exit

// CheckErrorAndPrint prints an error message to stderr.
func CheckErrorAndPrint(err error) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed)
	if _, printErr := c.Fprintln(color.Error, err.Error()); printErr != nil {
		color.Red("%s\n", err)
	}
}

// CheckErrorPrintAndExit prints an error message and exits. The exit code
// of a wrapped CLI is preserved when the error carries an *exec.ExitError.
func CheckErrorPrintAndExit(err error) {
	if err == nil {
		return
	}

	CheckErrorAndPrint(err)

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		Exit(exitError.ExitCode())
	}

	Exit(1)
}

// GetExitCode returns the exit code an error should terminate the process
// with: the wrapped CLI's code when present, 1 otherwise, 0 for nil.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode()
	}
	return 1
}

// Exit exits the program with the specified exit code.
func Exit(exitCode int) {
	OsExit(exitCode)
}
