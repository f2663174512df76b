package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	jsoniter "github.com/json-iterator/go"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// CheckCLIInstalled verifies that the named tool is available on PATH.
func CheckCLIInstalled(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s (see the vendor's install instructions)", errUtils.ErrCLINotInstalled, name)
	}
	return nil
}

// CheckAzLoggedIn verifies that an Azure CLI session exists.
// `az account show` fails when no login has been performed.
func CheckAzLoggedIn(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "az", "account", "show", "--output", "none")
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: run 'az login' first", errUtils.ErrNotLoggedIn)
	}
	return nil
}

// ExecuteCommandAndReturnOutput runs a command, captures its standard output,
// and folds stderr into the returned error on failure.
func ExecuteCommandAndReturnOutput(ctx context.Context, command string, args []string, env []string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Executing command", "command", u.MaskCommandLine(command, args...))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		// Wrap the original error too so exit codes survive to the caller.
		return "", fmt.Errorf("%w: %s: %s: %w", errUtils.ErrCommandFailed, command, msg, err)
	}

	return stdout.String(), nil
}

// ExecuteCommandInteractive runs a command attached to the caller's terminal.
func ExecuteCommandInteractive(ctx context.Context, command string, args []string, env []string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Debug("Executing command", "command", u.MaskCommandLine(command, args...))

	return cmd.Run()
}

// ExecuteAzJSON runs an az subcommand with JSON output and decodes the
// result into out. An empty response decodes to the zero value.
func ExecuteAzJSON(ctx context.Context, args []string, out interface{}) error {
	output, err := ExecuteCommandAndReturnOutput(ctx, "az", append(args, "--output", "json"), nil)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	var json = jsoniter.ConfigDefault
	if err := json.UnmarshalFromString(trimmed, out); err != nil {
		return fmt.Errorf("failed to decode az output: %w", err)
	}
	return nil
}

// ExecuteAzTSV runs an az subcommand with TSV output and returns the
// trimmed result. Useful for single-value `--query` lookups.
func ExecuteAzTSV(ctx context.Context, args []string) (string, error) {
	output, err := ExecuteCommandAndReturnOutput(ctx, "az", append(args, "--output", "tsv"), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}
