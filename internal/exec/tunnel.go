package exec

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	"github.com/nimbusdfir/nimbus/pkg/retry"
	"github.com/nimbusdfir/nimbus/pkg/schema"
)

// TunnelSpec describes an SSH port forward through a jump server.
type TunnelSpec struct {
	SSHKeyPath string
	User       string
	JumpHost   string
	RemoteHost string
	LocalPort  int
	RemotePort int
}

// Tunnel is a live SSH port forward. Close terminates the underlying ssh
// process; the process handle is held so teardown never has to guess at
// process names.
type Tunnel struct {
	LocalPort int
	cmd       *exec.Cmd
}

// sshBaseArgs returns options shared by every non-interactive ssh invocation
// against a freshly created host whose key is not yet known.
func sshBaseArgs(keyPath string) []string {
	return []string{
		"-i", keyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
	}
}

// OpenTunnel starts an SSH port forward and waits until the local port
// accepts connections.
func OpenTunnel(ctx context.Context, spec TunnelSpec) (*Tunnel, error) {
	args := append(sshBaseArgs(spec.SSHKeyPath),
		"-o", "ExitOnForwardFailure=yes",
		"-N",
		"-L", fmt.Sprintf("%d:%s:%d", spec.LocalPort, spec.RemoteHost, spec.RemotePort),
		fmt.Sprintf("%s@%s", spec.User, spec.JumpHost),
	)

	cmd := exec.CommandContext(ctx, "ssh", args...)
	cmd.Stdout = nil
	cmd.Stderr = os.Stderr

	log.Debug("Opening SSH tunnel",
		"local_port", spec.LocalPort,
		"remote", fmt.Sprintf("%s:%d", spec.RemoteHost, spec.RemotePort),
		"jump_host", spec.JumpHost,
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", errUtils.ErrTunnelFailed, err)
	}

	tunnel := &Tunnel{LocalPort: spec.LocalPort, cmd: cmd}

	readiness := schema.RetryConfig{
		MaxAttempts:     20,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        500 * time.Millisecond,
		Multiplier:      1.0,
		MaxElapsedTime:  15 * time.Second,
	}
	err := retry.Do(ctx, &readiness, func() error {
		if !ProbeLocalPort(spec.LocalPort) {
			return errUtils.ErrNoTunnel
		}
		return nil
	})
	if err != nil {
		tunnel.Close()
		return nil, fmt.Errorf("%w: local port %d never became reachable", errUtils.ErrTunnelFailed, spec.LocalPort)
	}

	log.Info("SSH tunnel established", "local_port", spec.LocalPort)
	return tunnel, nil
}

// Close terminates the tunnel process. Safe to call more than once.
func (t *Tunnel) Close() {
	if t == nil || t.cmd == nil || t.cmd.Process == nil {
		return
	}
	if err := t.cmd.Process.Kill(); err == nil {
		// Reap the process so it does not linger as a zombie.
		_ = t.cmd.Wait()
	}
	t.cmd = nil
}

// ProbeLocalPort reports whether something is listening on the given local
// port. Used both for tunnel readiness and to detect an already-open tunnel.
func ProbeLocalPort(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
