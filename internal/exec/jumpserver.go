package exec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	"github.com/nimbusdfir/nimbus/pkg/retry"
	"github.com/nimbusdfir/nimbus/pkg/schema"
)

const (
	// JumpServerPrefix is shared by every transient jump server so that an
	// existing one can be found and reused across invocations.
	JumpServerPrefix = "mysql-jumpserver-"

	jumpServerStateFile = "nimbus_jumpserver_info.txt"

	teardownPause = 2 * time.Second
)

// JumpServer is a transient VM used to reach network-isolated database
// endpoints over SSH.
type JumpServer struct {
	Name          string
	ResourceGroup string
	PublicIP      string
}

// StateFilePath returns the location of the jump-server state file.
// Recording the server here lets a later invocation (or a signal handler)
// tear it down even if the creating process died.
func StateFilePath() string {
	return filepath.Join(os.TempDir(), jumpServerStateFile)
}

// SaveState persists the jump server to the state file.
func SaveState(js *JumpServer) error {
	line := fmt.Sprintf("%s|%s|%s", js.Name, js.ResourceGroup, js.PublicIP)
	return os.WriteFile(StateFilePath(), []byte(line), 0o600)
}

// LoadState reads the jump server recorded in the state file, if any.
func LoadState() (*JumpServer, error) {
	data, err := os.ReadFile(StateFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	parts := strings.Split(strings.TrimSpace(string(data)), "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jump server state file %s", StateFilePath())
	}

	return &JumpServer{Name: parts[0], ResourceGroup: parts[1], PublicIP: parts[2]}, nil
}

// ClearState removes the state file.
func ClearState() {
	_ = os.Remove(StateFilePath())
}

// FindJumpServer looks for an existing jump server VM in the resource group.
func FindJumpServer(ctx context.Context, resourceGroup string) (*JumpServer, error) {
	var names []string
	err := ExecuteAzJSON(ctx, []string{
		"vm", "list",
		"--resource-group", resourceGroup,
		"--query", fmt.Sprintf("[?starts_with(name, '%s')].name", JumpServerPrefix),
	}, &names)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	name := names[0]
	ip, err := jumpServerPublicIP(ctx, resourceGroup, name)
	if err != nil {
		return nil, err
	}

	log.Info("Reusing existing jump server", "name", name, "ip", ip)
	return &JumpServer{Name: name, ResourceGroup: resourceGroup, PublicIP: ip}, nil
}

// EnsureJumpServer returns an existing jump server in the resource group or
// creates a new one and waits until SSH is accepting connections.
func EnsureJumpServer(ctx context.Context, azureCfg schema.AzureConfig, resourceGroup string, location string) (*JumpServer, error) {
	existing, err := FindJumpServer(ctx, resourceGroup)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := SaveState(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	name := fmt.Sprintf("%s%d", JumpServerPrefix, time.Now().Unix())
	log.Info("Creating jump server VM", "name", name, "size", azureCfg.JumpServerSize)

	createArgs := []string{
		"vm", "create",
		"--resource-group", resourceGroup,
		"--name", name,
		"--image", azureCfg.JumpServerImage,
		"--size", azureCfg.JumpServerSize,
		"--admin-username", azureCfg.JumpServerAdminUser,
		"--generate-ssh-keys",
		"--public-ip-address", name + "-ip",
		"--nsg", name + "-nsg",
		"--nsg-rule", "SSH",
	}
	if location != "" {
		createArgs = append(createArgs, "--location", location)
	}

	var createResult struct {
		PublicIPAddress string `json:"publicIpAddress"`
	}
	if err := ExecuteAzJSON(ctx, createArgs, &createResult); err != nil {
		return nil, err
	}

	ip := createResult.PublicIPAddress
	if ip == "" {
		ip, err = jumpServerPublicIP(ctx, resourceGroup, name)
		if err != nil {
			return nil, err
		}
	}
	if ip == "" {
		return nil, errUtils.ErrJumpServerLost
	}

	js := &JumpServer{Name: name, ResourceGroup: resourceGroup, PublicIP: ip}
	if err := SaveState(js); err != nil {
		return nil, err
	}

	if err := WaitForSSH(ctx, js, azureCfg.JumpServerAdminUser, ""); err != nil {
		return nil, err
	}

	return js, nil
}

func jumpServerPublicIP(ctx context.Context, resourceGroup string, name string) (string, error) {
	return ExecuteAzTSV(ctx, []string{
		"vm", "show", "-d",
		"--resource-group", resourceGroup,
		"--name", name,
		"--query", "publicIps",
	})
}

// WaitForSSH polls the jump server until sshd accepts a connection, one
// probe per second for up to a minute, logging progress every ten attempts.
func WaitForSSH(ctx context.Context, js *JumpServer, user string, keyPath string) error {
	log.Info("Waiting for SSH to become available", "host", js.PublicIP)

	attempt := 0
	cfg := retry.SSHReadinessConfig()
	err := retry.Do(ctx, &cfg, func() error {
		attempt++
		if attempt%10 == 0 {
			log.Info("Still waiting for SSH", "attempt", attempt, "max", cfg.MaxAttempts)
		}
		return probeSSH(ctx, js.PublicIP, user, keyPath)
	})
	if err != nil {
		return fmt.Errorf("%w: %s did not accept SSH connections", errUtils.ErrSSHTimeout, js.PublicIP)
	}

	log.Info("Jump server is ready", "host", js.PublicIP)
	return nil
}

func probeSSH(ctx context.Context, host string, user string, keyPath string) error {
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=5",
	}
	if keyPath != "" {
		args = append([]string{"-i", keyPath}, args...)
	}
	args = append(args, fmt.Sprintf("%s@%s", user, host), "exit")

	cmd := exec.CommandContext(ctx, "ssh", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return errUtils.ErrServerNotReady
	}
	return nil
}

// TeardownJumpServer deletes the VM and its dependent resources in
// dependency order. Individual deletion failures are logged and skipped so
// that one missing resource never strands the rest.
func TeardownJumpServer(ctx context.Context, js *JumpServer) {
	log.Info("Tearing down jump server", "name", js.Name)

	deletions := [][]string{
		{"vm", "delete", "--resource-group", js.ResourceGroup, "--name", js.Name, "--yes"},
		{"network", "nic", "delete", "--resource-group", js.ResourceGroup, "--name", js.Name + "VMNic"},
		{"network", "public-ip", "delete", "--resource-group", js.ResourceGroup, "--name", js.Name + "-ip"},
		{"network", "nsg", "delete", "--resource-group", js.ResourceGroup, "--name", js.Name + "-nsg"},
	}

	for _, args := range deletions {
		if _, err := ExecuteCommandAndReturnOutput(ctx, "az", append(args, "--output", "none"), nil); err != nil {
			log.Warn("Cleanup step failed", "resource", args[1], "error", err)
		}
		time.Sleep(teardownPause)
	}

	// The OS disk name is generated by the platform, so look it up.
	var disks []string
	err := ExecuteAzJSON(ctx, []string{
		"disk", "list",
		"--resource-group", js.ResourceGroup,
		"--query", fmt.Sprintf("[?starts_with(name, '%s_disk1_')].name", js.Name),
	}, &disks)
	if err != nil {
		log.Warn("Cleanup step failed", "resource", "disk", "error", err)
	}
	for _, disk := range disks {
		_, err := ExecuteCommandAndReturnOutput(ctx, "az", []string{
			"disk", "delete",
			"--resource-group", js.ResourceGroup,
			"--name", disk,
			"--yes", "--output", "none",
		}, nil)
		if err != nil {
			log.Warn("Cleanup step failed", "resource", "disk", "error", err)
		}
		time.Sleep(teardownPause)
	}

	ClearState()
	log.Info("Jump server teardown complete", "name", js.Name)
}
