package azure

import (
	"context"
	"fmt"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	e "github.com/nimbusdfir/nimbus/internal/exec"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

// VM is the subset of virtual-machine attributes shown in listings.
type VM struct {
	Name          string `json:"name"`
	ResourceGroup string `json:"resourceGroup"`
	Location      string `json:"location"`
	PowerState    string `json:"powerState"`
	PublicIPs     string `json:"publicIps"`
	HardwareProfile struct {
		VMSize string `json:"vmSize"`
	} `json:"hardwareProfile"`
}

// CreateVMOptions collects the interactive choices for a new VM.
type CreateVMOptions struct {
	Name          string
	ResourceGroup string
	Location      string
	Image         string
	Size          string
	AdminUser     string
	// Password is set for password auth; empty means generated SSH keys.
	Password string
	PublicIP bool
}

// ListVMs returns every VM visible to the session, with power state.
func ListVMs(ctx context.Context) ([]VM, error) {
	var vms []VM
	if err := e.ExecuteAzJSON(ctx, []string{"vm", "list", "-d"}, &vms); err != nil {
		return nil, err
	}
	if len(vms) == 0 {
		return nil, fmt.Errorf("%w: no virtual machines in the current subscription", errUtils.ErrNoResults)
	}
	return vms, nil
}

// CreateVM provisions a virtual machine.
func CreateVM(ctx context.Context, opts CreateVMOptions) (*VM, error) {
	args := []string{
		"vm", "create",
		"--resource-group", opts.ResourceGroup,
		"--name", opts.Name,
		"--image", opts.Image,
		"--size", opts.Size,
		"--admin-username", opts.AdminUser,
	}
	if opts.Location != "" {
		args = append(args, "--location", opts.Location)
	}
	if opts.Password != "" {
		args = append(args, "--admin-password", opts.Password)
	} else {
		args = append(args, "--generate-ssh-keys")
	}
	if !opts.PublicIP {
		args = append(args, "--public-ip-address", "")
	}

	var vm VM
	if err := e.ExecuteAzJSON(ctx, args, &vm); err != nil {
		return nil, err
	}
	log.Info("VM created", "name", opts.Name, "size", opts.Size)
	return &vm, nil
}

// StartVM starts a VM.
func StartVM(ctx context.Context, resourceGroup string, name string) error {
	return vmAction(ctx, "start", resourceGroup, name, nil)
}

// StopVM deallocates a VM so it stops accruing compute charges.
func StopVM(ctx context.Context, resourceGroup string, name string) error {
	return vmAction(ctx, "deallocate", resourceGroup, name, nil)
}

// DeleteVM removes a VM.
func DeleteVM(ctx context.Context, resourceGroup string, name string) error {
	return vmAction(ctx, "delete", resourceGroup, name, []string{"--yes"})
}

func vmAction(ctx context.Context, action string, resourceGroup string, name string, extra []string) error {
	args := []string{
		"vm", action,
		"--resource-group", resourceGroup,
		"--name", name,
	}
	args = append(args, extra...)
	args = append(args, "--output", "none")

	if _, err := e.ExecuteCommandAndReturnOutput(ctx, "az", args, nil); err != nil {
		return err
	}
	log.Info("VM operation complete", "action", action, "name", name)
	return nil
}
