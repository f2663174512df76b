package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbusdfir/nimbus/pkg/azure"
)

var azureVMCmd = &cobra.Command{
	Use:   "vm",
	Short: "Manage Azure virtual machines",
}

var azureVMListCmd = &cobra.Command{
	Use:   "list",
	Short: "List virtual machines with power state",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))

		vms, err := azure.ListVMs(ctx)
		checkExecErr(err)

		rows := make([][]string, 0, len(vms))
		for _, vm := range vms {
			rows = append(rows, []string{vm.Name, vm.ResourceGroup, vm.Location, vm.HardwareProfile.VMSize, vm.PowerState, vm.PublicIPs})
		}
		printTable([]string{"NAME", "RESOURCE GROUP", "LOCATION", "SIZE", "STATE", "PUBLIC IP"}, rows)
	},
}

var vmSizes = []string{"Standard_B1s", "Standard_B2s", "Standard_D2s_v3", "Standard_D4s_v3"}
var vmImages = []string{"Ubuntu2204", "Debian11", "Win2022Datacenter"}

var azureVMCreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create a virtual machine",
	Long:  `This command creates a virtual machine, prompting for size, image, authentication method, and public-IP exposure with sensible defaults`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))

		name := argOrEmpty(args, 0)
		if name == "" {
			var err error
			name, err = promptInput("VM name", "")
			checkExecErr(err)
		}

		resourceGroup, err := promptInput("Resource group", Config().Azure.DefaultResourceGroup)
		checkExecErr(err)
		location, err := promptInput("Location", Config().Azure.DefaultLocation)
		checkExecErr(err)

		sizeIdx, err := promptSelect("VM size", vmSizes)
		checkExecErr(err)
		imageIdx, err := promptSelect("Image", vmImages)
		checkExecErr(err)

		adminUser, err := promptInput("Admin username", Config().Azure.JumpServerAdminUser)
		checkExecErr(err)

		authIdx, err := promptSelect("Authentication method", []string{"Generated SSH keys", "Password"})
		checkExecErr(err)
		password := ""
		if authIdx == 1 {
			password, err = promptPassword("Admin password")
			checkExecErr(err)
		}

		publicIdx, err := promptSelect("Public IP address", []string{"Yes", "No"})
		checkExecErr(err)

		vm, err := azure.CreateVM(ctx, azure.CreateVMOptions{
			Name:          name,
			ResourceGroup: resourceGroup,
			Location:      location,
			Image:         vmImages[imageIdx],
			Size:          vmSizes[sizeIdx],
			AdminUser:     adminUser,
			Password:      password,
			PublicIP:      publicIdx == 0,
		})
		checkExecErr(err)

		printSuccess("VM %s created", name)
		if vm.PublicIPs != "" {
			printInfo("Public IP: %s", vm.PublicIPs)
		}
	},
}

var azureVMStartCmd = &cobra.Command{
	Use:   "start [NAME]",
	Short: "Start a virtual machine",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runVMAction(cmd, args, "start", azure.StartVM)
	},
}

var azureVMStopCmd = &cobra.Command{
	Use:   "stop [NAME]",
	Short: "Stop (deallocate) a virtual machine",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runVMAction(cmd, args, "stop", azure.StopVM)
	},
}

var azureVMDeleteCmd = &cobra.Command{
	Use:   "delete [NAME]",
	Short: "Delete a virtual machine",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runVMAction(cmd, args, "delete", azure.DeleteVM)
	},
}

func runVMAction(cmd *cobra.Command, args []string, action string, fn func(ctx context.Context, rg string, name string) error) {
	ctx := cmd.Context()
	checkExecErr(azurePrereqs(ctx))

	name := argOrEmpty(args, 0)
	resourceGroup := ""

	if name == "" {
		vms, err := azure.ListVMs(ctx)
		checkExecErr(err)

		options := make([]string, 0, len(vms))
		for _, vm := range vms {
			options = append(options, fmt.Sprintf("%s (%s, %s)", vm.Name, vm.ResourceGroup, vm.PowerState))
		}
		idx, err := promptSelect(fmt.Sprintf("Select a VM to %s", action), options)
		checkExecErr(err)
		name = vms[idx].Name
		resourceGroup = vms[idx].ResourceGroup
	}

	if resourceGroup == "" {
		var err error
		resourceGroup, err = promptInput("Resource group", Config().Azure.DefaultResourceGroup)
		checkExecErr(err)
	}

	if action == "delete" {
		checkExecErr(confirmOrAbort(fmt.Sprintf("Delete VM %s?", name)))
	}

	checkExecErr(fn(ctx, resourceGroup, name))
	printSuccess("VM %s: %s complete", name, action)
}

func init() {
	azureVMCmd.AddCommand(azureVMListCmd)
	azureVMCmd.AddCommand(azureVMCreateCmd)
	azureVMCmd.AddCommand(azureVMStartCmd)
	azureVMCmd.AddCommand(azureVMStopCmd)
	azureVMCmd.AddCommand(azureVMDeleteCmd)
	azureCmd.AddCommand(azureVMCmd)
}
