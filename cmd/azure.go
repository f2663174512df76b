package cmd

import (
	"github.com/spf13/cobra"
)

var azureCmd = &cobra.Command{
	Use:   "azure",
	Short: "Manage Azure resources",
	Long:  `This command manages Azure resources: storage accounts, blobs, virtual machines, and MySQL flexible servers`,
}

func init() {
	RootCmd.AddCommand(azureCmd)
}
