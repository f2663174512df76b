package cmd

import (
	"github.com/spf13/cobra"
)

var gcpCmd = &cobra.Command{
	Use:   "gcp",
	Short: "Manage Google Cloud resources",
}

func init() {
	RootCmd.AddCommand(gcpCmd)
}
