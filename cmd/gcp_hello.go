package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbusdfir/nimbus/pkg/gcp"
)

var gcpProjectFlag string

var gcpHelloCmd = &cobra.Command{
	Use:     "hello",
	Short:   "Test the Google Cloud connection",
	Long:    `This command verifies Application Default Credentials and lists the project's regions`,
	Example: "nimbus gcp hello",
	Run: func(cmd *cobra.Command, args []string) {
		project := gcpProjectFlag
		if project == "" {
			project = Config().GCP.Project
		}

		result, err := gcp.Hello(cmd.Context(), project)
		checkExecErr(err)

		printSuccess("GCP connection OK, project %s", result.Project)
		printInfo("Regions: %s", strings.Join(result.Regions, ", "))
	},
}

func init() {
	gcpHelloCmd.Flags().StringVar(&gcpProjectFlag, "project", "", "GCP project ID (defaults to the configured or credential project)")
	gcpCmd.AddCommand(gcpHelloCmd)
}
