package cmd

import (
	"github.com/spf13/cobra"

	e "github.com/nimbusdfir/nimbus/internal/exec"
	"github.com/nimbusdfir/nimbus/pkg/azure"
)

var azureHelloCmd = &cobra.Command{
	Use:     "hello",
	Short:   "Test the Azure connection",
	Long:    `This command verifies the Azure CLI session and the SDK credential chain, then lists the visible subscriptions`,
	Example: "nimbus azure hello",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		checkExecErr(e.CheckCLIInstalled("az"))
		checkExecErr(e.CheckAzLoggedIn(ctx))

		result, err := azure.Hello(ctx)
		checkExecErr(err)

		printSuccess("Azure connection OK, %d subscription(s) visible", len(result.Subscriptions))

		rows := make([][]string, 0, len(result.Subscriptions))
		for _, sub := range result.Subscriptions {
			rows = append(rows, []string{sub.Name, sub.ID, sub.State})
		}
		printTable([]string{"NAME", "SUBSCRIPTION ID", "STATE"}, rows)
	},
}

func init() {
	azureCmd.AddCommand(azureHelloCmd)
}
