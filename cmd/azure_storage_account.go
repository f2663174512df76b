package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbusdfir/nimbus/pkg/azure"
)

var azureStorageAccountCmd = &cobra.Command{
	Use:     "storage-account",
	Aliases: []string{"sa"},
	Short:   "Manage Azure storage accounts",
}

var azureStorageAccountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List storage accounts",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))

		accounts, err := azure.ListStorageAccounts(ctx)
		checkExecErr(err)

		rows := make([][]string, 0, len(accounts))
		for _, a := range accounts {
			sharedKey := "enabled"
			if a.AllowSharedKeyAccess != nil && !*a.AllowSharedKeyAccess {
				sharedKey = "disabled"
			}
			rows = append(rows, []string{a.Name, a.ResourceGroup, a.Location, a.SKU.Name, sharedKey})
		}
		printTable([]string{"NAME", "RESOURCE GROUP", "LOCATION", "SKU", "SHARED KEY"}, rows)
	},
}

var azureStorageAccountCreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create an AAD-only storage account",
	Long:  `This command creates a storage account with shared-key access disabled and a TLS 1.2 floor, then grants the signed-in user Storage Blob Data Owner on it`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))

		name := argOrEmpty(args, 0)
		if name == "" {
			var err error
			name, err = promptInput("Storage account name", "")
			checkExecErr(err)
		}

		resourceGroup, err := promptInput("Resource group", Config().Azure.DefaultResourceGroup)
		checkExecErr(err)
		location, err := promptInput("Location", Config().Azure.DefaultLocation)
		checkExecErr(err)

		account, err := azure.CreateStorageAccount(ctx, name, resourceGroup, location)
		checkExecErr(err)

		printSuccess("Storage account %s created in %s", account.Name, account.Location)
	},
}

var azureStorageAccountDeleteCmd = &cobra.Command{
	Use:   "delete [NAME]",
	Short: "Delete a storage account",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))

		name := argOrEmpty(args, 0)
		resourceGroup := ""

		if name == "" {
			accounts, err := azure.ListStorageAccounts(ctx)
			checkExecErr(err)

			options := make([]string, 0, len(accounts))
			for _, a := range accounts {
				options = append(options, fmt.Sprintf("%s (%s)", a.Name, a.ResourceGroup))
			}
			idx, err := promptSelect("Select a storage account to delete", options)
			checkExecErr(err)
			name = accounts[idx].Name
			resourceGroup = accounts[idx].ResourceGroup
		}

		if resourceGroup == "" {
			var err error
			resourceGroup, err = promptInput("Resource group", Config().Azure.DefaultResourceGroup)
			checkExecErr(err)
		}

		checkExecErr(confirmOrAbort(fmt.Sprintf("Delete storage account %s and all of its data?", name)))
		checkExecErr(azure.DeleteStorageAccount(ctx, name, resourceGroup))
	},
}

func init() {
	azureStorageAccountCmd.AddCommand(azureStorageAccountListCmd)
	azureStorageAccountCmd.AddCommand(azureStorageAccountCreateCmd)
	azureStorageAccountCmd.AddCommand(azureStorageAccountDeleteCmd)
	azureCmd.AddCommand(azureStorageAccountCmd)
}
