package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimbusdfir/nimbus/pkg/azure"
)

var blobAccountFlag string

var azureBlobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Manage blobs in Azure storage containers",
	Long:  `This command lists, uploads, downloads, and dumps blobs. Authentication uses the ambient AAD credential, so the storage account must grant the signed-in user a blob data role`,
}

// blobClientForAccount resolves the target storage account, prompting from
// the account list when the --account flag is absent, and builds a client.
func blobClientForAccount(cmd *cobra.Command) (azure.BlobClient, error) {
	ctx := cmd.Context()

	account := blobAccountFlag
	if account == "" {
		if err := azurePrereqs(ctx); err != nil {
			return nil, err
		}
		accounts, err := azure.ListStorageAccounts(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]string, 0, len(accounts))
		for _, a := range accounts {
			options = append(options, a.Name)
		}
		idx, err := promptSelect("Select a storage account", options)
		if err != nil {
			return nil, err
		}
		account = accounts[idx].Name
	}

	return azure.NewBlobClient(account)
}

var azureBlobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers in a storage account",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := blobClientForAccount(cmd)
		checkExecErr(err)

		containers, err := client.ListContainers(cmd.Context())
		checkExecErr(err)

		if len(containers) == 0 {
			printWarning("No containers in the storage account")
			return
		}

		rows := make([][]string, 0, len(containers))
		for _, c := range containers {
			rows = append(rows, []string{c.Name, c.LastModified.Format(time.RFC3339)})
		}
		printTable([]string{"CONTAINER", "LAST MODIFIED"}, rows)
	},
}

var azureBlobInfoCmd = &cobra.Command{
	Use:   "info CONTAINER",
	Short: "List blobs in a container with sizes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := blobClientForAccount(cmd)
		checkExecErr(err)

		blobs, err := client.ListBlobs(cmd.Context(), args[0])
		checkExecErr(err)

		if len(blobs) == 0 {
			printWarning("Container %s is empty", args[0])
			return
		}

		var total int64
		rows := make([][]string, 0, len(blobs))
		for _, b := range blobs {
			total += b.Size
			rows = append(rows, []string{b.Name, strconv.FormatInt(b.Size, 10), b.ContentType, b.LastModified.Format(time.RFC3339)})
		}
		printTable([]string{"BLOB", "SIZE", "CONTENT TYPE", "LAST MODIFIED"}, rows)
		printInfo("%d blob(s), %d bytes total", len(blobs), total)
	},
}

var azureBlobUploadCmd = &cobra.Command{
	Use:   "upload FILE... CONTAINER",
	Short: "Upload files to a container",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := blobClientForAccount(cmd)
		checkExecErr(err)

		container := args[len(args)-1]
		files := args[:len(args)-1]

		for _, file := range files {
			blobName := filepath.Base(file)
			checkExecErr(client.UploadFile(cmd.Context(), container, blobName, file))
			printSuccess("Uploaded %s to %s/%s", file, container, blobName)
		}
	},
}

var azureBlobDownloadCmd = &cobra.Command{
	Use:   "download CONTAINER [BLOB]",
	Short: "Download a blob from a container",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, err := blobClientForAccount(cmd)
		checkExecErr(err)

		container := args[0]
		blobName := argOrEmpty(args, 1)
		if blobName == "" {
			blobs, err := client.ListBlobs(ctx, container)
			checkExecErr(err)

			options := make([]string, 0, len(blobs))
			for _, b := range blobs {
				options = append(options, fmt.Sprintf("%s (%d bytes)", b.Name, b.Size))
			}
			idx, err := promptSelect("Select a blob to download", options)
			checkExecErr(err)
			blobName = blobs[idx].Name
		}

		dest := filepath.Join(outputDir(), filepath.Base(blobName))
		checkExecErr(client.DownloadFile(ctx, container, blobName, dest))
		printSuccess("Downloaded %s to %s", blobName, dest)
	},
}

var azureBlobDumpCmd = &cobra.Command{
	Use:   "dump CONTAINER",
	Short: "Download every blob in a container and zip the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := blobClientForAccount(cmd)
		checkExecErr(err)

		zipPath, err := azure.DumpContainer(cmd.Context(), client, args[0], outputDir(), time.Now())
		checkExecErr(err)

		printSuccess("Container dump written to %s", zipPath)
	},
}

func init() {
	azureBlobCmd.PersistentFlags().StringVar(&blobAccountFlag, "account", "", "Storage account name (prompted when omitted)")

	azureBlobCmd.AddCommand(azureBlobListCmd)
	azureBlobCmd.AddCommand(azureBlobInfoCmd)
	azureBlobCmd.AddCommand(azureBlobUploadCmd)
	azureBlobCmd.AddCommand(azureBlobDownloadCmd)
	azureBlobCmd.AddCommand(azureBlobDumpCmd)
	azureCmd.AddCommand(azureBlobCmd)
}
