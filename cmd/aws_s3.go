package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	awsres "github.com/nimbusdfir/nimbus/pkg/aws"
)

var awsS3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Manage S3 buckets and collect bucket evidence",
}

func s3Client(cmd *cobra.Command) (*s3.Client, error) {
	cfg, err := awsres.LoadConfig(cmd.Context(), awsRegion())
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// selectBucket resolves the target bucket from an argument or a prompt.
func selectBucket(cmd *cobra.Command, client awsres.S3API, nameArg string) (string, error) {
	if nameArg != "" {
		return nameArg, nil
	}

	buckets, err := awsres.ListBuckets(cmd.Context(), client)
	if err != nil {
		return "", err
	}
	options := make([]string, 0, len(buckets))
	for _, b := range buckets {
		options = append(options, b.Name)
	}
	idx, err := promptSelect("Select a bucket", options)
	if err != nil {
		return "", err
	}
	return buckets[idx].Name, nil
}

var awsS3ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		buckets, err := awsres.ListBuckets(cmd.Context(), client)
		checkExecErr(err)

		rows := make([][]string, 0, len(buckets))
		for _, b := range buckets {
			rows = append(rows, []string{b.Name, b.CreationDate.Format(time.RFC3339)})
		}
		printTable([]string{"BUCKET", "CREATED"}, rows)
	},
}

var awsS3CreateCmd = &cobra.Command{
	Use:   "create [BUCKET]",
	Short: "Create a bucket",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		name := argOrEmpty(args, 0)
		if name == "" {
			name, err = promptInput("Bucket name", "")
			checkExecErr(err)
		}

		checkExecErr(awsres.CreateBucket(cmd.Context(), client, name, awsRegion()))
		printSuccess("Bucket %s created", name)
	},
}

var awsS3DeleteCmd = &cobra.Command{
	Use:   "delete [BUCKET]",
	Short: "Delete an empty bucket",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		name, err := selectBucket(cmd, client, argOrEmpty(args, 0))
		checkExecErr(err)

		checkExecErr(confirmOrAbort(fmt.Sprintf("Delete bucket %s?", name)))
		checkExecErr(awsres.DeleteBucket(cmd.Context(), client, name))
	},
}

var awsS3InfoCmd = &cobra.Command{
	Use:   "info [BUCKET]",
	Short: "List objects in a bucket with sizes",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		name, err := selectBucket(cmd, client, argOrEmpty(args, 0))
		checkExecErr(err)

		objects, err := awsres.ListObjects(cmd.Context(), client, name)
		checkExecErr(err)

		if len(objects) == 0 {
			printWarning("Bucket %s is empty", name)
			return
		}

		var total int64
		rows := make([][]string, 0, len(objects))
		for _, obj := range objects {
			total += obj.Size
			rows = append(rows, []string{obj.Key, strconv.FormatInt(obj.Size, 10), obj.StorageClass, obj.LastModified.Format(time.RFC3339)})
		}
		printTable([]string{"KEY", "SIZE", "STORAGE CLASS", "LAST MODIFIED"}, rows)
		printInfo("%d object(s), %d bytes total", len(objects), total)
	},
}

var awsS3UploadCmd = &cobra.Command{
	Use:   "upload FILE... [BUCKET]",
	Short: "Upload files to a bucket",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		// The last argument is the bucket when it names an existing one;
		// otherwise every argument is a file and the bucket is prompted.
		files := args
		bucket := ""
		if len(args) >= 2 {
			bucket = args[len(args)-1]
			files = args[:len(args)-1]
		}
		bucket, err = selectBucket(cmd, client, bucket)
		checkExecErr(err)

		uploader := manager.NewUploader(client)
		checkExecErr(awsres.UploadFiles(cmd.Context(), uploader, bucket, files))
		printSuccess("Uploaded %d file(s) to %s", len(files), bucket)
	},
}

var awsS3DownloadCmd = &cobra.Command{
	Use:   "download [BUCKET] [KEY] [PATH]",
	Short: "Download an object from a bucket",
	Args:  cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, err := s3Client(cmd)
		checkExecErr(err)

		bucket, err := selectBucket(cmd, client, argOrEmpty(args, 0))
		checkExecErr(err)

		key := argOrEmpty(args, 1)
		if key == "" {
			objects, err := awsres.ListObjects(ctx, client, bucket)
			checkExecErr(err)
			options := make([]string, 0, len(objects))
			for _, obj := range objects {
				options = append(options, fmt.Sprintf("%s (%d bytes)", obj.Key, obj.Size))
			}
			idx, err := promptSelect("Select an object to download", options)
			checkExecErr(err)
			key = objects[idx].Key
		}

		dest := argOrEmpty(args, 2)
		if dest == "" {
			dest = filepath.Join(outputDir(), filepath.Base(key))
		}

		downloader := manager.NewDownloader(client)
		checkExecErr(awsres.DownloadObject(ctx, downloader, bucket, key, dest))
	},
}

var awsS3DumpCmd = &cobra.Command{
	Use:   "dump [BUCKET]",
	Short: "Download every object in a bucket and zip the result",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		bucket, err := selectBucket(cmd, client, argOrEmpty(args, 0))
		checkExecErr(err)

		downloader := manager.NewDownloader(client)
		zipPath, err := awsres.DumpBucket(cmd.Context(), client, downloader, bucket, outputDir(), time.Now())
		checkExecErr(err)

		printSuccess("Bucket dump written to %s", zipPath)
	},
}

var s3EvidenceObjectsFlag bool

var awsS3EvidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Collect forensic metadata for every bucket",
	Long:  `This command records each bucket's location, ACL, public-access block, policy, versioning, encryption, logging, and lifecycle configuration into a timestamped JSON report. Failed lookups are captured per field instead of aborting`,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := s3Client(cmd)
		checkExecErr(err)

		now := time.Now()
		report, err := awsres.CollectS3Evidence(cmd.Context(), client, s3EvidenceObjectsFlag, now)
		checkExecErr(err)

		path, err := awsres.WriteS3EvidenceReport(report, outputDir(), now)
		checkExecErr(err)

		printSuccess("Evidence for %d bucket(s) written to %s", report.BucketCount, path)
	},
}

func init() {
	awsS3EvidenceCmd.Flags().BoolVar(&s3EvidenceObjectsFlag, "objects", false, "Also count objects and total their size per bucket (slow on large buckets)")

	awsS3Cmd.AddCommand(awsS3ListCmd)
	awsS3Cmd.AddCommand(awsS3CreateCmd)
	awsS3Cmd.AddCommand(awsS3DeleteCmd)
	awsS3Cmd.AddCommand(awsS3InfoCmd)
	awsS3Cmd.AddCommand(awsS3UploadCmd)
	awsS3Cmd.AddCommand(awsS3DownloadCmd)
	awsS3Cmd.AddCommand(awsS3DumpCmd)
	awsS3Cmd.AddCommand(awsS3EvidenceCmd)
	awsCmd.AddCommand(awsS3Cmd)
}
