package cmd

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	awsres "github.com/nimbusdfir/nimbus/pkg/aws"
)

var awsRegionFlag string

var awsHelloCmd = &cobra.Command{
	Use:     "hello",
	Short:   "Test the AWS connection",
	Long:    `This command verifies the AWS credential chain, reports the caller identity, and lists the enabled regions`,
	Example: "nimbus aws hello",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := awsres.LoadConfig(ctx, awsRegion())
		checkExecErr(err)

		result, err := awsres.Hello(ctx, sts.NewFromConfig(cfg), ec2.NewFromConfig(cfg))
		checkExecErr(err)

		printSuccess("AWS connection OK")
		printTable([]string{"ACCOUNT", "ARN", "USER ID"}, [][]string{{result.Account, result.ARN, result.UserID}})
		printInfo("Enabled regions: %s", strings.Join(result.Regions, ", "))
	},
}

// awsRegion resolves the target region: flag first, then configuration.
// Empty falls through to the SDK's own resolution.
func awsRegion() string {
	if awsRegionFlag != "" {
		return awsRegionFlag
	}
	return Config().AWS.Region
}

func init() {
	awsCmd.PersistentFlags().StringVar(&awsRegionFlag, "region", "", "AWS region (defaults to the configured or profile region)")
	awsCmd.AddCommand(awsHelloCmd)
}
