package cmd

import (
	"github.com/spf13/cobra"
)

var awsCmd = &cobra.Command{
	Use:   "aws",
	Short: "Manage AWS resources and collect forensic evidence",
	Long:  `This command manages AWS resources (S3, EC2, RDS) and collects forensic evidence: instance isolation, EBS snapshots, and bucket metadata`,
}

func init() {
	RootCmd.AddCommand(awsCmd)
}
