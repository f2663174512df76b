package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/spf13/cobra"

	awsres "github.com/nimbusdfir/nimbus/pkg/aws"
	"github.com/nimbusdfir/nimbus/pkg/evidence"
)

var awsEC2Cmd = &cobra.Command{
	Use:   "ec2",
	Short: "Manage EC2 instances and preserve forensic evidence",
}

func ec2Client(cmd *cobra.Command) (*ec2.Client, error) {
	cfg, err := awsres.LoadConfig(cmd.Context(), awsRegion())
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

// selectInstance resolves the target instance from an argument or a
// prompt over the region's instances.
func selectInstance(ctx context.Context, client awsres.EC2API, idArg string) (string, error) {
	if idArg != "" {
		return idArg, nil
	}

	instances, err := awsres.ListInstances(ctx, client)
	if err != nil {
		return "", err
	}
	options := make([]string, 0, len(instances))
	for _, inst := range instances {
		label := inst.ID
		if inst.Name != "" {
			label = fmt.Sprintf("%s (%s)", inst.ID, inst.Name)
		}
		options = append(options, fmt.Sprintf("%s - %s, %s", label, inst.Type, inst.State))
	}
	idx, err := promptSelect("Select an instance", options)
	if err != nil {
		return "", err
	}
	return instances[idx].ID, nil
}

var awsEC2ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List EC2 instances",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := ec2Client(cmd)
		checkExecErr(err)

		instances, err := awsres.ListInstances(cmd.Context(), client)
		checkExecErr(err)

		rows := make([][]string, 0, len(instances))
		for _, inst := range instances {
			rows = append(rows, []string{inst.ID, inst.Name, inst.Type, inst.State, inst.PrivateIP, inst.PublicIP})
		}
		printTable([]string{"INSTANCE", "NAME", "TYPE", "STATE", "PRIVATE IP", "PUBLIC IP"}, rows)
	},
}

var ec2ImageFlag, ec2KeyNameFlag string

var awsEC2CreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Launch an EC2 instance",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := ec2Client(cmd)
		checkExecErr(err)

		name := argOrEmpty(args, 0)
		if name == "" {
			name, err = promptInput("Instance name", "")
			checkExecErr(err)
		}

		imageID := ec2ImageFlag
		if imageID == "" {
			imageID, err = promptInput("AMI ID", "")
			checkExecErr(err)
		}

		instanceType, err := promptInput("Instance type", Config().AWS.DefaultInstanceType)
		checkExecErr(err)

		id, err := awsres.CreateInstance(cmd.Context(), client, awsres.CreateInstanceOptions{
			Name:         name,
			ImageID:      imageID,
			InstanceType: instanceType,
			KeyName:      ec2KeyNameFlag,
		})
		checkExecErr(err)
		printSuccess("Instance %s launched", id)
	},
}

var awsEC2StartCmd = &cobra.Command{
	Use:   "start [INSTANCE]",
	Short: "Start an instance",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runEC2Action(cmd, args, "start", awsres.StartInstance)
	},
}

var awsEC2StopCmd = &cobra.Command{
	Use:   "stop [INSTANCE]",
	Short: "Stop an instance",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runEC2Action(cmd, args, "stop", awsres.StopInstance)
	},
}

var awsEC2TerminateCmd = &cobra.Command{
	Use:   "terminate [INSTANCE]",
	Short: "Terminate an instance",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runEC2Action(cmd, args, "terminate", awsres.TerminateInstance)
	},
}

func runEC2Action(cmd *cobra.Command, args []string, action string, fn func(ctx context.Context, client awsres.EC2API, id string) error) {
	ctx := cmd.Context()
	client, err := ec2Client(cmd)
	checkExecErr(err)

	id, err := selectInstance(ctx, client, argOrEmpty(args, 0))
	checkExecErr(err)

	if action == "terminate" {
		checkExecErr(confirmOrAbort(fmt.Sprintf("Terminate instance %s? This cannot be undone.", id)))
	}

	checkExecErr(fn(ctx, client, id))
	printSuccess("Instance %s: %s requested", id, action)
}

var awsEC2IsolateCmd = &cobra.Command{
	Use:   "isolate [INSTANCE]",
	Short: "Quarantine an instance for forensic analysis",
	Long:  `This command swaps the instance's security groups for a no-ingress, no-egress quarantine group (created in the default VPC if absent), backs up the original group IDs, and writes a chain-of-custody report`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := awsres.LoadConfig(ctx, awsRegion())
		checkExecErr(err)
		client := ec2.NewFromConfig(cfg)

		id, err := selectInstance(ctx, client, argOrEmpty(args, 0))
		checkExecErr(err)

		checkExecErr(confirmOrAbort(fmt.Sprintf("Isolate instance %s? It will lose all network connectivity.", id)))

		now := time.Now()
		result, err := awsres.IsolateInstance(ctx, client, id, Config().AWS.QuarantineSGName, now)
		checkExecErr(err)

		header := evidence.NewHeader(cfg.Region, "")
		reportPath, err := evidence.WriteIsolationReport(result, header, outputDir(), now)
		checkExecErr(err)

		printSuccess("Instance %s isolated", id)
		printInfo("Security group backup: %s", result.BackupFile)
		printInfo("Chain-of-custody report: %s", reportPath)
	},
}

var ec2CaseNumberFlag string

var awsEC2SnapshotCmd = &cobra.Command{
	Use:   "snapshot [INSTANCE]",
	Short: "Create evidence snapshots of an instance's EBS volumes",
	Long:  `This command snapshots every attached EBS volume with forensic tags (source instance and volume, evidence type, operator, optional case number) and writes a chain-of-custody report`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := awsres.LoadConfig(ctx, awsRegion())
		checkExecErr(err)
		client := ec2.NewFromConfig(cfg)

		id, err := selectInstance(ctx, client, argOrEmpty(args, 0))
		checkExecErr(err)

		now := time.Now()
		header := evidence.NewHeader(cfg.Region, "")

		result, err := awsres.SnapshotInstanceVolumes(ctx, client, id, ec2CaseNumberFlag, header.Operator, now)
		checkExecErr(err)

		reportPath, err := evidence.WriteSnapshotReport(result, header, outputDir(), now)
		checkExecErr(err)

		printSuccess("%d evidence snapshot(s) started for %s", len(result.Snapshots), id)
		printInfo("Chain-of-custody report: %s", reportPath)
	},
}

var awsEC2SnapshotDeleteCmd = &cobra.Command{
	Use:   "snapshot-delete SNAPSHOT",
	Short: "Delete an evidence snapshot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := ec2Client(cmd)
		checkExecErr(err)

		checkExecErr(confirmOrAbort(fmt.Sprintf("Delete snapshot %s?", args[0])))
		checkExecErr(awsres.DeleteSnapshot(cmd.Context(), client, args[0]))
	},
}

func init() {
	awsEC2CreateCmd.Flags().StringVar(&ec2ImageFlag, "image", "", "AMI ID to launch (prompted when omitted)")
	awsEC2CreateCmd.Flags().StringVar(&ec2KeyNameFlag, "key-name", "", "EC2 key pair for SSH access")
	awsEC2SnapshotCmd.Flags().StringVar(&ec2CaseNumberFlag, "case", "", "Case number to carry in snapshot descriptions and tags")

	awsEC2Cmd.AddCommand(awsEC2ListCmd)
	awsEC2Cmd.AddCommand(awsEC2CreateCmd)
	awsEC2Cmd.AddCommand(awsEC2StartCmd)
	awsEC2Cmd.AddCommand(awsEC2StopCmd)
	awsEC2Cmd.AddCommand(awsEC2TerminateCmd)
	awsEC2Cmd.AddCommand(awsEC2IsolateCmd)
	awsEC2Cmd.AddCommand(awsEC2SnapshotCmd)
	awsEC2Cmd.AddCommand(awsEC2SnapshotDeleteCmd)
	awsCmd.AddCommand(awsEC2Cmd)
}
