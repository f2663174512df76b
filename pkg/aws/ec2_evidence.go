package aws

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// EC2IsolationAPI is the EC2 surface used by instance quarantine.
type EC2IsolationAPI interface {
	EC2API
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error)
	RevokeSecurityGroupEgress(ctx context.Context, params *ec2.RevokeSecurityGroupEgressInput, optFns ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error)
	ModifyInstanceAttribute(ctx context.Context, params *ec2.ModifyInstanceAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyInstanceAttributeOutput, error)
}

// EC2SnapshotAPI is the EC2 surface used by evidence snapshots.
type EC2SnapshotAPI interface {
	EC2API
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
}

// IsolationResult records what the quarantine changed, for the
// chain-of-custody report.
type IsolationResult struct {
	InstanceID       string    `json:"instance_id"`
	InstanceName     string    `json:"instance_name,omitempty"`
	QuarantineSGID   string    `json:"quarantine_sg_id"`
	QuarantineSGName string    `json:"quarantine_sg_name"`
	OriginalSGIDs    []string  `json:"original_sg_ids"`
	BackupFile       string    `json:"backup_file"`
	IsolatedAt       time.Time `json:"isolated_at"`
}

// EnsureQuarantineSG finds the quarantine security group in the default
// VPC, creating it if absent. The group has no ingress rules and its
// default allow-all egress is revoked, so members cannot talk to anything.
func EnsureQuarantineSG(ctx context.Context, client EC2IsolationAPI, sgName string) (string, error) {
	existing, err := client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("group-name"),
			Values: []string{sgName},
		}},
	})
	if err != nil {
		return "", err
	}
	if len(existing.SecurityGroups) > 0 {
		id := aws.ToString(existing.SecurityGroups[0].GroupId)
		log.Info("Using existing quarantine security group", "sg", id)
		return id, nil
	}

	vpcs, err := client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("isDefault"),
			Values: []string{"true"},
		}},
	})
	if err != nil {
		return "", err
	}
	if len(vpcs.Vpcs) == 0 {
		return "", fmt.Errorf("%w: no default VPC to host the quarantine security group", errUtils.ErrNotFound)
	}
	vpcID := aws.ToString(vpcs.Vpcs[0].VpcId)

	created, err := client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(sgName),
		Description: aws.String("Forensic quarantine: no ingress, no egress"),
		VpcId:       aws.String(vpcID),
	})
	if err != nil {
		return "", err
	}
	sgID := aws.ToString(created.GroupId)

	// A new group comes with an allow-all egress rule; revoke it.
	_, err = client.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
		GroupId: aws.String(sgID),
		IpPermissions: []ec2types.IpPermission{{
			IpProtocol: aws.String("-1"),
			IpRanges: []ec2types.IpRange{{
				CidrIp: aws.String("0.0.0.0/0"),
			}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("created %s but failed to revoke default egress: %w", sgID, err)
	}

	log.Info("Quarantine security group created", "sg", sgID, "vpc", vpcID)
	return sgID, nil
}

// IsolateInstance swaps the instance's security groups for the quarantine
// group. The original group IDs are written to a backup file first so the
// swap can be reversed.
func IsolateInstance(ctx context.Context, client EC2IsolationAPI, instanceID string, sgName string, now time.Time) (*IsolationResult, error) {
	instance, err := GetInstance(ctx, client, instanceID)
	if err != nil {
		return nil, err
	}
	if len(instance.SecurityGroups) == 0 {
		return nil, fmt.Errorf("%w: instance %s has no security groups to back up", errUtils.ErrNotFound, instanceID)
	}

	sgID, err := EnsureQuarantineSG(ctx, client, sgName)
	if err != nil {
		return nil, err
	}

	backupFile := filepath.Join(os.TempDir(), fmt.Sprintf("%s_sg_backup_%s.json", instanceID, u.Timestamp(now)))
	backup := map[string]interface{}{
		"instance_id":     instanceID,
		"original_sg_ids": instance.SecurityGroups,
		"backed_up_at":    now.UTC().Format(time.RFC3339),
	}
	if err := u.WriteToFileAsJSON(backupFile, backup, 0o600); err != nil {
		return nil, fmt.Errorf("refusing to isolate without a security group backup: %w", err)
	}

	_, err = client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(instanceID),
		Groups:     []string{sgID},
	})
	if err != nil {
		return nil, err
	}

	log.Info("Instance isolated", "instance", instanceID, "quarantine_sg", sgID)

	return &IsolationResult{
		InstanceID:       instanceID,
		InstanceName:     instance.Name,
		QuarantineSGID:   sgID,
		QuarantineSGName: sgName,
		OriginalSGIDs:    instance.SecurityGroups,
		BackupFile:       backupFile,
		IsolatedAt:       now,
	}, nil
}

// EvidenceSnapshot records one snapshot taken from an instance volume.
type EvidenceSnapshot struct {
	SnapshotID  string `json:"snapshot_id"`
	VolumeID    string `json:"volume_id"`
	Device      string `json:"device"`
	Description string `json:"description"`
}

// SnapshotResult is the outcome of snapshotting every volume of an
// instance.
type SnapshotResult struct {
	InstanceID   string             `json:"instance_id"`
	InstanceName string             `json:"instance_name,omitempty"`
	CaseNumber   string             `json:"case_number,omitempty"`
	Snapshots    []EvidenceSnapshot `json:"snapshots"`
	CreatedAt    time.Time          `json:"created_at"`
}

// SnapshotDescription builds the snapshot description, carrying the case
// number when one was assigned.
func SnapshotDescription(caseNumber string, instanceID string, device string, ts string) string {
	desc := fmt.Sprintf("EVIDENCE-SNAPSHOT-%s-%s-%s", instanceID, device, ts)
	if caseNumber != "" {
		desc = fmt.Sprintf("CASE-%s-%s", caseNumber, desc)
	}
	return desc
}

// SnapshotInstanceVolumes creates one evidence snapshot per attached EBS
// volume, tagged for forensic traceability.
func SnapshotInstanceVolumes(ctx context.Context, client EC2SnapshotAPI, instanceID string, caseNumber string, operator string, now time.Time) (*SnapshotResult, error) {
	instance, err := GetInstance(ctx, client, instanceID)
	if err != nil {
		return nil, err
	}
	if len(instance.VolumeIDs) == 0 {
		return nil, fmt.Errorf("%w: instance %s has no EBS volumes", errUtils.ErrNoResults, instanceID)
	}

	ts := u.Timestamp(now)
	result := &SnapshotResult{
		InstanceID:   instanceID,
		InstanceName: instance.Name,
		CaseNumber:   caseNumber,
		CreatedAt:    now,
	}

	for idx, volumeID := range instance.VolumeIDs {
		device := instance.DeviceNames[idx]
		description := SnapshotDescription(caseNumber, instanceID, device, ts)

		tags := []ec2types.Tag{
			{Key: aws.String("Name"), Value: aws.String(description)},
			{Key: aws.String("SourceInstance"), Value: aws.String(instanceID)},
			{Key: aws.String("SourceVolume"), Value: aws.String(volumeID)},
			{Key: aws.String("EvidenceType"), Value: aws.String("DigitalForensics")},
			{Key: aws.String("CreatedBy"), Value: aws.String(operator)},
			{Key: aws.String("CreationReason"), Value: aws.String("Forensic evidence preservation")},
		}
		if caseNumber != "" {
			tags = append(tags, ec2types.Tag{Key: aws.String("CaseNumber"), Value: aws.String(caseNumber)})
		}

		out, err := client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
			VolumeId:    aws.String(volumeID),
			Description: aws.String(description),
			TagSpecifications: []ec2types.TagSpecification{{
				ResourceType: ec2types.ResourceTypeSnapshot,
				Tags:         tags,
			}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot volume %s: %w", volumeID, err)
		}

		snapshotID := aws.ToString(out.SnapshotId)
		log.Info("Evidence snapshot started", "snapshot", snapshotID, "volume", volumeID, "device", device)

		result.Snapshots = append(result.Snapshots, EvidenceSnapshot{
			SnapshotID:  snapshotID,
			VolumeID:    volumeID,
			Device:      device,
			Description: description,
		})
	}

	return result, nil
}

// DeleteSnapshot removes a snapshot, typically after evidence has been
// exported elsewhere.
func DeleteSnapshot(ctx context.Context, client EC2SnapshotAPI, snapshotID string) error {
	_, err := client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(snapshotID)})
	if err != nil {
		return err
	}
	log.Info("Snapshot deleted", "snapshot", snapshotID)
	return nil
}
