package aws

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEC2 implements the EC2 interfaces with overridable function fields.
type mockEC2 struct {
	describeInstances      func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	describeVpcs           func(*ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error)
	describeSecurityGroups func(*ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error)
	createSecurityGroup    func(*ec2.CreateSecurityGroupInput) (*ec2.CreateSecurityGroupOutput, error)
	revokeEgress           func(*ec2.RevokeSecurityGroupEgressInput) (*ec2.RevokeSecurityGroupEgressOutput, error)
	modifyAttribute        func(*ec2.ModifyInstanceAttributeInput) (*ec2.ModifyInstanceAttributeOutput, error)
	createSnapshot         func(*ec2.CreateSnapshotInput) (*ec2.CreateSnapshotOutput, error)
	deleteSnapshot         func(*ec2.DeleteSnapshotInput) (*ec2.DeleteSnapshotOutput, error)
}

func (m *mockEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return m.describeInstances(params)
}

func (m *mockEC2) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEC2) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEC2) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEC2) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEC2) DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	return m.describeVpcs(params)
}

func (m *mockEC2) DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	return m.describeSecurityGroups(params)
}

func (m *mockEC2) CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	return m.createSecurityGroup(params)
}

func (m *mockEC2) RevokeSecurityGroupEgress(ctx context.Context, params *ec2.RevokeSecurityGroupEgressInput, optFns ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error) {
	return m.revokeEgress(params)
}

func (m *mockEC2) ModifyInstanceAttribute(ctx context.Context, params *ec2.ModifyInstanceAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyInstanceAttributeOutput, error) {
	return m.modifyAttribute(params)
}

func (m *mockEC2) CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error) {
	return m.createSnapshot(params)
}

func (m *mockEC2) DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error) {
	return m.deleteSnapshot(params)
}

func instancesOutput(instanceID string, sgIDs []string, volumes map[string]string) *ec2.DescribeInstancesOutput {
	inst := ec2types.Instance{
		InstanceId:   awssdk.String(instanceID),
		InstanceType: ec2types.InstanceTypeT3Micro,
		State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
	}
	for _, sg := range sgIDs {
		inst.SecurityGroups = append(inst.SecurityGroups, ec2types.GroupIdentifier{GroupId: awssdk.String(sg)})
	}
	for device, volume := range volumes {
		inst.BlockDeviceMappings = append(inst.BlockDeviceMappings, ec2types.InstanceBlockDeviceMapping{
			DeviceName: awssdk.String(device),
			Ebs:        &ec2types.EbsInstanceBlockDevice{VolumeId: awssdk.String(volume)},
		})
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{inst}}},
	}
}

func TestEnsureQuarantineSGCreatesAndLocksDown(t *testing.T) {
	var revoked *ec2.RevokeSecurityGroupEgressInput

	mock := &mockEC2{
		describeSecurityGroups: func(in *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error) {
			return &ec2.DescribeSecurityGroupsOutput{}, nil
		},
		describeVpcs: func(in *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error) {
			return &ec2.DescribeVpcsOutput{Vpcs: []ec2types.Vpc{{VpcId: awssdk.String("vpc-default")}}}, nil
		},
		createSecurityGroup: func(in *ec2.CreateSecurityGroupInput) (*ec2.CreateSecurityGroupOutput, error) {
			assert.Equal(t, "ec2-quarantine-sg", awssdk.ToString(in.GroupName))
			assert.Equal(t, "vpc-default", awssdk.ToString(in.VpcId))
			return &ec2.CreateSecurityGroupOutput{GroupId: awssdk.String("sg-quarantine")}, nil
		},
		revokeEgress: func(in *ec2.RevokeSecurityGroupEgressInput) (*ec2.RevokeSecurityGroupEgressOutput, error) {
			revoked = in
			return &ec2.RevokeSecurityGroupEgressOutput{}, nil
		},
	}

	sgID, err := EnsureQuarantineSG(context.Background(), mock, "ec2-quarantine-sg")
	require.NoError(t, err)
	assert.Equal(t, "sg-quarantine", sgID)

	require.NotNil(t, revoked, "default egress must be revoked on a fresh group")
	assert.Equal(t, "sg-quarantine", awssdk.ToString(revoked.GroupId))
	require.Len(t, revoked.IpPermissions, 1)
	assert.Equal(t, "-1", awssdk.ToString(revoked.IpPermissions[0].IpProtocol))
}

func TestEnsureQuarantineSGReusesExisting(t *testing.T) {
	mock := &mockEC2{
		describeSecurityGroups: func(in *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error) {
			return &ec2.DescribeSecurityGroupsOutput{
				SecurityGroups: []ec2types.SecurityGroup{{GroupId: awssdk.String("sg-existing")}},
			}, nil
		},
	}

	sgID, err := EnsureQuarantineSG(context.Background(), mock, "ec2-quarantine-sg")
	require.NoError(t, err)
	assert.Equal(t, "sg-existing", sgID)
}

func TestIsolateInstanceBacksUpAndSwapsGroups(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	var modified *ec2.ModifyInstanceAttributeInput

	mock := &mockEC2{
		describeInstances: func(in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
			return instancesOutput("i-0abc", []string{"sg-1", "sg-2"}, nil), nil
		},
		describeSecurityGroups: func(in *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error) {
			return &ec2.DescribeSecurityGroupsOutput{
				SecurityGroups: []ec2types.SecurityGroup{{GroupId: awssdk.String("sg-quarantine")}},
			}, nil
		},
		modifyAttribute: func(in *ec2.ModifyInstanceAttributeInput) (*ec2.ModifyInstanceAttributeOutput, error) {
			modified = in
			return &ec2.ModifyInstanceAttributeOutput{}, nil
		},
	}

	now := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)
	result, err := IsolateInstance(context.Background(), mock, "i-0abc", "ec2-quarantine-sg", now)
	require.NoError(t, err)

	assert.Equal(t, []string{"sg-1", "sg-2"}, result.OriginalSGIDs)
	assert.Equal(t, "sg-quarantine", result.QuarantineSGID)

	require.NotNil(t, modified)
	assert.Equal(t, []string{"sg-quarantine"}, modified.Groups)

	// The backup file must exist and name the original groups.
	data, err := os.ReadFile(result.BackupFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sg-1")
	assert.Contains(t, string(data), "sg-2")
}

func TestSnapshotInstanceVolumesTagsEverySnapshot(t *testing.T) {
	var created []*ec2.CreateSnapshotInput

	mock := &mockEC2{
		describeInstances: func(in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
			return instancesOutput("i-0abc", nil, map[string]string{
				"/dev/xvda": "vol-root",
			}), nil
		},
		createSnapshot: func(in *ec2.CreateSnapshotInput) (*ec2.CreateSnapshotOutput, error) {
			created = append(created, in)
			return &ec2.CreateSnapshotOutput{SnapshotId: awssdk.String(fmt.Sprintf("snap-%d", len(created)))}, nil
		},
	}

	now := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)
	result, err := SnapshotInstanceVolumes(context.Background(), mock, "i-0abc", "4711", "analyst", now)
	require.NoError(t, err)
	require.Len(t, result.Snapshots, 1)

	snap := result.Snapshots[0]
	assert.Equal(t, "snap-1", snap.SnapshotID)
	assert.Equal(t, "vol-root", snap.VolumeID)
	assert.Equal(t, "CASE-4711-EVIDENCE-SNAPSHOT-i-0abc-/dev/xvda-20240315_090542", snap.Description)

	require.Len(t, created, 1)
	tags := map[string]string{}
	require.Len(t, created[0].TagSpecifications, 1)
	for _, tag := range created[0].TagSpecifications[0].Tags {
		tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
	}
	assert.Equal(t, "i-0abc", tags["SourceInstance"])
	assert.Equal(t, "vol-root", tags["SourceVolume"])
	assert.Equal(t, "DigitalForensics", tags["EvidenceType"])
	assert.Equal(t, "analyst", tags["CreatedBy"])
	assert.Equal(t, "4711", tags["CaseNumber"])
}

func TestSnapshotDescriptionWithoutCase(t *testing.T) {
	desc := SnapshotDescription("", "i-0abc", "/dev/xvda", "20240315_090542")
	assert.Equal(t, "EVIDENCE-SNAPSHOT-i-0abc-/dev/xvda-20240315_090542", desc)
}
