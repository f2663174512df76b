package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

// EC2API is the subset of the EC2 client used by instance management.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// Instance describes an EC2 instance in listings.
type Instance struct {
	ID             string    `json:"instance_id"`
	Name           string    `json:"name,omitempty"`
	Type           string    `json:"instance_type"`
	State          string    `json:"state"`
	PrivateIP      string    `json:"private_ip,omitempty"`
	PublicIP       string    `json:"public_ip,omitempty"`
	LaunchTime     time.Time `json:"launch_time"`
	SecurityGroups []string  `json:"security_groups,omitempty"`
	VolumeIDs      []string  `json:"volume_ids,omitempty"`
	DeviceNames    []string  `json:"device_names,omitempty"`
}

// ListInstances returns every non-terminated instance in the region.
func ListInstances(ctx context.Context, client EC2API) ([]Instance, error) {
	instances, err := describeInstances(ctx, client, nil)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: no EC2 instances in the region", errUtils.ErrNoResults)
	}
	return instances, nil
}

// GetInstance fetches one instance by ID.
func GetInstance(ctx context.Context, client EC2API, instanceID string) (*Instance, error) {
	instances, err := describeInstances(ctx, client, []string{instanceID})
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: instance %s", errUtils.ErrNotFound, instanceID)
	}
	return &instances[0], nil
}

func describeInstances(ctx context.Context, client EC2API, instanceIDs []string) ([]Instance, error) {
	input := &ec2.DescribeInstancesInput{}
	if len(instanceIDs) > 0 {
		input.InstanceIds = instanceIDs
	}

	var instances []Instance
	for {
		out, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameTerminated && len(instanceIDs) == 0 {
					continue
				}
				instances = append(instances, toInstance(inst))
			}
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return instances, nil
}

func toInstance(inst ec2types.Instance) Instance {
	i := Instance{
		ID:        aws.ToString(inst.InstanceId),
		Type:      string(inst.InstanceType),
		PrivateIP: aws.ToString(inst.PrivateIpAddress),
		PublicIP:  aws.ToString(inst.PublicIpAddress),
	}
	if inst.State != nil {
		i.State = string(inst.State.Name)
	}
	if inst.LaunchTime != nil {
		i.LaunchTime = *inst.LaunchTime
	}
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" {
			i.Name = aws.ToString(tag.Value)
		}
	}
	for _, sg := range inst.SecurityGroups {
		i.SecurityGroups = append(i.SecurityGroups, aws.ToString(sg.GroupId))
	}
	for _, mapping := range inst.BlockDeviceMappings {
		if mapping.Ebs != nil {
			i.VolumeIDs = append(i.VolumeIDs, aws.ToString(mapping.Ebs.VolumeId))
			i.DeviceNames = append(i.DeviceNames, aws.ToString(mapping.DeviceName))
		}
	}
	return i
}

// CreateInstanceOptions collects the choices for a new instance.
type CreateInstanceOptions struct {
	Name         string
	ImageID      string
	InstanceType string
	KeyName      string
}

// CreateInstance launches one instance and tags it with a Name.
func CreateInstance(ctx context.Context, client EC2API, opts CreateInstanceOptions) (string, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(opts.ImageID),
		InstanceType: ec2types.InstanceType(opts.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags: []ec2types.Tag{{
				Key:   aws.String("Name"),
				Value: aws.String(opts.Name),
			}},
		}},
	}
	if opts.KeyName != "" {
		input.KeyName = aws.String(opts.KeyName)
	}

	out, err := client.RunInstances(ctx, input)
	if err != nil {
		return "", err
	}
	if len(out.Instances) == 0 {
		return "", fmt.Errorf("%w: RunInstances returned no instances", errUtils.ErrCommandFailed)
	}

	id := aws.ToString(out.Instances[0].InstanceId)
	log.Info("Instance launched", "instance", id, "name", opts.Name)
	return id, nil
}

// StartInstance starts a stopped instance.
func StartInstance(ctx context.Context, client EC2API, instanceID string) error {
	_, err := client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return err
	}
	log.Info("Instance starting", "instance", instanceID)
	return nil
}

// StopInstance stops a running instance.
func StopInstance(ctx context.Context, client EC2API, instanceID string) error {
	_, err := client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return err
	}
	log.Info("Instance stopping", "instance", instanceID)
	return nil
}

// TerminateInstance terminates an instance.
func TerminateInstance(ctx context.Context, client EC2API, instanceID string) error {
	_, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return err
	}
	log.Info("Instance terminating", "instance", instanceID)
	return nil
}
