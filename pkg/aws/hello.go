package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

// STSAPI is the subset of the STS client used by the connection test.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// RegionsAPI lists the regions available to the account.
type RegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// HelloResult is the outcome of the AWS connection test.
type HelloResult struct {
	Account string   `json:"account"`
	ARN     string   `json:"arn"`
	UserID  string   `json:"user_id"`
	Regions []string `json:"regions"`
}

// Hello verifies that the ambient AWS credentials resolve, reports the
// caller identity, and lists the enabled regions.
func Hello(ctx context.Context, stsClient STSAPI, regionsClient RegionsAPI) (*HelloResult, error) {
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("%w: STS GetCallerIdentity failed: %v", errUtils.ErrNotLoggedIn, err)
	}

	result := &HelloResult{
		Account: aws.ToString(identity.Account),
		ARN:     aws.ToString(identity.Arn),
		UserID:  aws.ToString(identity.UserId),
	}

	regions, err := regionsClient.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, err
	}
	for _, region := range regions.Regions {
		result.Regions = append(result.Regions, aws.ToString(region.RegionName))
	}

	return result, nil
}
