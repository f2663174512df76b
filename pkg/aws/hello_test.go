package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

type mockSTS struct {
	identity *sts.GetCallerIdentityOutput
	err      error
}

func (m *mockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.identity, m.err
}

type mockRegions struct {
	regions []string
}

func (m *mockRegions) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range m.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: awssdk.String(r)})
	}
	return out, nil
}

func TestHello(t *testing.T) {
	stsMock := &mockSTS{identity: &sts.GetCallerIdentityOutput{
		Account: awssdk.String("123456789012"),
		Arn:     awssdk.String("arn:aws:iam::123456789012:user/analyst"),
		UserId:  awssdk.String("AIDAEXAMPLE"),
	}}
	regionsMock := &mockRegions{regions: []string{"us-east-1", "eu-west-1"}}

	result, err := Hello(context.Background(), stsMock, regionsMock)
	require.NoError(t, err)

	assert.Equal(t, "123456789012", result.Account)
	assert.Equal(t, "arn:aws:iam::123456789012:user/analyst", result.ARN)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, result.Regions)
}

func TestHelloNotLoggedIn(t *testing.T) {
	stsMock := &mockSTS{err: context.DeadlineExceeded}

	_, err := Hello(context.Background(), stsMock, &mockRegions{})
	assert.ErrorIs(t, err, errUtils.ErrNotLoggedIn)
}
