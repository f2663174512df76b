// Package aws implements the AWS resource management and evidence
// collection operations on top of the AWS SDK.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

// LoadConfig resolves the ambient AWS credential chain. An explicit region
// overrides the profile/environment region.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: failed to resolve AWS credentials: %v", errUtils.ErrNotLoggedIn, err)
	}
	return cfg, nil
}
