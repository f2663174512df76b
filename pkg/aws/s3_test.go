package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

func TestListObjectsFollowsPagination(t *testing.T) {
	var requestedTokens []*string

	mock := &mockS3{
		listObjects: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			requestedTokens = append(requestedTokens, in.ContinuationToken)
			if in.ContinuationToken == nil {
				return &s3.ListObjectsV2Output{
					Contents:              []s3types.Object{{Key: awssdk.String("page1"), Size: awssdk.Int64(1)}},
					IsTruncated:           awssdk.Bool(true),
					NextContinuationToken: awssdk.String("token-2"),
				}, nil
			}
			return &s3.ListObjectsV2Output{
				Contents: []s3types.Object{{Key: awssdk.String("page2"), Size: awssdk.Int64(2)}},
			}, nil
		},
	}

	objects, err := ListObjects(context.Background(), mock, "bucket")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "page1", objects[0].Key)
	assert.Equal(t, "page2", objects[1].Key)
	require.Len(t, requestedTokens, 2)
	assert.Nil(t, requestedTokens[0])
	assert.Equal(t, "token-2", awssdk.ToString(requestedTokens[1]))
}

func TestListBucketsEmptyIsNoResults(t *testing.T) {
	mock := &mockS3{}

	_, err := ListBuckets(context.Background(), mock)
	assert.ErrorIs(t, err, errUtils.ErrNoResults)
}
