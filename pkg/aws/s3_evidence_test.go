package aws

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "dial tcp: timeout", apiErrorMessage(errors.New("dial tcp: timeout")))

	apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	assert.Equal(t, "AccessDenied: not authorized", apiErrorMessage(apiErr))
}

// mockS3 serves one bucket with canned responses; nil function fields
// fail the corresponding lookup.
type mockS3 struct {
	buckets        []s3types.Bucket
	objects        []s3types.Object
	versioning     *s3.GetBucketVersioningOutput
	policy         *s3.GetBucketPolicyOutput
	listObjects    func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	failEverything bool
}

var errDenied = errors.New("AccessDenied")

func (m *mockS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return &s3.ListBucketsOutput{Buckets: m.buckets}, nil
}

func (m *mockS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

func (m *mockS3) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	return &s3.DeleteBucketOutput{}, nil
}

func (m *mockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.listObjects != nil {
		return m.listObjects(params)
	}
	return &s3.ListObjectsV2Output{Contents: m.objects}, nil
}

func (m *mockS3) GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	return &s3.GetBucketLocationOutput{}, nil
}

func (m *mockS3) GetBucketAcl(ctx context.Context, params *s3.GetBucketAclInput, optFns ...func(*s3.Options)) (*s3.GetBucketAclOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	return &s3.GetBucketAclOutput{}, nil
}

func (m *mockS3) GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	return &s3.GetPublicAccessBlockOutput{}, nil
}

func (m *mockS3) GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	if m.policy != nil {
		return m.policy, nil
	}
	return nil, errors.New("NoSuchBucketPolicy")
}

func (m *mockS3) GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	if m.versioning != nil {
		return m.versioning, nil
	}
	return &s3.GetBucketVersioningOutput{}, nil
}

func (m *mockS3) GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	return &s3.GetBucketEncryptionOutput{}, nil
}

func (m *mockS3) GetBucketLogging(ctx context.Context, params *s3.GetBucketLoggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketLoggingOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	return &s3.GetBucketLoggingOutput{}, nil
}

func (m *mockS3) GetBucketLifecycleConfiguration(ctx context.Context, params *s3.GetBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLifecycleConfigurationOutput, error) {
	if m.failEverything {
		return nil, errDenied
	}
	return &s3.GetBucketLifecycleConfigurationOutput{}, nil
}

func TestCollectS3EvidenceCapturesErrorsPerField(t *testing.T) {
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	mock := &mockS3{
		buckets:        []s3types.Bucket{{Name: awssdk.String("locked-down"), CreationDate: &created}},
		failEverything: true,
	}

	report, err := CollectS3Evidence(context.Background(), mock, false, time.Now())
	require.NoError(t, err, "individual lookup failures must not abort collection")
	require.Len(t, report.Buckets, 1)

	ev := report.Buckets[0]
	assert.Equal(t, "locked-down", ev.BucketName)
	assert.Contains(t, ev.RegionError, "AccessDenied")
	assert.Contains(t, ev.ACLError, "AccessDenied")
	assert.Contains(t, ev.PublicAccessBlockError, "AccessDenied")
	assert.Contains(t, ev.PolicyError, "AccessDenied")
	assert.Contains(t, ev.VersioningError, "AccessDenied")
	assert.Contains(t, ev.EncryptionError, "AccessDenied")
	assert.Contains(t, ev.LoggingError, "AccessDenied")
	assert.Contains(t, ev.LifecycleError, "AccessDenied")
}

func TestCollectS3EvidenceEmptyLocationIsUsEast1(t *testing.T) {
	mock := &mockS3{buckets: []s3types.Bucket{{Name: awssdk.String("b1")}}}

	report, err := CollectS3Evidence(context.Background(), mock, false, time.Now())
	require.NoError(t, err)
	require.Len(t, report.Buckets, 1)
	assert.Equal(t, "us-east-1", report.Buckets[0].Region)
}

func TestCollectS3EvidenceObjectStats(t *testing.T) {
	mock := &mockS3{
		buckets: []s3types.Bucket{{Name: awssdk.String("b1")}},
		objects: []s3types.Object{
			{Key: awssdk.String("a"), Size: awssdk.Int64(100)},
			{Key: awssdk.String("b"), Size: awssdk.Int64(250)},
		},
	}

	report, err := CollectS3Evidence(context.Background(), mock, true, time.Now())
	require.NoError(t, err)
	require.Len(t, report.Buckets, 1)

	ev := report.Buckets[0]
	require.NotNil(t, ev.ObjectCount)
	require.NotNil(t, ev.TotalSizeBytes)
	assert.Equal(t, int64(2), *ev.ObjectCount)
	assert.Equal(t, int64(350), *ev.TotalSizeBytes)
}

func TestWriteS3EvidenceReport(t *testing.T) {
	outDir := t.TempDir()
	now := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)

	report := &S3EvidenceReport{CollectionTime: now.Format(time.RFC3339), BucketCount: 0}
	path, err := WriteS3EvidenceReport(report, outDir, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "s3_bucket_evidence_20240315_090542.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collection_time")
}
