package aws

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// apiErrorMessage reduces an SDK error to its service error code and
// message when available, keeping the `_error` fields readable.
func apiErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

// S3EvidenceAPI is the read-only S3 surface used by evidence collection.
type S3EvidenceAPI interface {
	S3API
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketAcl(ctx context.Context, params *s3.GetBucketAclInput, optFns ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketLogging(ctx context.Context, params *s3.GetBucketLoggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketLoggingOutput, error)
	GetBucketLifecycleConfiguration(ctx context.Context, params *s3.GetBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLifecycleConfigurationOutput, error)
}

// BucketEvidence is the forensic metadata recorded per bucket. Every
// section is collected independently; a failed call is recorded in the
// matching `_error` field instead of aborting the whole bucket.
type BucketEvidence struct {
	BucketName   string `json:"bucket_name"`
	CreationDate string `json:"creation_date,omitempty"`

	Region      string `json:"region,omitempty"`
	RegionError string `json:"region_error,omitempty"`

	ACL      interface{} `json:"acl,omitempty"`
	ACLError string      `json:"acl_error,omitempty"`

	PublicAccessBlock      interface{} `json:"public_access_block,omitempty"`
	PublicAccessBlockError string      `json:"public_access_block_error,omitempty"`

	Policy      string `json:"policy,omitempty"`
	PolicyError string `json:"policy_error,omitempty"`

	Versioning      string `json:"versioning,omitempty"`
	VersioningError string `json:"versioning_error,omitempty"`

	Encryption      interface{} `json:"encryption,omitempty"`
	EncryptionError string      `json:"encryption_error,omitempty"`

	Logging      interface{} `json:"logging,omitempty"`
	LoggingError string      `json:"logging_error,omitempty"`

	Lifecycle      interface{} `json:"lifecycle,omitempty"`
	LifecycleError string      `json:"lifecycle_error,omitempty"`

	ObjectCount     *int64 `json:"object_count,omitempty"`
	TotalSizeBytes  *int64 `json:"total_size_bytes,omitempty"`
	ObjectScanError string `json:"object_scan_error,omitempty"`
}

// S3EvidenceReport is the full account-wide collection.
type S3EvidenceReport struct {
	CollectionTime string           `json:"collection_time"`
	BucketCount    int              `json:"bucket_count"`
	Buckets        []BucketEvidence `json:"buckets"`
}

// CollectS3Evidence gathers forensic metadata for every bucket in the
// account. includeObjects additionally walks each bucket to count objects
// and total their size, which can be slow on large buckets.
func CollectS3Evidence(ctx context.Context, client S3EvidenceAPI, includeObjects bool, now time.Time) (*S3EvidenceReport, error) {
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}

	report := &S3EvidenceReport{
		CollectionTime: now.UTC().Format(time.RFC3339),
		BucketCount:    len(out.Buckets),
	}

	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		log.Info("Collecting bucket evidence", "bucket", name)

		ev := BucketEvidence{BucketName: name}
		if b.CreationDate != nil {
			ev.CreationDate = b.CreationDate.UTC().Format(time.RFC3339)
		}

		collectBucketSections(ctx, client, &ev)
		if includeObjects {
			collectObjectStats(ctx, client, &ev)
		}

		report.Buckets = append(report.Buckets, ev)
	}

	return report, nil
}

func collectBucketSections(ctx context.Context, client S3EvidenceAPI, ev *BucketEvidence) {
	bucket := aws.String(ev.BucketName)

	if out, err := client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: bucket}); err != nil {
		ev.RegionError = apiErrorMessage(err)
	} else {
		region := string(out.LocationConstraint)
		// An empty constraint means us-east-1.
		if region == "" {
			region = "us-east-1"
		}
		ev.Region = region
	}

	if out, err := client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: bucket}); err != nil {
		ev.ACLError = apiErrorMessage(err)
	} else {
		ev.ACL = out.Grants
	}

	if out, err := client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: bucket}); err != nil {
		ev.PublicAccessBlockError = apiErrorMessage(err)
	} else {
		ev.PublicAccessBlock = out.PublicAccessBlockConfiguration
	}

	if out, err := client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: bucket}); err != nil {
		ev.PolicyError = apiErrorMessage(err)
	} else {
		ev.Policy = aws.ToString(out.Policy)
	}

	if out, err := client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: bucket}); err != nil {
		ev.VersioningError = apiErrorMessage(err)
	} else {
		ev.Versioning = string(out.Status)
	}

	if out, err := client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: bucket}); err != nil {
		ev.EncryptionError = apiErrorMessage(err)
	} else {
		ev.Encryption = out.ServerSideEncryptionConfiguration
	}

	if out, err := client.GetBucketLogging(ctx, &s3.GetBucketLoggingInput{Bucket: bucket}); err != nil {
		ev.LoggingError = apiErrorMessage(err)
	} else {
		ev.Logging = out.LoggingEnabled
	}

	if out, err := client.GetBucketLifecycleConfiguration(ctx, &s3.GetBucketLifecycleConfigurationInput{Bucket: bucket}); err != nil {
		ev.LifecycleError = apiErrorMessage(err)
	} else {
		ev.Lifecycle = out.Rules
	}
}

func collectObjectStats(ctx context.Context, client S3EvidenceAPI, ev *BucketEvidence) {
	objects, err := ListObjects(ctx, client, ev.BucketName)
	if err != nil {
		ev.ObjectScanError = apiErrorMessage(err)
		return
	}

	var count, total int64
	for _, obj := range objects {
		count++
		total += obj.Size
	}
	ev.ObjectCount = &count
	ev.TotalSizeBytes = &total
}

// WriteS3EvidenceReport writes the report to
// `s3_bucket_evidence_<ts>.json` under outputDir and returns the path.
func WriteS3EvidenceReport(report *S3EvidenceReport, outputDir string, now time.Time) (string, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("s3_bucket_evidence_%s.json", u.Timestamp(now)))
	if err := u.WriteToFileAsJSON(path, report, 0o600); err != nil {
		return "", err
	}
	log.Info("S3 evidence report written", "file", path, "buckets", report.BucketCount)
	return path, nil
}
