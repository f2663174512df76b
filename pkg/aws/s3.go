package aws

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	"github.com/nimbusdfir/nimbus/pkg/archive"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// S3API is the subset of the S3 client the bucket commands depend on.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// UploaderAPI is the transfer-manager upload surface.
type UploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// DownloaderAPI is the transfer-manager download surface.
type DownloaderAPI interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// Bucket describes an S3 bucket in listings.
type Bucket struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creation_date"`
}

// Object describes one S3 object.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	StorageClass string    `json:"storage_class"`
	LastModified time.Time `json:"last_modified"`
}

// ListBuckets returns every bucket in the account.
func ListBuckets(ctx context.Context, client S3API) ([]Bucket, error) {
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}
	if len(out.Buckets) == 0 {
		return nil, fmt.Errorf("%w: no S3 buckets in the account", errUtils.ErrNoResults)
	}

	buckets := make([]Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		bucket := Bucket{Name: aws.ToString(b.Name)}
		if b.CreationDate != nil {
			bucket.CreationDate = *b.CreationDate
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// CreateBucket creates a bucket in the given region.
func CreateBucket(ctx context.Context, client S3API, name string, region string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint.
	if region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	if _, err := client.CreateBucket(ctx, input); err != nil {
		return err
	}
	log.Info("Bucket created", "bucket", name, "region", region)
	return nil
}

// DeleteBucket removes an empty bucket.
func DeleteBucket(ctx context.Context, client S3API, name string) error {
	if _, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return err
	}
	log.Info("Bucket deleted", "bucket", name)
	return nil
}

// ListObjects returns every object in the bucket, following pagination.
func ListObjects(ctx context.Context, client S3API, bucket string) ([]Object, error) {
	var objects []Object
	var continuation *string

	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range out.Contents {
			o := Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				StorageClass: string(obj.StorageClass),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuation = out.NextContinuationToken
	}

	return objects, nil
}

// UploadFiles uploads local files to the bucket, keyed by base name.
func UploadFiles(ctx context.Context, uploader UploaderAPI, bucket string, paths []string) error {
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return err
		}

		key := filepath.Base(path)
		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   file,
		})
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}

		log.Info("Uploaded object", "bucket", bucket, "key", key)
	}
	return nil
}

// DownloadObject downloads a single object to destPath.
func DownloadObject(ctx context.Context, downloader DownloaderAPI, bucket string, key string, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return err
	}

	log.Info("Downloaded object", "bucket", bucket, "key", key, "file", destPath)
	return nil
}

// DumpBucket downloads every object in the bucket to a temporary directory,
// zips the tree, and writes `<bucket>_<ts>.zip` to outputDir.
func DumpBucket(ctx context.Context, client S3API, downloader DownloaderAPI, bucket string, outputDir string, now time.Time) (string, error) {
	objects, err := ListObjects(ctx, client, bucket)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", fmt.Errorf("%w: bucket %s is empty", errUtils.ErrNoResults, bucket)
	}

	tempDir, err := os.MkdirTemp("", "nimbus-s3-dump-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tempDir)

	for _, obj := range objects {
		dest := filepath.Join(tempDir, filepath.FromSlash(obj.Key))
		if err := DownloadObject(ctx, downloader, bucket, obj.Key, dest); err != nil {
			return "", err
		}
	}

	zipPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.zip", bucket, u.Timestamp(now)))
	if err := archive.ZipDirectory(tempDir, zipPath); err != nil {
		return "", err
	}

	log.Info("Bucket dump written", "bucket", bucket, "objects", len(objects), "file", zipPath)
	return zipPath, nil
}
