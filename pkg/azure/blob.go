package azure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	"github.com/nimbusdfir/nimbus/pkg/archive"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// ContainerInfo describes a blob container.
type ContainerInfo struct {
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
}

// BlobInfo describes one blob in a container.
type BlobInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// BlobClient is the surface of the blob service the commands depend on.
// The production implementation wraps the Azure SDK; tests substitute mocks.
type BlobClient interface {
	ListContainers(ctx context.Context) ([]ContainerInfo, error)
	ListBlobs(ctx context.Context, container string) ([]BlobInfo, error)
	UploadFile(ctx context.Context, container string, blobName string, filePath string) error
	DownloadFile(ctx context.Context, container string, blobName string, filePath string) error
}

type blobClient struct {
	client *azblob.Client
}

// NewBlobClient builds a BlobClient for the given storage account using the
// ambient AAD credential, the SDK equivalent of `--auth-mode login`.
func NewBlobClient(accountName string) (BlobClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve Azure credentials: %v", errUtils.ErrNotLoggedIn, err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}

	return &blobClient{client: client}, nil
}

func (c *blobClient) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	var containers []ContainerInfo

	pager := c.client.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.ContainerItems {
			info := ContainerInfo{}
			if item.Name != nil {
				info.Name = *item.Name
			}
			if item.Properties != nil && item.Properties.LastModified != nil {
				info.LastModified = *item.Properties.LastModified
			}
			containers = append(containers, info)
		}
	}

	return containers, nil
}

func (c *blobClient) ListBlobs(ctx context.Context, container string) ([]BlobInfo, error) {
	var blobs []BlobInfo

	pager := c.client.NewListBlobsFlatPager(container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Segment.BlobItems {
			info := BlobInfo{}
			if item.Name != nil {
				info.Name = *item.Name
			}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.ContentType != nil {
					info.ContentType = *item.Properties.ContentType
				}
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
			}
			blobs = append(blobs, info)
		}
	}

	return blobs, nil
}

func (c *blobClient) UploadFile(ctx context.Context, container string, blobName string, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = c.client.UploadFile(ctx, container, blobName, file, nil)
	return err
}

func (c *blobClient) DownloadFile(ctx context.Context, container string, blobName string, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = c.client.DownloadFile(ctx, container, blobName, file, nil)
	return err
}

// DumpContainer downloads every blob in the container to a temporary
// directory, zips the tree, and writes `<container>_<ts>.zip` to outputDir.
// The temporary directory is removed afterwards.
func DumpContainer(ctx context.Context, client BlobClient, container string, outputDir string, now time.Time) (string, error) {
	blobs, err := client.ListBlobs(ctx, container)
	if err != nil {
		return "", err
	}
	if len(blobs) == 0 {
		return "", fmt.Errorf("%w: container %s is empty", errUtils.ErrNoResults, container)
	}

	tempDir, err := os.MkdirTemp("", "nimbus-blob-dump-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tempDir)

	for _, blob := range blobs {
		dest := filepath.Join(tempDir, filepath.FromSlash(blob.Name))
		if err := client.DownloadFile(ctx, container, blob.Name, dest); err != nil {
			return "", fmt.Errorf("failed to download blob %s: %w", blob.Name, err)
		}
		log.Debug("Downloaded blob", "name", blob.Name, "size", blob.Size)
	}

	zipPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.zip", container, u.Timestamp(now)))
	if err := archive.ZipDirectory(tempDir, zipPath); err != nil {
		return "", err
	}

	log.Info("Container dump written", "container", container, "blobs", len(blobs), "file", zipPath)
	return zipPath, nil
}
