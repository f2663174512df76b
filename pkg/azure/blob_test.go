package azure

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

// mockBlobClient serves canned blobs and records download destinations.
type mockBlobClient struct {
	blobs      map[string][]byte
	downloaded []string
}

func (m *mockBlobClient) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	return []ContainerInfo{{Name: "evidence"}}, nil
}

func (m *mockBlobClient) ListBlobs(ctx context.Context, container string) ([]BlobInfo, error) {
	var infos []BlobInfo
	for name, data := range m.blobs {
		infos = append(infos, BlobInfo{Name: name, Size: int64(len(data))})
	}
	return infos, nil
}

func (m *mockBlobClient) UploadFile(ctx context.Context, container string, blobName string, filePath string) error {
	return nil
}

func (m *mockBlobClient) DownloadFile(ctx context.Context, container string, blobName string, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	m.downloaded = append(m.downloaded, blobName)
	return os.WriteFile(filePath, m.blobs[blobName], 0o644)
}

func TestDumpContainer(t *testing.T) {
	client := &mockBlobClient{blobs: map[string][]byte{
		"logs/app.log": []byte("log line"),
		"readme.txt":   []byte("hello"),
	}}

	outDir := t.TempDir()
	now := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)

	zipPath, err := DumpContainer(context.Background(), client, "evidence", outDir, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "evidence_20240315_090542.zip"), zipPath)
	assert.Len(t, client.downloaded, 2)

	reader, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"logs/app.log", "readme.txt"}, names)
}

func TestDumpContainerEmpty(t *testing.T) {
	client := &mockBlobClient{blobs: map[string][]byte{}}

	_, err := DumpContainer(context.Background(), client, "evidence", t.TempDir(), time.Now())
	assert.ErrorIs(t, err, errUtils.ErrNoResults)
}
