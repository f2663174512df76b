package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipDirectoryRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "top.txt"), []byte("top content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "nested", "deep.txt"), []byte("deep content"), 0o644))

	zipPath := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, ZipDirectory(srcDir, zipPath))

	reader, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer reader.Close()

	contents := map[string]string{}
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(data)
	}

	assert.Equal(t, map[string]string{
		"top.txt":         "top content",
		"nested/deep.txt": "deep content",
	}, contents)
}

func TestZipDirectoryEmptyTree(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, ZipDirectory(t.TempDir(), zipPath))

	reader, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer reader.Close()
	assert.Empty(t, reader.File)
}
