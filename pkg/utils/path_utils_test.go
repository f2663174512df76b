package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)
	assert.Equal(t, "20240315_090542", Timestamp(at))
}

func TestDownloadsDir(t *testing.T) {
	dir := DownloadsDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, "Downloads")
}
