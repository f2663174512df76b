package utils

import (
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

// DownloadsDir returns the user's Downloads directory, the default landing
// place for dumps, archives, and evidence reports.
func DownloadsDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// ExpandPath expands a leading ~ in the provided path.
func ExpandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// Timestamp returns the compact timestamp used in generated file names.
func Timestamp(t time.Time) string {
	return t.Format("20060102_150405")
}
