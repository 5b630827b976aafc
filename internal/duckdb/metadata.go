package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. An empty path
// yields the zero fingerprint so optional inputs can take part in cache
// validation.
func StatFile(path string) (FileFingerprint, error) {
	if path == "" {
		return FileFingerprint{}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// metaLines renders the fingerprint as key=value pairs under a prefix.
func (fp FileFingerprint) metaLines(prefix string) []string {
	return []string{
		prefix + "_size=" + strconv.FormatInt(fp.Size, 10),
		prefix + "_modtime=" + fp.ModTime.UTC().Format(time.RFC3339Nano),
	}
}
