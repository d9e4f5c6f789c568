package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is wrapped by Get and Stat when the key does not exist.
var ErrNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
	ETag     string
	Metadata map[string]string
	// IsManifest marks export sidecars (ManifestSuffix).
	IsManifest bool
}

// Storage holds exported snapshot archives and their sidecar manifests. Keys are
// slash-separated; List is recursive below prefix.
type Storage interface {
	// Put stores reader under key. size may be -1 when the length is not known
	// up front, as for a streamed archive.
	Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

func objectInfo(key string, size int64, modified time.Time) ObjectInfo {
	return ObjectInfo{Key: key, Size: size, Modified: modified, IsManifest: isManifestKey(key)}
}
