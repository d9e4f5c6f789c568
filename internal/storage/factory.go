package storage

import (
	"fmt"
	"strings"

	"github.com/rowjay/scenesnap/internal/config"
)

// New builds the export store selected by cfg.Backend.
func New(cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "local", "":
		if cfg.Local.Path == "" {
			return nil, fmt.Errorf("storage.local.path is required")
		}
		return NewLocal(cfg.Local.Path), nil
	case "s3", "minio":
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 endpoint and bucket are required")
		}
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
