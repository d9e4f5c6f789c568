package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/scenesnap/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(config.StorageConfig{Local: config.LocalStore{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, store)

	store, err = New(config.StorageConfig{Backend: "s3", S3: config.S3Store{Endpoint: "localhost:9000", Bucket: "scenes", ForcePathStyle: true}})
	require.NoError(t, err)
	s3, ok := store.(*S3)
	require.True(t, ok)
	assert.Equal(t, "scenes", s3.Bucket)

	_, err = New(config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)
	_, err = New(config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType(ManifestKey("a.tar.zst")))
	assert.Equal(t, "application/zstd", contentType("a.tar.zst"))
	assert.Equal(t, "application/octet-stream", contentType("a.tar.zst.enc"))
}
