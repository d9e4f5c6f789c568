package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/scenesnap/internal/compress"
)

func snapshotDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "props_20260101T000000Z")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	files := map[string]string{
		"materials.json": `[{"assetPath":"Assets/M.mat"}]`,
		"manifest.json":  `{"formatVersion":1}`,
		"assets.csv":     "path;size_bytes;hash\n",
		".tmp-ignored":   "x",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o640))
	}
	return dir
}

func TestPackUnpackRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{9}, 32)
	for _, opts := range []Options{
		{Compression: compress.TypeNone},
		{Compression: compress.TypeGzip},
		{Compression: compress.TypeZstd, Key: key},
	} {
		src := snapshotDir(t)
		var buf bytes.Buffer
		require.NoError(t, Pack(src, &buf, opts), Extension(opts))

		dest := filepath.Join(t.TempDir(), "restored")
		require.NoError(t, Unpack(&buf, dest, opts), Extension(opts))

		entries, err := os.ReadDir(dest)
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.Equal(t, []string{"assets.csv", "manifest.json", "materials.json"}, names)
		data, err := os.ReadFile(filepath.Join(dest, "materials.json"))
		require.NoError(t, err)
		assert.Equal(t, `[{"assetPath":"Assets/M.mat"}]`, string(data))
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "tar", Extension(Options{}))
	assert.Equal(t, "tar.zst", Extension(Options{Compression: compress.TypeZstd}))
	assert.Equal(t, "tar.gz.enc", Extension(Options{Compression: compress.TypeGzip, Key: make([]byte, 32)}))
}

func TestUnpackRejectsNestedEntries(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape.json", Mode: 0o600, Size: 2, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	dest := filepath.Join(t.TempDir(), "out")
	err = Unpack(&buf, dest, Options{})
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnpackWrongKeyFails(t *testing.T) {
	src := snapshotDir(t)
	var buf bytes.Buffer
	require.NoError(t, Pack(src, &buf, Options{Compression: compress.TypeZstd, Key: bytes.Repeat([]byte{1}, 32)}))
	err := Unpack(&buf, filepath.Join(t.TempDir(), "out"), Options{Compression: compress.TypeZstd, Key: bytes.Repeat([]byte{2}, 32)})
	assert.Error(t, err)
}
