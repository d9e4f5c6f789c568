package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/rowjay/scenesnap/internal/archive"
	"github.com/rowjay/scenesnap/internal/compress"
	"github.com/rowjay/scenesnap/internal/cryptoutil"
	"github.com/rowjay/scenesnap/internal/notify"
	"github.com/rowjay/scenesnap/internal/snapshot"
	"github.com/rowjay/scenesnap/internal/storage"
	"github.com/rowjay/scenesnap/internal/util"
	"github.com/rowjay/scenesnap/internal/version"
)

type ExportResult struct {
	Key      string
	Manifest storage.Manifest
}

func (a *App) archiveOptions(compression string, encrypted bool) (archive.Options, error) {
	opts := archive.Options{Compression: compression}
	if !encrypted {
		return opts, nil
	}
	if a.Cfg.Export.EncryptionKey == "" {
		return opts, errors.New("encryption is enabled but export.encryption_key is empty")
	}
	key, err := cryptoutil.ParseKey(a.Cfg.Export.EncryptionKey)
	if err != nil {
		return opts, err
	}
	opts.Key = key
	return opts, nil
}

// Export streams a snapshot folder as one archive into the configured storage and
// writes a sidecar manifest next to it.
func (a *App) Export(ctx context.Context, name string) (*ExportResult, error) {
	start := time.Now()
	var opErr error
	var key string
	defer func() {
		a.notify(notify.Event{Type: "export", Message: fmt.Sprintf("export %s", name), Snapshot: name}, start, opErr)
	}()

	if a.Storage == nil {
		opErr = errors.New("no export storage configured")
		return nil, opErr
	}
	dir, err := a.resolveSnapshot(name)
	if err != nil {
		opErr = err
		return nil, err
	}
	loaded, err := snapshot.Open(dir, snapshot.OpenOptions{RequireManifest: true})
	if err != nil {
		opErr = err
		return nil, err
	}
	opts, err := a.archiveOptions(a.Cfg.Export.Compression, a.Cfg.Export.Encryption)
	if err != nil {
		opErr = err
		return nil, err
	}
	key = util.BuildObjectKey(a.Cfg.Storage.Prefix, filepath.Base(dir), archive.Extension(opts))

	if a.Cfg.Export.Idempotent {
		exists, err := a.Storage.Exists(ctx, key)
		if err != nil {
			opErr = err
			return nil, err
		}
		if exists {
			opErr = fmt.Errorf("export already exists: %s", key)
			return nil, opErr
		}
	}

	err = util.Retry(ctx, a.Cfg.Export.RetryCount, a.Cfg.Export.RetryBackoff, func() error {
		return a.upload(ctx, dir, key, opts)
	})
	if err != nil {
		opErr = err
		return nil, err
	}

	stat, err := a.Storage.Stat(ctx, key)
	if err != nil {
		opErr = err
		return nil, err
	}
	m := loaded.Manifest
	manifest := storage.Manifest{
		ID:             m.ID,
		Key:            key,
		Snapshot:       filepath.Base(dir),
		Label:          m.Label,
		ScopeKind:      m.ScopeKind,
		TargetIdentity: m.TargetIdentity,
		Categories:     names(m.CategoriesPresent),
		Counts:         countsOf(m),
		Compression:    opts.Compression,
		Encryption:     opts.Key != nil,
		KeyFingerprint: fingerprint(opts.Key),
		CapturedAt:     m.Timestamp,
		ExportedAt:     time.Now().UTC(),
		SizeBytes:      stat.Size,
		ToolVersion:    version.Version,
	}
	if err := a.writeManifest(ctx, manifest); err != nil {
		a.Log.Warn().Err(err).Msg("failed to write export manifest")
	}
	a.Log.Info().Str("key", key).Str("size", humanize.Bytes(uint64(stat.Size))).Msg("snapshot exported")

	if err := a.applyExportRetention(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("export retention failed")
	}
	return &ExportResult{Key: key, Manifest: manifest}, nil
}

func fingerprint(key []byte) string {
	if key == nil {
		return ""
	}
	return cryptoutil.Fingerprint(key)
}

func (a *App) upload(ctx context.Context, dir, key string, opts archive.Options) error {
	pipeReader, pipeWriter := io.Pipe()
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer pipeReader.Close()
		return a.Storage.Put(egCtx, key, pipeReader, -1, map[string]string{"scenesnap-export": "true"})
	})
	eg.Go(func() error {
		if err := archive.Pack(dir, pipeWriter, opts); err != nil {
			_ = pipeWriter.CloseWithError(err)
			return err
		}
		return pipeWriter.Close()
	})
	return eg.Wait()
}

// Import downloads an exported archive into a new folder under the snapshot root.
func (a *App) Import(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var opErr error
	defer func() {
		a.notify(notify.Event{Type: "import", Message: fmt.Sprintf("import %s", key), Snapshot: key}, start, opErr)
	}()

	if a.Storage == nil {
		opErr = errors.New("no export storage configured")
		return "", opErr
	}
	manifest, err := a.readManifest(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			opErr = err
			return "", err
		}
		a.Log.Debug().Str("key", key).Msg("no export manifest, inferring format from key")
		manifest = storage.Manifest{
			Compression: compress.Detect(strings.TrimSuffix(key, ".enc")),
			Encryption:  strings.HasSuffix(key, ".enc"),
		}
	}
	opts, err := a.archiveOptions(manifest.Compression, manifest.Encryption)
	if err != nil {
		opErr = err
		return "", err
	}
	if fp := manifest.KeyFingerprint; fp != "" && fp != fingerprint(opts.Key) {
		opErr = fmt.Errorf("export %s was encrypted with key %s, configured key is %s", key, fp, fingerprint(opts.Key))
		return "", opErr
	}
	name := manifest.Snapshot
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(key), "."+archive.Extension(opts))
	}
	dest := filepath.Join(a.Cfg.Snapshot.Root, util.SanitizeName(name))

	err = util.Retry(ctx, a.Cfg.Export.RetryCount, a.Cfg.Export.RetryBackoff, func() error {
		reader, err := a.Storage.Get(ctx, key)
		if err != nil {
			return err
		}
		defer reader.Close()
		return archive.Unpack(reader, dest, opts)
	})
	if err != nil {
		opErr = err
		return "", err
	}
	if !snapshot.IsSnapshot(dest) {
		opErr = fmt.Errorf("imported archive %s holds no snapshot", key)
		return dest, opErr
	}
	a.Log.Info().Str("key", key).Str("snapshot", dest).Msg("snapshot imported")
	return dest, nil
}

// Exports lists the sidecar manifests of exported archives.
func (a *App) Exports(ctx context.Context) ([]storage.Manifest, error) {
	if a.Storage == nil {
		return nil, errors.New("no export storage configured")
	}
	objects, err := a.Storage.List(ctx, a.Cfg.Storage.Prefix)
	if err != nil {
		return nil, err
	}
	var out []storage.Manifest
	for _, obj := range objects {
		if obj.IsManifest {
			continue
		}
		m, err := a.readManifest(ctx, obj.Key)
		if err != nil {
			m = storage.Manifest{Key: obj.Key, SizeBytes: obj.Size, ExportedAt: obj.Modified}
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *App) writeManifest(ctx context.Context, manifest storage.Manifest) error {
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	key := storage.ManifestKey(manifest.Key)
	return a.Storage.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), map[string]string{"scenesnap-manifest": "true"})
}

func (a *App) readManifest(ctx context.Context, key string) (storage.Manifest, error) {
	reader, err := a.Storage.Get(ctx, storage.ManifestKey(key))
	if err != nil {
		return storage.Manifest{}, err
	}
	defer reader.Close()
	var manifest storage.Manifest
	if err := json.NewDecoder(reader).Decode(&manifest); err != nil {
		return storage.Manifest{}, err
	}
	return manifest, nil
}
