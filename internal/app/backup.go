package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rowjay/scenesnap/internal/capture"
	"github.com/rowjay/scenesnap/internal/notify"
	"github.com/rowjay/scenesnap/internal/provider"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

type BackupResult struct {
	Dir         string
	Manifest    snapshot.Manifest
	Failed      map[snapshot.Category]error
	Unsupported []snapshot.Category
	Stats       map[snapshot.Category]capture.Stats
	Bytes       int64
	Pruned      []snapshot.Info
}

// Backup captures sc into a new snapshot folder under the snapshot root.
func (a *App) Backup(ctx context.Context, sc scope.Scope) (*BackupResult, error) {
	start := time.Now()
	identity := provider.TargetIdentity(a.Host, sc)
	var opErr error
	var result *BackupResult
	defer func() {
		event := notify.Event{
			Type:    "backup",
			Message: fmt.Sprintf("backup %s", identity),
			Target:  identity,
		}
		if result != nil {
			event.Snapshot = result.Dir
			event.Categories = names(result.Manifest.CategoriesPresent)
			event.Counts = countsOf(result.Manifest)
			if len(result.Failed) > 0 {
				event.Status = "partial"
			}
		}
		a.notify(event, start, opErr)
	}()

	categories, err := snapshot.ParseCategories(a.Cfg.Snapshot.Categories)
	if err != nil {
		opErr = err
		return nil, err
	}

	guard, err := a.lockTarget(identity)
	if err != nil {
		opErr = err
		return nil, err
	}
	defer guard.Release()

	captured, err := a.Provider.Capture(a.Host, sc, categories)
	if err != nil {
		opErr = err
		return nil, err
	}
	for _, c := range captured.Unsupported {
		a.Log.Warn().Str("category", string(c)).Str("provider", a.Provider.Name()).Msg("category not captured")
	}
	snap := captured.Snapshot
	snap.Manifest.Label = a.Cfg.Snapshot.Label
	snap.Manifest.Timestamp = start.UTC()

	writer := snapshot.Writer{Root: a.Cfg.Snapshot.Root, Log: a.Log}
	dir, err := writer.Create(a.Cfg.Snapshot.Label, start)
	if err != nil {
		opErr = err
		return nil, err
	}
	written, err := writer.Write(dir, snap, snap.Present(), a.Progress)
	if err != nil {
		opErr = err
		return nil, err
	}

	result = &BackupResult{
		Dir:         dir,
		Manifest:    written.Manifest,
		Failed:      written.Failed,
		Unsupported: captured.Unsupported,
		Stats:       captured.Stats,
		Bytes:       written.Bytes,
	}
	a.Log.Info().
		Str("snapshot", dir).
		Str("target", identity).
		Str("provider", a.Provider.Name()).
		Interface("counts", written.Manifest.Counts).
		Int("failed_categories", len(written.Failed)).
		Msg("snapshot written")

	// Prune locks each expired snapshot's target, this one included.
	guard.Release()
	if a.Cfg.Snapshot.Retention.Enabled() {
		pruned, err := a.Prune(ctx)
		if err != nil {
			a.Log.Warn().Err(err).Msg("retention failed")
		}
		result.Pruned = pruned
	}
	return result, nil
}
