package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/notify"
	"github.com/rowjay/scenesnap/internal/remap"
	"github.com/rowjay/scenesnap/internal/restore"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

// Restore applies the configured categories of the named snapshot onto the host.
// Per-record failures land in the summary; only an unreadable snapshot or a busy
// target returns an error.
func (a *App) Restore(ctx context.Context, name string) (*restore.Summary, error) {
	start := time.Now()
	var opErr error
	var sum *restore.Summary
	identity := ""
	defer func() {
		event := notify.Event{
			Type:     "restore",
			Message:  fmt.Sprintf("restore %s", name),
			Target:   identity,
			Snapshot: name,
		}
		if sum != nil {
			event.Counts = map[string]int{}
			for _, r := range sum.Categories {
				event.Categories = append(event.Categories, string(r.Category))
				event.Counts[string(r.Category)] = r.Succeeded
			}
			if !sum.OK() {
				event.Status = "partial"
			}
		}
		a.notify(event, start, opErr)
	}()

	path, err := a.resolveSnapshot(name)
	if err != nil {
		opErr = err
		return nil, err
	}
	categories, err := snapshot.ParseCategories(a.Cfg.Restore.Categories)
	if err != nil {
		opErr = err
		return nil, err
	}
	loaded, err := snapshot.Open(path, snapshot.OpenOptions{RequireManifest: a.Cfg.Restore.RequireManifest})
	if err != nil {
		opErr = err
		return nil, err
	}
	identity = loaded.Manifest.TargetIdentity
	if identity == "" {
		identity = "corpus"
	}
	if !loaded.HasManifest {
		a.Log.Warn().Str("snapshot", path).Msg("snapshot has no manifest, restoring the files present")
	}

	guard, err := a.lockTarget(identity)
	if err != nil {
		opErr = err
		return nil, err
	}
	defer guard.Release()

	engine := &restore.Engine{
		Host:          a.Host,
		Remapper:      a.Remapper,
		Log:           a.Log,
		Progress:      a.Progress,
		ProgressEvery: a.Cfg.Restore.ProgressEvery,
		DryRun:        a.Cfg.Restore.DryRun,
	}
	sum = engine.Restore(loaded, categories)
	if a.Cfg.Restore.SaveScene && !a.Cfg.Restore.DryRun {
		if err := a.persist(); err != nil {
			opErr = err
			return sum, err
		}
	}
	return sum, ctx.Err()
}

// SwapSchema switches a material to another shader, carrying its values over.
func (a *App) SwapSchema(ctx context.Context, materialPath, schema string) (remap.Transfer, error) {
	guard, err := a.lockTarget(materialPath)
	if err != nil {
		return remap.Transfer{}, err
	}
	defer guard.Release()

	h, ok := a.Host.ResolveByIdentity(corpus.KindMaterial, materialPath)
	if !ok {
		return remap.Transfer{}, fmt.Errorf("material %s: %w", materialPath, corpus.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return remap.Transfer{}, err
	}
	res, err := remap.SwapSchema(a.Host, h, schema, a.Remapper, a.Log)
	if err != nil {
		return res, err
	}
	return res, a.persist()
}
