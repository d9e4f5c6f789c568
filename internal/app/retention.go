package app

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/rowjay/scenesnap/internal/config"
	"github.com/rowjay/scenesnap/internal/snapshot"
	"github.com/rowjay/scenesnap/internal/storage"
)

// retained is one item a retention policy looks at.
type retained struct {
	modified time.Time
	size     int64
}

// expired returns the indexes of items, newest first, that policy no longer keeps.
// An item survives if any configured limit keeps it; MaxBytes keeps the newest items
// that fit in the budget.
func expired(items []retained, policy config.Retention, now time.Time) []int {
	if !policy.Enabled() {
		return nil
	}
	cutoff := now.AddDate(0, 0, -policy.KeepDays)
	var kept int64
	var out []int
	for i, it := range items {
		keep := (policy.KeepLast > 0 && i < policy.KeepLast) ||
			(policy.KeepDays > 0 && it.modified.After(cutoff)) ||
			(policy.MaxBytes > 0 && kept+it.size <= policy.MaxBytes)
		if keep {
			kept += it.size
			continue
		}
		out = append(out, i)
	}
	return out
}

// Prune removes snapshot folders beyond the snapshot retention policy. A folder whose
// target is locked by a running operation is left for a later prune.
func (a *App) Prune(ctx context.Context) ([]snapshot.Info, error) {
	infos, err := snapshot.List(a.Cfg.Snapshot.Root)
	if err != nil {
		return nil, err
	}
	items := make([]retained, len(infos))
	for i, info := range infos {
		items[i] = retained{modified: info.Modified, size: info.SizeBytes}
	}
	var pruned []snapshot.Info
	for _, i := range expired(items, a.Cfg.Snapshot.Retention, time.Now()) {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		removed, err := a.pruneOne(infos[i])
		if err != nil {
			a.Log.Warn().Err(err).Str("snapshot", infos[i].Path).Msg("prune skipped")
			continue
		}
		if removed {
			a.Log.Info().Str("snapshot", infos[i].Name).Msg("snapshot pruned")
			pruned = append(pruned, infos[i])
		}
	}
	return pruned, nil
}

func (a *App) pruneOne(info snapshot.Info) (bool, error) {
	identity := "corpus"
	if info.Manifest != nil && info.Manifest.TargetIdentity != "" {
		identity = info.Manifest.TargetIdentity
	}
	guard, err := a.lockTarget(identity)
	if err != nil {
		return false, err
	}
	defer guard.Release()
	if err := os.RemoveAll(info.Path); err != nil {
		return false, err
	}
	return true, nil
}

// applyExportRetention removes exported archives, and their sidecars, beyond the
// export retention policy.
func (a *App) applyExportRetention(ctx context.Context) error {
	policy := a.Cfg.Export.Retention
	if !policy.Enabled() {
		return nil
	}
	objects, err := a.Storage.List(ctx, a.Cfg.Storage.Prefix)
	if err != nil {
		return err
	}
	var archives []storage.ObjectInfo
	for _, obj := range objects {
		if !obj.IsManifest {
			archives = append(archives, obj)
		}
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].Modified.After(archives[j].Modified) })

	items := make([]retained, len(archives))
	for i, obj := range archives {
		items[i] = retained{modified: obj.Modified, size: obj.Size}
	}
	for _, i := range expired(items, policy, time.Now()) {
		key := archives[i].Key
		if err := a.Storage.Delete(ctx, key); err != nil {
			a.Log.Warn().Err(err).Str("key", key).Msg("export retention failed")
			continue
		}
		_ = a.Storage.Delete(ctx, storage.ManifestKey(key))
	}
	return nil
}
