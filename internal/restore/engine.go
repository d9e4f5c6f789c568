// Package restore applies selected categories of a snapshot onto a live corpus.
package restore

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/capture"
	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
	"github.com/rowjay/scenesnap/internal/remap"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

const defaultProgressEvery = 25

// Engine restores snapshots. It runs synchronously and attempts every record; one
// failure is recorded in the summary and never aborts the rest of the category.
type Engine struct {
	Host     corpus.Host
	Remapper *remap.Remapper
	Log      zerolog.Logger
	Progress snapshot.Progress
	// ProgressEvery is the item interval between progress reports inside a category.
	ProgressEvery int
	// Hasher verifies assets.csv rows; defaults to snapshot.SHA256.
	Hasher snapshot.Hasher
	DryRun bool
}

type run struct {
	e        *Engine
	props    corpus.Properties
	remapper *remap.Remapper
	direct   *remap.Remapper
	index    int
	total    int
	lastFrac float64
}

// Restore applies categories from l. An empty categories list restores everything the
// snapshot carries.
func (e *Engine) Restore(l *snapshot.Loaded, categories []snapshot.Category) *Summary {
	if len(categories) == 0 {
		categories = snapshot.Categories
	}
	sum := &Summary{Source: l.Path, DryRun: e.DryRun}
	for _, c := range categories {
		sum.Categories = append(sum.Categories, &CategoryResult{Category: c, State: StatePending})
	}

	r := &run{e: e, props: e.Host, remapper: e.Remapper, direct: remap.New(remap.Rules{}), total: len(categories)}
	if e.DryRun {
		r.props = dryRunProperties{e.Host}
	}
	if r.remapper == nil {
		r.remapper = remap.Default()
	}
	present := map[snapshot.Category]bool{}
	for _, c := range l.Present() {
		present[c] = true
	}

	for i, res := range sum.Categories {
		r.index = i
		res.State = StateInProgress
		r.report(fmt.Sprintf("restoring %s", res.Category), 0)
		if err, failed := l.Errors[res.Category]; failed {
			res.State = StateFailed
			res.notef("read %s: %v", res.Category, err)
			e.Log.Error().Err(err).Str("category", string(res.Category)).Msg("category unreadable")
			continue
		}
		if !present[res.Category] {
			res.notef("%s not present in snapshot", res.Category)
		}
		switch res.Category {
		case snapshot.CategoryMaterials:
			r.materials(l.Materials, res)
		case snapshot.CategoryBehaviors:
			r.behaviors(l.Behaviors, res)
		case snapshot.CategoryTextures:
			r.textures(l.Textures, res)
		case snapshot.CategoryHierarchy:
			r.nodes(l.Nodes, res)
		case snapshot.CategoryAssets:
			r.assets(l.Assets, res)
		}
		res.finish()
		e.Log.Info().
			Str("category", string(res.Category)).
			Str("state", string(res.State)).
			Int("succeeded", res.Succeeded).
			Int("skipped", res.Skipped).
			Int("warnings", res.Warnings).
			Int("unsupported", res.Unsupported).
			Int("failed", res.Failed).
			Bool("dry_run", e.DryRun).
			Msg("category restored")
	}
	r.index = len(sum.Categories)
	r.report("restore complete", 0)
	return sum
}

func (r *run) report(msg string, within float64) {
	if r.e.Progress == nil || r.total == 0 {
		return
	}
	frac := (float64(r.index) + within) / float64(r.total)
	if frac > 1 {
		frac = 1
	}
	if frac < r.lastFrac {
		frac = r.lastFrac
	}
	r.lastFrac = frac
	r.e.Progress(msg, frac)
}

func (r *run) tick(res *CategoryResult, done, n int) {
	every := r.e.ProgressEvery
	if every <= 0 {
		every = defaultProgressEvery
	}
	if done%every == 0 || done == n {
		r.report(fmt.Sprintf("restoring %s (%d/%d)", res.Category, done, n), float64(done)/float64(n))
	}
}

// resolveRef maps a decoded asset reference onto the live corpus. Runtime-only
// references carry no stable identity and cannot be restored.
func (r *run) resolveRef(key string, v any) (any, error) {
	ref, ok := v.(property.ObjectRef)
	if !ok || ref.IsNull() {
		return v, nil
	}
	if !ref.Portable() {
		return nil, fmt.Errorf("%s: runtime reference %d: %w", key, ref.InstanceID, corpus.ErrNotFound)
	}
	for _, kind := range []corpus.Kind{corpus.KindTexture, corpus.KindMaterial} {
		if _, found := r.e.Host.ResolveByIdentity(kind, ref.Path); found {
			return ref, nil
		}
	}
	return nil, fmt.Errorf("%s: asset %s: %w", key, ref.Path, corpus.ErrNotFound)
}

// applyProperties tallies one record: any failed property fails the record, any
// unresolved reference turns it into a warning.
func (r *run) applyProperties(res *CategoryResult, label string, h corpus.Handle, entries []property.Entry, m *remap.Remapper) {
	target, err := r.e.Host.ListProperties(h)
	if err != nil {
		res.Failed++
		res.notef("%s: list properties: %v", label, err)
		return
	}
	t := m.Apply(r.props, h, entries, target, r.resolveRef)
	res.Properties.Add(t)
	for _, msg := range t.Messages {
		res.notef("%s: %s", label, msg)
	}
	switch {
	case t.Failed > 0:
		res.Failed++
	case t.NotFound > 0:
		res.Warnings++
	default:
		res.Succeeded++
	}
}

func (r *run) materials(records []snapshot.MaterialRecord, res *CategoryResult) {
	res.Records = len(records)
	for i, rec := range records {
		switch {
		case !rec.Restorable():
			res.Skipped++
		default:
			r.material(rec, res)
		}
		r.tick(res, i+1, len(records))
	}
}

func (r *run) material(rec snapshot.MaterialRecord, res *CategoryResult) {
	h, ok := r.e.Host.ResolveByIdentity(corpus.KindMaterial, rec.AssetPath)
	if !ok {
		res.Warnings++
		res.notef("material %s: %v", rec.AssetPath, corpus.ErrNotFound)
		return
	}
	m := r.direct
	if live := r.e.Host.SchemaName(h); live != rec.ShaderName {
		m = r.remapper
		r.e.Log.Debug().Str("material", rec.AssetPath).Str("recorded", rec.ShaderName).Str("live", live).Msg("shader changed, remapping")
	}
	r.applyProperties(res, "material "+rec.AssetPath, h, rec.Properties, m)
}

type behaviorKey struct{ owner, typ string }

func (r *run) behaviors(records []snapshot.BehaviorRecord, res *CategoryResult) {
	res.Records = len(records)
	occurrence := map[behaviorKey]int{}
	for i, rec := range records {
		k := behaviorKey{rec.OwnerPath, rec.BehaviorType}
		nth := occurrence[k]
		occurrence[k]++
		label := fmt.Sprintf("behavior %s on %s", rec.BehaviorType, rec.OwnerPath)
		if h, ok := r.behavior(rec, nth); ok {
			r.applyProperties(res, label, h, rec.Properties, r.direct)
		} else {
			res.Warnings++
			res.notef("%s: %v", label, corpus.ErrNotFound)
		}
		r.tick(res, i+1, len(records))
	}
}

// behavior finds the nth behavior of the record's type on its owner, matching
// records captured from the same owner in attachment order.
func (r *run) behavior(rec snapshot.BehaviorRecord, nth int) (corpus.Handle, bool) {
	owner, ok := r.e.Host.ResolveByIdentity(corpus.KindNode, rec.OwnerPath)
	if !ok {
		return corpus.Handle{}, false
	}
	seen := 0
	for _, b := range r.e.Host.Attached(owner, corpus.KindBehavior) {
		if r.e.Host.SchemaName(b) != rec.BehaviorType {
			continue
		}
		if seen == nth {
			return b, true
		}
		seen++
	}
	return corpus.Handle{}, false
}

func (r *run) textures(records []snapshot.TextureRecord, res *CategoryResult) {
	res.Records = len(records)
	for i, rec := range records {
		h, ok := r.e.Host.ResolveByIdentity(corpus.KindTexture, rec.AssetPath)
		switch {
		case !ok:
			res.Warnings++
			res.notef("texture %s: %v", rec.AssetPath, corpus.ErrNotFound)
		case r.e.DryRun:
			res.Succeeded++
		default:
			err := r.e.Host.SetTextureSettings(h, corpus.TextureSettings{
				MaxSize:                  rec.MaxSize,
				CompressionMode:          rec.CompressionMode,
				UseAggressiveCompression: rec.UseAggressiveCompression,
				CompressionQuality:       rec.CompressionQuality,
				PlatformFormat:           rec.PlatformFormat,
			})
			if err != nil {
				res.Failed++
				res.notef("texture %s: %v", rec.AssetPath, err)
			} else {
				res.Succeeded++
			}
		}
		r.tick(res, i+1, len(records))
	}
}

func (r *run) nodes(records []snapshot.NodeRecord, res *CategoryResult) {
	res.Records = len(records)
	for i, rec := range records {
		h, ok := r.e.Host.ResolveByIdentity(corpus.KindNode, rec.Path)
		if !ok {
			res.Unsupported++
			res.notef("node %s: missing, node creation is not supported", rec.Path)
		} else if err := r.node(h, rec); err != nil {
			res.Failed++
			res.notef("node %s: %v", rec.Path, err)
		} else {
			res.Succeeded++
		}
		r.tick(res, i+1, len(records))
	}
}

func (r *run) node(h corpus.Handle, rec snapshot.NodeRecord) error {
	var tr corpus.Transform
	var errs []error
	if v, err := property.Decode(rec.LocalPosition, property.TagVector3); err != nil {
		errs = append(errs, fmt.Errorf("position: %w", err))
	} else {
		tr.LocalPosition = v.(property.Vector3)
	}
	if v, err := property.Decode(rec.LocalRotation, property.TagQuaternion); err != nil {
		errs = append(errs, fmt.Errorf("rotation: %w", err))
	} else {
		tr.LocalRotation = v.(property.Quaternion)
	}
	if v, err := property.Decode(rec.LocalScale, property.TagVector3); err != nil {
		errs = append(errs, fmt.Errorf("scale: %w", err))
	} else {
		tr.LocalScale = v.(property.Vector3)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if r.e.DryRun {
		return nil
	}
	if err := r.e.Host.SetTransform(h, tr); err != nil {
		return fmt.Errorf("set transform: %w", err)
	}
	if err := r.e.Host.SetActive(h, rec.IsActive); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// assets verifies assets.csv against the host. Asset bytes are never written back.
func (r *run) assets(rows []snapshot.AssetRow, res *CategoryResult) {
	res.Records = len(rows)
	src, ok := r.e.Host.(corpus.AssetSource)
	if !ok {
		res.Unsupported = len(rows)
		if len(rows) > 0 {
			res.notef("host cannot stream assets, %d rows not verified", len(rows))
		}
		return
	}
	hasher := r.e.Hasher
	if hasher == nil {
		hasher = snapshot.SHA256
	}
	for i, row := range rows {
		live, err := capture.HashAsset(src, row.Path, hasher)
		switch {
		case err != nil:
			res.Warnings++
			res.notef("asset %s: %v", row.Path, err)
		case live.Hash != row.Hash || live.SizeBytes != row.SizeBytes:
			res.Warnings++
			res.notef("asset %s changed since capture", row.Path)
		default:
			res.Succeeded++
		}
		r.tick(res, i+1, len(rows))
	}
}

// dryRunProperties validates writes without applying them.
type dryRunProperties struct {
	corpus.Properties
}

func (d dryRunProperties) SetProperty(h corpus.Handle, name string, v any) error {
	infos, err := d.ListProperties(h)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Name == name {
			_, err := property.Encode(v, info.Type)
			return err
		}
	}
	return fmt.Errorf("property %s: %w", name, corpus.ErrNotFound)
}
