// Package capture serializes resolved entities into snapshot records.
package capture

import (
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

// reserved keys are internal bookkeeping fields of the host and never recorded.
var reserved = map[string]bool{
	"m_objecthideflags":           true,
	"m_correspondingsourceobject": true,
	"m_prefabinstance":            true,
	"m_prefabasset":               true,
	"m_prefabinternal":            true,
	"m_gameobject":                true,
	"m_script":                    true,
	"m_editorhideflags":           true,
	"m_editorclassidentifier":     true,
	"m_name":                      true,
}

// Reserved reports whether name is on the fixed deny-list.
func Reserved(name string) bool { return reserved[strings.ToLower(name)] }

// TopLevel reports whether name addresses a declared property rather than a member
// of a nested structure or array element.
func TopLevel(name string) bool { return !strings.ContainsAny(name, ".[") }

// Stats tallies one serializer run.
type Stats struct {
	Entities          int
	Duplicates        int
	Failed            int
	Properties        int
	SkippedProperties int
}

type Serializer struct {
	Host corpus.Host
	Log  zerolog.Logger
}

// Properties encodes the top-level properties of h. Unreadable or unsupported
// properties are skipped and counted; they never fail the entity.
func (s Serializer) Properties(h corpus.Handle) ([]property.Entry, int, error) {
	infos, err := s.Host.ListProperties(h)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]property.Entry, 0, len(infos))
	seen := map[string]bool{}
	skipped := 0
	for _, info := range infos {
		if Reserved(info.Name) || !TopLevel(info.Name) || seen[info.Name] || !info.Type.Supported() {
			skipped++
			continue
		}
		raw, err := s.Host.GetProperty(h, info.Name)
		if err != nil {
			s.Log.Debug().Err(err).Str("entity", h.String()).Str("property", info.Name).Msg("property unreadable, skipped")
			skipped++
			continue
		}
		entry, err := property.NewEntry(info.Name, info.Type, raw)
		if err != nil {
			if !errors.Is(err, property.ErrUnsupported) {
				s.Log.Debug().Err(err).Str("entity", h.String()).Str("property", info.Name).Msg("property not encodable, skipped")
			}
			skipped++
			continue
		}
		seen[info.Name] = true
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

func (s Serializer) Materials(targets []scope.Target) ([]snapshot.MaterialRecord, Stats) {
	records := []snapshot.MaterialRecord{}
	var stats Stats
	seenPath := map[string]bool{}
	seenHandle := map[corpus.Handle]bool{}
	for _, t := range targets {
		if seenHandle[t.Handle] || (t.Restorable && seenPath[t.Identity]) {
			stats.Duplicates++
			continue
		}
		seenHandle[t.Handle] = true
		entries, skipped, err := s.Properties(t.Handle)
		if err != nil {
			s.Log.Warn().Err(err).Str("material", t.Identity).Msg("material not captured")
			stats.Failed++
			continue
		}
		path := ""
		if t.Restorable {
			path = t.Identity
			seenPath[path] = true
		}
		records = append(records, snapshot.MaterialRecord{
			AssetPath:  path,
			ShaderName: s.Host.SchemaName(t.Handle),
			Properties: entries,
		})
		stats.Entities++
		stats.Properties += len(entries)
		stats.SkippedProperties += skipped
	}
	return records, stats
}

func (s Serializer) Behaviors(targets []scope.Target) ([]snapshot.BehaviorRecord, Stats) {
	records := []snapshot.BehaviorRecord{}
	var stats Stats
	seen := map[corpus.Handle]bool{}
	for _, t := range targets {
		if seen[t.Handle] {
			stats.Duplicates++
			continue
		}
		seen[t.Handle] = true
		entries, skipped, err := s.Properties(t.Handle)
		if err != nil {
			s.Log.Warn().Err(err).Str("owner", t.Identity).Msg("behavior not captured")
			stats.Failed++
			continue
		}
		records = append(records, snapshot.BehaviorRecord{
			OwnerPath:    t.Identity,
			BehaviorType: s.Host.SchemaName(t.Handle),
			Properties:   entries,
		})
		stats.Entities++
		stats.Properties += len(entries)
		stats.SkippedProperties += skipped
	}
	return records, stats
}

func (s Serializer) Textures(targets []scope.Target) ([]snapshot.TextureRecord, Stats) {
	records := []snapshot.TextureRecord{}
	var stats Stats
	seen := map[string]bool{}
	for _, t := range targets {
		if !t.Restorable {
			stats.Failed++
			continue
		}
		if seen[t.Identity] {
			stats.Duplicates++
			continue
		}
		seen[t.Identity] = true
		settings, err := s.Host.TextureSettings(t.Handle)
		if err != nil {
			s.Log.Warn().Err(err).Str("texture", t.Identity).Msg("texture settings not captured")
			stats.Failed++
			continue
		}
		records = append(records, snapshot.TextureRecord{
			AssetPath:                t.Identity,
			MaxSize:                  settings.MaxSize,
			CompressionMode:          settings.CompressionMode,
			UseAggressiveCompression: settings.UseAggressiveCompression,
			CompressionQuality:       settings.CompressionQuality,
			PlatformFormat:           settings.PlatformFormat,
		})
		stats.Entities++
	}
	return records, stats
}

func (s Serializer) Nodes(targets []scope.Target) ([]snapshot.NodeRecord, Stats) {
	records := []snapshot.NodeRecord{}
	var stats Stats
	seen := map[corpus.Handle]bool{}
	for _, t := range targets {
		if seen[t.Handle] {
			stats.Duplicates++
			continue
		}
		seen[t.Handle] = true
		tr, err := s.Host.Transform(t.Handle)
		if err != nil {
			s.Log.Warn().Err(err).Str("node", t.Identity).Msg("node not captured")
			stats.Failed++
			continue
		}
		rec, err := NodeRecord(t.Identity, tr, s.Host.Active(t.Handle))
		if err != nil {
			stats.Failed++
			continue
		}
		records = append(records, rec)
		stats.Entities++
	}
	return records, stats
}

// NodeRecord encodes a node's transform state.
func NodeRecord(path string, tr corpus.Transform, active bool) (snapshot.NodeRecord, error) {
	pos, err := property.Encode(tr.LocalPosition, property.TagVector3)
	if err != nil {
		return snapshot.NodeRecord{}, err
	}
	rot, err := property.Encode(tr.LocalRotation, property.TagQuaternion)
	if err != nil {
		return snapshot.NodeRecord{}, err
	}
	scale, err := property.Encode(tr.LocalScale, property.TagVector3)
	if err != nil {
		return snapshot.NodeRecord{}, err
	}
	return snapshot.NodeRecord{Path: path, LocalPosition: pos, LocalRotation: rot, LocalScale: scale, IsActive: active}, nil
}

// Assets hashes the bytes of every distinct asset path that src can open. Paths the
// host cannot stream are left out of the manifest.
func Assets(src corpus.AssetSource, paths []string, hasher snapshot.Hasher, log zerolog.Logger) ([]snapshot.AssetRow, Stats) {
	rows := []snapshot.AssetRow{}
	var stats Stats
	seen := map[string]bool{}
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		row, err := HashAsset(src, p, hasher)
		if err != nil {
			log.Debug().Err(err).Str("asset", p).Msg("asset not hashed")
			stats.Failed++
			continue
		}
		rows = append(rows, row)
		stats.Entities++
	}
	return rows, stats
}

// HashAsset reads path from src and describes it as an assets.csv row.
func HashAsset(src corpus.AssetSource, path string, hasher snapshot.Hasher) (snapshot.AssetRow, error) {
	rc, err := src.OpenAsset(path)
	if err != nil {
		return snapshot.AssetRow{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return snapshot.AssetRow{}, err
	}
	return snapshot.AssetRow{Path: path, SizeBytes: int64(len(data)), Hash: hasher(data)}, nil
}
