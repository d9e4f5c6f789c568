package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rowjay/scenesnap/internal/compress"
)

// OpenOptions tune Open.
type OpenOptions struct {
	// RequireManifest makes a missing or unreadable manifest fatal.
	RequireManifest bool
}

// Loaded is a snapshot read from disk. Errors holds categories that were present but
// could not be read.
type Loaded struct {
	*Snapshot
	Errors map[Category]error
	// HasManifest is false for metadata-less folders and legacy bundles without one.
	HasManifest bool
}

// Open reads a snapshot folder, or a legacy single-file bundle when path is a file.
func Open(path string, opts OpenOptions) (*Loaded, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fatalf("open snapshot %s: %v", path, err)
	}
	if !info.IsDir() {
		return openBundle(path, opts)
	}
	return openFolder(path, opts)
}

func openFolder(dir string, opts OpenOptions) (*Loaded, error) {
	l := &Loaded{Snapshot: &Snapshot{Path: dir}, Errors: map[Category]error{}}

	manifestPath := filepath.Join(dir, ManifestFile)
	switch data, err := os.ReadFile(manifestPath); {
	case err == nil:
		if jerr := json.Unmarshal(data, &l.Manifest); jerr != nil {
			if opts.RequireManifest {
				return nil, fatalf("manifest unreadable: %v", jerr)
			}
		} else {
			l.HasManifest = true
		}
	case errors.Is(err, os.ErrNotExist):
		if opts.RequireManifest {
			return nil, fatalf("manifest missing in %s", dir)
		}
	default:
		if opts.RequireManifest {
			return nil, fatalf("manifest unreadable: %v", err)
		}
	}

	found := false
	for _, c := range Categories {
		path := filepath.Join(dir, c.FileName())
		if _, err := os.Stat(path); err != nil {
			if l.HasManifest && l.Manifest.Has(c) {
				l.Errors[c] = &CategoryError{Category: c, Op: "read", Err: err}
			}
			continue
		}
		found = true
		if err := readCategory(path, c, l.Snapshot); err != nil {
			l.Errors[c] = &CategoryError{Category: c, Op: "read", Err: err}
		}
	}
	if !found && !l.HasManifest {
		return nil, fmt.Errorf("%w: %w: %s", ErrFatal, ErrNotSnapshot, dir)
	}
	if !l.HasManifest {
		l.Manifest = inferManifest(dir, l.Snapshot)
	}
	return l, nil
}

func readCategory(path string, c Category, snap *Snapshot) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch c {
	case CategoryAssets:
		rows, err := ReadAssets(f)
		if err != nil {
			return err
		}
		snap.Assets = rows
		return nil
	case CategoryMaterials:
		var v materialsFile
		if err := json.NewDecoder(f).Decode(&v); err != nil {
			return err
		}
		snap.Materials = nonNil(v.Materials)
	case CategoryBehaviors:
		var v behaviorsFile
		if err := json.NewDecoder(f).Decode(&v); err != nil {
			return err
		}
		snap.Behaviors = nonNil(v.Behaviors)
	case CategoryTextures:
		var v texturesFile
		if err := json.NewDecoder(f).Decode(&v); err != nil {
			return err
		}
		snap.Textures = nonNil(v.Textures)
	case CategoryHierarchy:
		var v hierarchyFile
		if err := json.NewDecoder(f).Decode(&v); err != nil {
			return err
		}
		snap.Nodes = nonNil(v.Nodes)
	}
	return nil
}

func inferManifest(path string, snap *Snapshot) Manifest {
	m := Manifest{
		FormatVersion:     FormatVersion,
		CategoriesPresent: snap.Present(),
		Counts:            map[Category]int{},
	}
	for _, c := range m.CategoriesPresent {
		m.Counts[c] = snap.count(c)
	}
	if info, err := os.Stat(path); err == nil {
		m.Timestamp = info.ModTime().UTC()
	}
	return m
}

// bundle is the legacy single-file layout with every category inline.
type bundle struct {
	Manifest  *Manifest        `json:"manifest,omitempty"`
	Materials []MaterialRecord `json:"materials"`
	Behaviors []BehaviorRecord `json:"behaviors"`
	Textures  []TextureRecord  `json:"textures"`
	Nodes     []NodeRecord     `json:"nodes"`
}

func openBundle(path string, opts OpenOptions) (*Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fatalf("open bundle: %v", err)
	}
	defer f.Close()
	r, err := compress.WrapReader(compress.Detect(path), f)
	if err != nil {
		return nil, fatalf("open bundle: %v", err)
	}
	defer r.Close()

	var b bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fatalf("decode bundle %s: %v", path, err)
	}
	if b.Manifest == nil && opts.RequireManifest {
		return nil, fatalf("bundle %s has no manifest", path)
	}
	l := &Loaded{
		Snapshot: &Snapshot{
			Path:      path,
			Materials: b.Materials,
			Behaviors: b.Behaviors,
			Textures:  b.Textures,
			Nodes:     b.Nodes,
		},
		Errors:      map[Category]error{},
		HasManifest: b.Manifest != nil,
	}
	if b.Manifest != nil {
		l.Manifest = *b.Manifest
	} else {
		l.Manifest = inferManifest(path, l.Snapshot)
	}
	return l, nil
}

// WriteBundle writes snap as a single-file bundle, compressed according to the
// path's extension (.gz or .zst).
func WriteBundle(path string, snap *Snapshot) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := compress.WrapWriter(compress.Detect(path), f)
	if err != nil {
		return err
	}
	manifest := snap.Manifest
	if manifest.FormatVersion == 0 {
		manifest.FormatVersion = FormatVersion
	}
	manifest.CategoriesPresent = snap.Present()
	b := bundle{
		Manifest:  &manifest,
		Materials: snap.Materials,
		Behaviors: snap.Behaviors,
		Textures:  snap.Textures,
		Nodes:     snap.Nodes,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// IsSnapshot reports whether dir holds a manifest or at least one category file.
func IsSnapshot(dir string) bool {
	for _, name := range append([]string{ManifestFile}, categoryFiles()...) {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func categoryFiles() []string {
	out := make([]string, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, c.FileName())
	}
	return out
}

// Info summarizes one snapshot folder for listing.
type Info struct {
	Name      string
	Path      string
	Complete  bool
	Manifest  *Manifest
	Modified  time.Time
	SizeBytes int64
}

// List returns the snapshot folders under root, newest first. Folders without a
// manifest are reported as incomplete.
func List(root string) ([]Info, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if !IsSnapshot(dir) {
			continue
		}
		info := Info{Name: e.Name(), Path: dir}
		if data, err := os.ReadFile(filepath.Join(dir, ManifestFile)); err == nil {
			var m Manifest
			if json.Unmarshal(data, &m) == nil {
				info.Manifest = &m
				info.Complete = true
				info.Modified = m.Timestamp
			}
		}
		info.SizeBytes, info.Modified = folderStats(dir, info.Modified)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}

func folderStats(dir string, modified time.Time) (int64, time.Time) {
	var size int64
	latest := modified
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		fi, err := f.Info()
		if err != nil || fi.IsDir() {
			continue
		}
		size += fi.Size()
		if modified.IsZero() && fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
	}
	return size, latest
}
