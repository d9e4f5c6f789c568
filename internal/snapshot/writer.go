package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/util"
	"github.com/rowjay/scenesnap/internal/version"
)

const ManifestFile = "manifest.json"

// Progress receives a message and a monotonically non-decreasing fraction in [0,1].
type Progress func(message string, fraction float64)

// Writer persists snapshots as folders under Root.
type Writer struct {
	Root string
	Log  zerolog.Logger
}

// WriteResult describes a completed write. Failed holds category write errors; those
// categories are absent from the manifest.
type WriteResult struct {
	Dir      string
	Manifest Manifest
	Failed   map[Category]error
	Bytes    int64
}

// Create makes a new, empty snapshot folder named after label and when.
func (w *Writer) Create(label string, when time.Time) (string, error) {
	if err := os.MkdirAll(w.Root, 0o750); err != nil {
		return "", fatalf("create snapshot root %s: %v", w.Root, err)
	}
	dir := filepath.Join(w.Root, util.BuildSnapshotName(label, when))
	if err := os.Mkdir(dir, 0o750); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fatalf("snapshot already exists: %s", dir)
		}
		return "", fatalf("create snapshot folder: %v", err)
	}
	return dir, nil
}

// Write persists the requested categories of snap into dir, each file complete before
// the next, and the manifest last. Requested categories with no records still get a
// file.
func (w *Writer) Write(dir string, snap *Snapshot, requested []Category, progress Progress) (*WriteResult, error) {
	if progress == nil {
		progress = func(string, float64) {}
	}
	res := &WriteResult{Dir: dir, Failed: map[Category]error{}}
	manifest := snap.Manifest
	manifest.FormatVersion = FormatVersion
	if manifest.ID == "" {
		manifest.ID = uuid.NewString()
	}
	if manifest.Timestamp.IsZero() {
		manifest.Timestamp = time.Now().UTC()
	}
	if manifest.ToolVersion == "" {
		manifest.ToolVersion = version.Version
	}
	manifest.CategoriesPresent = []Category{}
	manifest.Counts = map[Category]int{}

	steps := float64(len(requested) + 1)
	for i, c := range requested {
		n, err := w.writeCategory(dir, snap, c)
		if err != nil {
			cerr := &CategoryError{Category: c, Op: "write", Err: err}
			res.Failed[c] = cerr
			w.Log.Error().Err(err).Str("category", string(c)).Msg("category write failed")
			progress(fmt.Sprintf("%s failed", c), float64(i+1)/steps)
			continue
		}
		res.Bytes += n
		manifest.CategoriesPresent = append(manifest.CategoriesPresent, c)
		manifest.Counts[c] = snap.count(c)
		w.Log.Debug().Str("category", string(c)).Int("records", snap.count(c)).Str("size", humanize.Bytes(uint64(n))).Msg("category written")
		progress(fmt.Sprintf("wrote %s (%d records)", c.FileName(), snap.count(c)), float64(i+1)/steps)
	}

	n, err := writeFileAtomic(dir, ManifestFile, func(f io.Writer) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	})
	if err != nil {
		return nil, fatalf("write manifest: %v", err)
	}
	res.Bytes += n
	res.Manifest = manifest
	progress("wrote "+ManifestFile, 1)
	return res, nil
}

func (w *Writer) writeCategory(dir string, snap *Snapshot, c Category) (int64, error) {
	if c == CategoryAssets {
		rows := snap.Assets
		return writeFileAtomic(dir, c.FileName(), func(f io.Writer) error { return WriteAssets(f, rows) })
	}
	var payload any
	switch c {
	case CategoryMaterials:
		payload = materialsFile{Materials: nonNil(snap.Materials)}
	case CategoryBehaviors:
		payload = behaviorsFile{Behaviors: nonNil(snap.Behaviors)}
	case CategoryTextures:
		payload = texturesFile{Textures: nonNil(snap.Textures)}
	case CategoryHierarchy:
		payload = hierarchyFile{Nodes: nonNil(snap.Nodes)}
	default:
		return 0, fmt.Errorf("unknown category %s", c)
	}
	return writeFileAtomic(dir, c.FileName(), func(f io.Writer) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	})
}

type materialsFile struct {
	Materials []MaterialRecord `json:"materials"`
}

type behaviorsFile struct {
	Behaviors []BehaviorRecord `json:"behaviors"`
}

type texturesFile struct {
	Textures []TextureRecord `json:"textures"`
}

type hierarchyFile struct {
	Nodes []NodeRecord `json:"nodes"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// writeFileAtomic writes name inside dir through a temporary file so readers never
// observe a partially written category.
func writeFileAtomic(dir, name string, fill func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	cw := &countingWriter{w: tmp}
	if err := fill(cw); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
