// Package archive packs snapshot folders into single tar streams for export.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rowjay/scenesnap/internal/compress"
	"github.com/rowjay/scenesnap/internal/cryptoutil"
)

// Options select the layers wrapped around the tar stream.
type Options struct {
	Compression string
	// Key enables DARE encryption when non-nil.
	Key []byte
}

// Extension is the object suffix for opts, e.g. "tar.zst.enc".
func Extension(opts Options) string {
	ext := "tar"
	if c := compress.Extension(opts.Compression); c != "" {
		ext += "." + c
	}
	if opts.Key != nil {
		ext += ".enc"
	}
	return ext
}

// Pack writes every regular file of the snapshot folder dir to w as a tar stream
// wrapped in the configured compression and encryption.
func Pack(dir string, w io.Writer, opts Options) (err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read snapshot folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	sealed, closers, err := seal(w, opts)
	if err != nil {
		return err
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	tw := tar.NewWriter(sealed)
	closers = append(closers, tw)
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := addFile(tw, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func seal(w io.Writer, opts Options) (io.Writer, []io.Closer, error) {
	var closers []io.Closer
	out := w
	if opts.Key != nil {
		enc, err := cryptoutil.EncryptWriter(out, opts.Key)
		if err != nil {
			return nil, nil, err
		}
		out = enc
		closers = append(closers, enc)
	}
	comp, err := compress.WrapWriter(opts.Compression, out)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, nil, err
	}
	closers = append(closers, comp)
	return comp, closers, nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = info.Name()
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive %s: %w", info.Name(), err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archive %s: %w", info.Name(), err)
	}
	return nil
}

// Unpack extracts an archive produced by Pack into dest, which must not exist yet.
// Entries are flat file names; anything else is rejected.
func Unpack(r io.Reader, dest string, opts Options) (err error) {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("destination already exists: %s", dest)
	}
	payload := r
	if opts.Key != nil {
		payload, err = cryptoutil.DecryptReader(payload, opts.Key)
		if err != nil {
			return err
		}
	}
	comp, err := compress.WrapReader(opts.Compression, payload)
	if err != nil {
		return err
	}
	defer comp.Close()

	tmp := dest + ".partial"
	if err := os.MkdirAll(tmp, 0o750); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(tmp)
		}
	}()

	tr := tar.NewReader(comp)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := hdr.Name
		if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("unexpected archive entry: %q", hdr.Name)
		}
		if err := extract(tr, filepath.Join(tmp, name)); err != nil {
			return err
		}
	}
	return os.Rename(tmp, dest)
}

func extract(r io.Reader, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
