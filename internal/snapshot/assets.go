package snapshot

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const assetsHeader = "path;size_bytes;hash"

// Hasher digests asset content for assets.csv.
type Hasher func(data []byte) string

// SHA256 is the default Hasher.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func escapeField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, ";", `\;`)
}

// splitEscaped splits a row on unescaped ';' and unescapes each field.
func splitEscaped(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ';':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

// WriteAssets writes the asset manifest with its header row.
func WriteAssets(w io.Writer, rows []AssetRow) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, assetsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%s;%d;%s\n", escapeField(r.Path), r.SizeBytes, escapeField(r.Hash)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadAssets parses an asset manifest written by WriteAssets.
func ReadAssets(r io.Reader) ([]AssetRow, error) {
	rows := []AssetRow{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if line == 1 {
			if text != assetsHeader {
				return nil, fmt.Errorf("assets.csv: unexpected header %q", text)
			}
			continue
		}
		if text == "" {
			continue
		}
		fields := splitEscaped(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("assets.csv line %d: expected 3 fields, got %d", line, len(fields))
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("assets.csv line %d: invalid size: %w", line, err)
		}
		rows = append(rows, AssetRow{Path: fields[0], SizeBytes: size, Hash: fields[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if line == 0 {
		return nil, fmt.Errorf("assets.csv: missing header")
	}
	return rows, nil
}
