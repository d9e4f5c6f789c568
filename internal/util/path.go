package util

import (
	"path"
	"strings"
	"time"
)

// TimestampFormat is used in snapshot folder names.
const TimestampFormat = "20060102T150405Z"

// BuildSnapshotName constructs "<label>_<timestamp>" or the bare timestamp.
func BuildSnapshotName(label string, when time.Time) string {
	stamp := when.UTC().Format(TimestampFormat)
	label = SanitizeName(label)
	if label == "" {
		return stamp
	}
	return label + "_" + stamp
}

// ParseSnapshotTime extracts the timestamp from a snapshot folder name.
func ParseSnapshotTime(name string) (time.Time, bool) {
	if len(name) < len(TimestampFormat) {
		return time.Time{}, false
	}
	t, err := time.Parse(TimestampFormat, name[len(name)-len(TimestampFormat):])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SanitizeName maps an arbitrary identity to a single safe path segment.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

// BuildObjectKey constructs a normalized remote object key for an exported snapshot.
func BuildObjectKey(prefix, snapshotName, extension string) string {
	parts := []string{}
	if prefix != "" {
		parts = append(parts, strings.Trim(prefix, "/"))
	}
	name := snapshotName
	if extension != "" {
		name = name + "." + extension
	}
	parts = append(parts, name)
	return path.Join(parts...)
}
