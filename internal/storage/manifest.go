package storage

import (
	"strings"
	"time"
)

const ManifestSuffix = ".manifest.json"

// Manifest is the sidecar written next to an exported snapshot archive. It lets list
// and import work without downloading the archive.
type Manifest struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Snapshot       string         `json:"snapshot"`
	Label          string         `json:"label,omitempty"`
	ScopeKind      string         `json:"scope_kind"`
	TargetIdentity string         `json:"target_identity"`
	Categories     []string       `json:"categories"`
	Counts         map[string]int `json:"counts,omitempty"`
	Compression    string         `json:"compression"`
	Encryption     bool           `json:"encryption"`
	KeyFingerprint string         `json:"key_fingerprint,omitempty"`
	CapturedAt     time.Time      `json:"captured_at"`
	ExportedAt     time.Time      `json:"exported_at"`
	SizeBytes      int64          `json:"size_bytes"`
	ToolVersion    string         `json:"tool_version"`
}

func ManifestKey(objectKey string) string {
	return objectKey + ManifestSuffix
}

func isManifestKey(key string) bool { return strings.HasSuffix(key, ManifestSuffix) }
