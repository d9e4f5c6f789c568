package util

import (
	"strings"
	"testing"
	"time"
)

func TestBuildSnapshotName(t *testing.T) {
	when := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	name := BuildSnapshotName("pre shader swap", when)
	if name != "pre_shader_swap_20240101T100000Z" {
		t.Fatalf("unexpected name: %s", name)
	}
	if bare := BuildSnapshotName("", when); bare != "20240101T100000Z" {
		t.Fatalf("unexpected bare name: %s", bare)
	}
	parsed, ok := ParseSnapshotTime(name)
	if !ok || !parsed.Equal(when) {
		t.Fatalf("unexpected parsed time: %v %v", parsed, ok)
	}
}

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("Root/Level 1/Door"); got != "Root_Level_1_Door" {
		t.Fatalf("unexpected sanitized name: %s", got)
	}
	if got := SanitizeName("../.."); strings.Contains(got, "/") || strings.HasPrefix(got, ".") {
		t.Fatalf("unsafe sanitized name: %s", got)
	}
}

func TestBuildObjectKey(t *testing.T) {
	key := BuildObjectKey("/snapshots/", "label_20240101T100000Z", "tar.zst")
	if key != "snapshots/label_20240101T100000Z.tar.zst" {
		t.Fatalf("unexpected key: %s", key)
	}
}
