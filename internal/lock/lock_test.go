package lock

import (
	"errors"
	"testing"
)

func TestAcquireForIsPerIdentity(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireFor(dir, "Level/Props")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := AcquireFor(dir, "Level/Props"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	other, err := AcquireFor(dir, "Level/Lights")
	if err != nil {
		t.Fatalf("other identity should not be blocked: %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := AcquireFor(dir, "Level/Props")
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	_ = again.Release()
}
