package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorageRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	if _, ok, err := s.Get(SnapshotKey); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(SnapshotKey, `{"version":1}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get(SnapshotKey)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != `{"version":1}` {
		t.Errorf("unexpected value %q", got)
	}

	info, err := os.Stat(filepath.Join(dir, SnapshotKey+".json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly one file, got %d", len(entries))
	}
}

func TestFileStorageOverwrite(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Set("k", "first")
	_ = s.Set("k", "second")

	got, _, _ := s.Get("k")
	if got != "second" {
		t.Errorf("expected second, got %q", got)
	}
}

func TestFileStorageRejectsPathKeys(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("../escape", "x"); err == nil {
		t.Error("expected error for key containing a path separator")
	}
}

func TestMemoryStorageQuota(t *testing.T) {
	s := NewMemoryStorage(4)

	if err := s.Set("k", "1234"); err != nil {
		t.Fatalf("Set within quota: %v", err)
	}
	if err := s.Set("k", "12345"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	got, _, _ := s.Get("k")
	if got != "1234" {
		t.Errorf("failed write must not replace value, got %q", got)
	}
	if s.Writes() != 1 {
		t.Errorf("expected 1 write, got %d", s.Writes())
	}
}
