package kv

import (
	"os"
	"path/filepath"
	"testing"
)

// exercise runs the Storage contract against any implementation.
func exercise(t *testing.T, s Storage) {
	t.Helper()

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want not found", ok, err)
	}

	if err := s.Set("k", "v1"); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if v, ok, err := s.Get("k"); err != nil || !ok || v != "v1" {
		t.Fatalf("Get(k) = %q ok=%v err=%v", v, ok, err)
	}

	if err := s.Set("k", "v2"); err != nil {
		t.Fatalf("Set overwrite error = %v", err)
	}
	if v, _, _ := s.Get("k"); v != "v2" {
		t.Errorf("Get(k) after overwrite = %q, want v2", v)
	}

	if err := s.Set("empty", ""); err != nil {
		t.Fatalf("Set empty error = %v", err)
	}
	if v, ok, _ := s.Get("empty"); !ok || v != "" {
		t.Errorf("Get(empty) = %q ok=%v, want present empty string", v, ok)
	}

	if err := s.Remove("k"); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("Get(k) after Remove reported present")
	}
	if err := s.Remove("k"); err != nil {
		t.Errorf("second Remove error = %v, want nil", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(nil))
}

func TestMemory_Seed(t *testing.T) {
	seed := map[string]string{"a": "1"}
	m := NewMemory(seed)
	seed["a"] = "changed"

	if v, _, _ := m.Get("a"); v != "1" {
		t.Errorf("Get(a) = %q, seed map should be copied", v)
	}
}

func TestMemory_ZeroValue(t *testing.T) {
	var m Memory
	exercise(t, &m)
}

func TestSQLite(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	exercise(t, s)
}

func TestOpen_CreatesLayout(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", ".nihss")

	s, err := Open(baseDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(baseDir, "nihss.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if info, err := os.Stat(filepath.Join(baseDir, "exports")); err != nil || !info.IsDir() {
		t.Errorf("exports directory not created: %v", err)
	}

	var journalMode string
	if err := s.DB().QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	version, err := GetUserVersion(s.DB())
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	baseDir := t.TempDir()

	s, err := Open(baseDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set("nihss-device-id", "abc"); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	s.Close()

	s, err = Open(baseDir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if v, ok, err := s.Get("nihss-device-id"); err != nil || !ok || v != "abc" {
		t.Errorf("Get after reopen = %q ok=%v err=%v", v, ok, err)
	}
}
