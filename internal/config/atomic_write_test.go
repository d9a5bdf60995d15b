package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWrite_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", ".crashlog.yaml")

	if err := AtomicWrite(path, []byte("log:\n  level: debug\n")); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "log:\n  level: debug\n" {
		t.Errorf("content = %q", data)
	}
}

func TestAtomicWrite_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (no temp files left)", len(entries))
	}
}
