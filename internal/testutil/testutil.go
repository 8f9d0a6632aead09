// Package testutil provides testing utilities for postoffice tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to dir/name, creating parent directories as
// needed, and returns the file's path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// WriteModule writes a module unit named name into a fresh temporary
// directory and returns its path.
func WriteModule(t *testing.T, name, content string) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), name, content)
}

// CaptureStdout runs fn with os.Stdout redirected and returns what fn wrote.
func CaptureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	orig := os.Stdout
	os.Stdout = w
	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	defer func() { os.Stdout = orig }()
	fn()
	_ = w.Close()
	return string(<-done)
}
