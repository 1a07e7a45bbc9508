package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWorkspaceLifecycle(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root, "job-123")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	if filepath.Base(ws.Dir) != "job-123" {
		t.Errorf("workspace dir = %s", ws.Dir)
	}
	if err := os.WriteFile(filepath.Join(ws.Dir, "staged.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws.Cleanup()
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Error("cleanup left the workspace behind")
	}
}

func TestCleanupStale(t *testing.T) {
	root := t.TempDir()
	if _, err := NewWorkspace(root, "orphan"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "not-a-dir.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	CleanupStale(root, 0)

	if _, err := os.Stat(filepath.Join(root, "orphan")); !os.IsNotExist(err) {
		t.Error("stale workspace survived the sweep")
	}
	if _, err := os.Stat(filepath.Join(root, "not-a-dir.txt")); err != nil {
		t.Error("sweep removed a plain file")
	}

	// A fresh workspace survives a sweep with a real max age.
	if _, err := NewWorkspace(root, "fresh"); err != nil {
		t.Fatal(err)
	}
	CleanupStale(root, time.Hour)
	if _, err := os.Stat(filepath.Join(root, "fresh")); err != nil {
		t.Error("fresh workspace was swept")
	}
}
