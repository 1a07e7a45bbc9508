package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Workspace is the scratch directory one assembly job stages its template
// copies, signature images and merge output in. It lives only for the
// duration of the job; Cleanup removes everything.
type Workspace struct {
	Dir       string
	CreatedAt time.Time
}

// NewWorkspace creates the per-job directory under root.
func NewWorkspace(root, jobID string) (*Workspace, error) {
	dir := filepath.Join(root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job workspace: %w", err)
	}
	return &Workspace{Dir: dir, CreatedAt: time.Now()}, nil
}

// Cleanup removes the workspace directory and all staged files.
func (w *Workspace) Cleanup() {
	os.RemoveAll(w.Dir)
}

// CleanupStale removes leftover job directories older than maxAge. Run at
// startup and periodically; a crash mid-job can orphan a workspace.
func CleanupStale(root string, maxAge time.Duration) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > maxAge {
			os.RemoveAll(filepath.Join(root, entry.Name()))
		}
	}
}
