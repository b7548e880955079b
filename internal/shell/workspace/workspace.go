// Package workspace manages the scoped temporary directory a pipeline
// run writes its transient artifacts into. The directory lives exactly
// as long as the run: Cleanup is deferred by the owner and removes it
// on success, error, and interrupt alike.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// =============================================================================
// Workspace
// =============================================================================

// Workspace is a scoped temporary directory. Create acquires it,
// Cleanup releases it; Cleanup is idempotent and safe to defer multiple
// times on overlapping exit paths.
type Workspace struct {
	root string

	mu      sync.Mutex
	cleaned bool
}

// Create allocates a fresh workspace directory under the system temp
// directory. The prefix should carry a per-run unique component so
// concurrent runs cannot collide on the filesystem.
func Create(prefix string) (*Workspace, error) {
	root, err := os.MkdirTemp("", prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Dir returns the workspace root path.
func (w *Workspace) Dir() string {
	return w.root
}

// WriteFile writes a transient artifact into the workspace and returns
// its absolute path. Writing after Cleanup is an error.
func (w *Workspace) WriteFile(name, content string, mode os.FileMode) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		return "", fmt.Errorf("write %s: workspace already cleaned up", name)
	}

	path := filepath.Join(w.root, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes the workspace directory and everything in it.
// Calling it more than once is a no-op.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		return nil
	}
	w.cleaned = true

	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("cleanup workspace %s: %w", w.root, err)
	}
	return nil
}
