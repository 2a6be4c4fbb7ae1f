// Package workspace manages the per-run working directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// Stage subdirectories, named by pipeline stage.
const (
	ScriptsDir = "scripts"
	MediaDir   = "media"
	AudioDir   = "audio"
	BuildDir   = "build"
)

// Dir is a working directory exclusively owned by one run.
type Dir struct {
	path     string
	released bool
}

// Acquire creates a fresh working directory under root for the given request ID.
func Acquire(root, requestID string) (*Dir, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	path, err := os.MkdirTemp(root, DirPrefix(requestID))
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Dir{path: path}, nil
}

// DirPrefix builds the directory name prefix: req_<timestamp>_<id>_.
func DirPrefix(requestID string) string {
	if len(requestID) > 8 {
		requestID = requestID[:8]
	}
	return fmt.Sprintf("req_%s_%s_", time.Now().UTC().Format("20060102_150405"), requestID)
}

// Path returns the root of the working directory.
func (d *Dir) Path() string {
	return d.path
}

// Release removes the directory unless keep is set. It is safe to call more than once.
func (d *Dir) Release(keep bool) error {
	if d == nil || d.released {
		return nil
	}
	d.released = true
	if keep {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove workspace %s: %w", d.path, err)
	}
	return nil
}

// Stage returns the path of a stage subdirectory inside root, creating it if needed.
func Stage(root, stage string) (string, error) {
	dir := filepath.Join(root, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", stage, err)
	}
	return dir, nil
}

// Prepare creates every stage subdirectory. It is idempotent.
func Prepare(root string) error {
	for _, stage := range []string{ScriptsDir, MediaDir, AudioDir, BuildDir} {
		if _, err := Stage(root, stage); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile atomically replaces the file at path, so a re-run never observes a torn artifact.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}
