package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirSink writes captures under root, one subdirectory per attempt with
// zero-padded step prefixes: attempt_0003/02_login.json.
type DirSink struct {
	root string
}

func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

func (s *DirSink) Capture(_ context.Context, attempt, step int, label string, data []byte) error {
	dir := filepath.Join(s.root, fmt.Sprintf("attempt_%04d", attempt))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%02d_%s.json", step, label))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot write: %w", err)
	}
	return nil
}
