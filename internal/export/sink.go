package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives a finished export.
type Sink interface {
	Save(ctx context.Context, art Artifact) error
}

// FileSink writes exports into Dir, replacing files of the same name.
type FileSink struct {
	Dir string
}

func (f FileSink) Save(ctx context.Context, art Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	// a failed write must never leave a partial file under the final name
	tmp, err := os.CreateTemp(dir, ".gitcard-*.png")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(art.PNG); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, art.Name))
}

// Path returns where Save puts art.
func (f FileSink) Path(art Artifact) string {
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, art.Name)
}
