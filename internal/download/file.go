// Package download delivers analytics exports to the local file system.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weatherdash/weatherdash/internal/analytics"
)

// FileSaver writes exports into a directory, one file per export.
type FileSaver struct {
	dir    string
	logger zerolog.Logger
}

// NewFileSaver creates a FileSaver writing into dir.
func NewFileSaver(dir string, logger zerolog.Logger) *FileSaver {
	if dir == "" {
		dir = "."
	}
	return &FileSaver{dir: dir, logger: logger}
}

// Path returns where an export named filename is written. Path separators in
// filename are replaced so the file always lands directly inside the directory.
func (s *FileSaver) Path(filename string) string {
	name := pathSeparators.Replace(filename)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return filepath.Join(s.dir, name)
}

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// Save writes export to the directory, replacing any file of the same name.
// The file appears only once fully written.
func (s *FileSaver) Save(ctx context.Context, export *analytics.Export) error {
	if export == nil {
		return errors.New("nil export")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(export.Data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	path := s.Path(export.Filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("bytes", len(export.Data)).
		Msg("export saved")
	return nil
}

var _ analytics.Saver = (*FileSaver)(nil)
