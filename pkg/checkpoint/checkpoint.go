// pkg/checkpoint/checkpoint.go
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/model"
)

// FileStore keeps one "last synchronized" date per record kind, each in
// a plain text file holding a single ISO date
type FileStore struct {
	dir    string
	logger *zap.Logger
}

var fileNames = map[string]string{
	config.KindIssues:      "last_updated.txt",
	config.KindDisciplines: "last_updated_disciplinas.txt",
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: zap.L().Named("checkpoint"),
	}
}

// Path returns the checkpoint file of a record kind
func (s *FileStore) Path(kind string) (string, error) {
	name, ok := fileNames[kind]
	if !ok {
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
	return filepath.Join(s.dir, name), nil
}

// Read returns the checkpoint of kind; ok is false when none was written
func (s *FileStore) Read(kind string) (model.Date, bool, error) {
	path, err := s.Path(kind)
	if err != nil {
		return model.Date{}, false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Date{}, false, nil
	}
	if err != nil {
		return model.Date{}, false, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}

	d, err := model.ParseDate(strings.TrimSpace(string(data)))
	if err != nil {
		return model.Date{}, false, fmt.Errorf("failed to parse checkpoint %s: %w", path, err)
	}
	return d, d.Valid(), nil
}

// Write replaces the checkpoint of kind. The file is written next to the
// target and renamed over it.
func (s *FileStore) Write(kind string, d model.Date) error {
	if !d.Valid() {
		return errors.New("checkpoint date cannot be absent")
	}

	path, err := s.Path(kind)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(d.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace checkpoint %s: %w", path, err)
	}

	s.logger.Info("Checkpoint written",
		zap.String("kind", kind),
		zap.String("date", d.String()))
	return nil
}

// SyncedOn reports whether kind was already synchronized on day
func (s *FileStore) SyncedOn(kind string, day model.Date) (bool, error) {
	last, ok, err := s.Read(kind)
	if err != nil || !ok {
		return false, err
	}
	return last == day, nil
}
