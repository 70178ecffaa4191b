package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/models"
)

// FileStore keeps the snapshot as a JSON document on disk. A path ending in
// .yaml or .yml stores the same mapping as YAML instead.
type FileStore struct {
	path string
}

func (s *FileStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

func (s *FileStore) decode(data []byte, snap *models.Snapshot) error {
	if s.isYAML() {
		return yaml.Unmarshal(data, snap)
	}
	return json.Unmarshal(data, snap)
}

func (s *FileStore) encode(snap models.Snapshot) ([]byte, error) {
	if s.isYAML() {
		return yaml.Marshal(snap)
	}
	return json.Marshal(snap)
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadPrevious(_ context.Context) models.Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logx.Warn().Err(err).Str("path", s.path).Msg("cannot read previous state, starting empty")
		}
		return models.Snapshot{}
	}
	var snap models.Snapshot
	if err := s.decode(data, &snap); err != nil || snap == nil {
		logx.Warn().Err(err).Str("path", s.path).Msg("previous state is corrupt, starting empty")
		return models.Snapshot{}
	}
	return snap
}

// SaveCurrent replaces the file. The write goes through a temp file in the
// same directory so a crash never leaves half a document behind.
func (s *FileStore) SaveCurrent(_ context.Context, snap models.Snapshot) error {
	data, err := s.encode(snap)
	if err != nil {
		return errx.State("encode snapshot", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".stock-watch-*")
	if err != nil {
		return errx.State("save snapshot", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errx.State("save snapshot", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errx.State("save snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return errx.State("save snapshot", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errx.State("save snapshot", err)
	}
	return nil
}

// Reset removes the stored snapshot.
func (s *FileStore) Reset(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errx.State("reset snapshot", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
