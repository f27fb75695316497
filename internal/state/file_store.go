package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/pkg/core"
)

// DefaultFilePath is used by the file driver when no DSN is configured.
const DefaultFilePath = ".dark/graph.yaml"

// FileStore keeps the latest snapshot as a single YAML document.
// Writes go to a temporary file that is renamed over the target, so a
// crash never leaves a half-written snapshot behind.
type FileStore struct {
	path   string
	fields *fields.Registry
	logger *slog.Logger
}

// NewFileStore creates a file store writing to cfg.DSN.
func NewFileStore(cfg Config) (*FileStore, error) {
	cfg.applyDefaults()

	path := cfg.DSN
	if path == "" {
		path = DefaultFilePath
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	return &FileStore{path: path, fields: cfg.Fields, logger: cfg.Logger}, nil
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// Save replaces the snapshot file with g.
func (s *FileStore) Save(_ context.Context, g *graph.Graph) (SnapshotInfo, error) {
	doc := Encode(g)
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return SnapshotInfo{}, core.Wrap(core.KindPersistenceError, err, "encode snapshot")
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return SnapshotInfo{}, core.Wrap(core.KindPersistenceError, err, "save snapshot")
	}

	s.logger.Debug("saved snapshot", slog.String("id", doc.ID), slog.String("path", s.path))
	return summarize(doc), nil
}

// Load reads the snapshot file. A missing file yields an empty graph.
func (s *FileStore) Load(_ context.Context) (*graph.Graph, error) {
	doc, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		return graph.New(), nil
	}
	if err != nil {
		return nil, err
	}

	g, err := Decode(doc, s.fields)
	if err != nil {
		return nil, corrupt(doc.ID, err)
	}
	return g, nil
}

func (s *FileStore) read() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, err
		}
		return Document{}, core.Wrap(core.KindPersistenceError, err, "read snapshot")
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, corrupt(s.path, err)
	}
	return doc, nil
}

// Snapshots returns the single stored snapshot, if any.
func (s *FileStore) Snapshots(_ context.Context) ([]SnapshotInfo, error) {
	doc, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []SnapshotInfo{summarize(doc)}, nil
}

// Prune is a no-op: the file store never holds more than one snapshot.
func (s *FileStore) Prune(_ context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	return 0, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
