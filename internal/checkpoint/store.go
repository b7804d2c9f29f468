// Package checkpoint persists partial stage-1 results so an interrupted
// run can resume. Checkpointing is best-effort: every read or write
// error degrades to "no checkpoint" and is never allowed to abort the
// pipeline. The file is a crash-recovery artifact only and is deleted on
// successful completion.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Envelope is the persisted progress for one dataset run. A checkpoint
// is valid for resume only when DatasetSize matches the current row
// count; indices from a structurally different dataset cannot be
// trusted.
type Envelope struct {
	DatasetSize int
	CreatedAt   time.Time
	Entries     map[int]string
}

// Store reads and writes the checkpoint file for one dataset.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// PathFor derives the checkpoint path from the interim artifact path, so
// concurrent runs against different datasets do not collide.
func PathFor(interimPath string) string {
	base := strings.TrimSuffix(interimPath, filepath.Ext(interimPath))
	return base + ".progress.gob"
}

// Save records one classified index. The envelope is created lazily and
// replaced if it belongs to a dataset of a different size. Write
// failures are logged and swallowed.
func (s *Store) Save(index int, label string, datasetSize int) {
	env := s.loadRaw()
	if env == nil || env.DatasetSize != datasetSize {
		env = &Envelope{
			DatasetSize: datasetSize,
			CreatedAt:   time.Now(),
			Entries:     make(map[int]string),
		}
	}
	env.Entries[index] = label

	if err := s.write(env); err != nil {
		slog.Warn("failed to save checkpoint", "path", s.path, "error", err)
	}
}

// Load returns the checkpointed index->label entries, or an empty map
// when the file is absent, unreadable, or belongs to a dataset of a
// different size.
func (s *Store) Load(expectedDatasetSize int) map[int]string {
	env := s.loadRaw()
	if env == nil {
		return map[int]string{}
	}
	if env.DatasetSize != expectedDatasetSize {
		slog.Warn("discarding checkpoint with mismatched dataset size",
			"path", s.path,
			"checkpoint_size", env.DatasetSize,
			"dataset_size", expectedDatasetSize)
		return map[int]string{}
	}
	return env.Entries
}

// Cleanup removes the checkpoint file. Absence is not an error.
func (s *Store) Cleanup() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove checkpoint", "path", s.path, "error", err)
	}
}

// loadRaw reads the persisted envelope, resolving the legacy bare-map
// shape into an envelope once at load time. Any failure yields nil.
func (s *Store) loadRaw() *Envelope {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read checkpoint", "path", s.path, "error", err)
		}
		return nil
	}

	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err == nil && env.Entries != nil {
		return &env
	}

	// Legacy shape: a bare index->label map with no envelope. Wrap it,
	// assuming the recorded entries span the dataset it was written for.
	var legacy map[int]string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&legacy); err == nil && legacy != nil {
		return &Envelope{
			DatasetSize: len(legacy),
			CreatedAt:   time.Now(),
			Entries:     legacy,
		}
	}

	slog.Warn("failed to decode checkpoint, treating as absent", "path", s.path)
	return nil
}

func (s *Store) write(env *Envelope) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return err
	}
	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}
