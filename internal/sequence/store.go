package sequence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// storeFilePermissions is the permission mode for the sequences document.
const storeFilePermissions = 0600

// document is the on-disk JSON shape: a single object holding every
// saved sequence.
type document struct {
	Sequences []Sequence `json:"sequences"`
}

// Store is the durable slot → sequence mapping, backed by one JSON
// document rewritten atomically (temp file then rename) on every save.
//
// Loading is tolerant by design: an unreadable or corrupt file degrades to
// an empty store, and a malformed entry is skipped while well-formed
// entries still load. Persistence problems are never surfaced to playback.
//
// All methods are safe for concurrent use.
type Store struct {
	path string

	mu        sync.RWMutex
	sequences map[Index]*Sequence

	logger Logger
}

// NewStore creates a store over the given JSON document path and loads
// whatever is already there.
func NewStore(path string, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Store{
		path:      path,
		sequences: make(map[Index]*Sequence),
		logger:    logger,
	}
	s.load()
	return s
}

// load reads the document from disk, skipping malformed entries.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("sequence store unreadable, starting empty",
				"path", s.path, "error", err)
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("sequence store corrupt, starting empty",
			"path", s.path, "error", err)
		return
	}

	loaded := 0
	for i := range doc.Sequences {
		seq := doc.Sequences[i]
		if err := seq.Validate(); err != nil {
			s.logger.Warn("skipping malformed sequence",
				"index", seq.Index.String(), "error", err)
			continue
		}
		s.sequences[seq.Index] = seq.Clone()
		loaded++
	}

	s.logger.Info("sequence store loaded",
		"path", s.path, "count", loaded, "skipped", len(doc.Sequences)-loaded)
}

// Save validates and persists a sequence, overwriting any existing one at
// the same slot. The whole document is rewritten atomically; a failed
// write leaves the previous document intact.
func (s *Store) Save(seq *Sequence) error {
	if err := seq.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.sequences[seq.Index]
	s.sequences[seq.Index] = seq.Clone()

	if err := s.writeLocked(); err != nil {
		// Roll back the in-memory change so memory and disk agree.
		if existed {
			s.sequences[seq.Index] = previous
		} else {
			delete(s.sequences, seq.Index)
		}
		return err
	}
	return nil
}

// Delete removes the sequence at a slot. Deleting an empty slot returns
// ErrNotFound.
func (s *Store) Delete(index Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.sequences[index]
	if !ok {
		return ErrNotFound
	}
	delete(s.sequences, index)

	if err := s.writeLocked(); err != nil {
		s.sequences[index] = previous
		return err
	}
	return nil
}

// Get returns a copy of the sequence at a slot, or ErrNotFound.
func (s *Store) Get(index Index) (*Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.sequences[index]
	if !ok {
		return nil, ErrNotFound
	}
	return seq.Clone(), nil
}

// List returns copies of all saved sequences, ordered by slot.
func (s *Store) List() []Sequence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexes := make([]grid.Coord, 0, len(s.sequences))
	for idx := range s.sequences {
		indexes = append(indexes, idx)
	}
	grid.SortCoords(indexes)

	out := make([]Sequence, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, *s.sequences[idx].Clone())
	}
	return out
}

// Count returns the number of saved sequences.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sequences)
}

// writeLocked rewrites the document atomically. Caller holds s.mu.
func (s *Store) writeLocked() error {
	indexes := make([]grid.Coord, 0, len(s.sequences))
	for idx := range s.sequences {
		indexes = append(indexes, idx)
	}
	grid.SortCoords(indexes)

	doc := document{Sequences: make([]Sequence, 0, len(indexes))}
	for _, idx := range indexes {
		doc.Sequences = append(doc.Sequences, *s.sequences[idx])
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling sequences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sequences-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck // Error path cleanup
		os.Remove(tmpName)    //nolint:errcheck // Error path cleanup
		return fmt.Errorf("writing sequences: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck // Error path cleanup
		os.Remove(tmpName) //nolint:errcheck // Error path cleanup
		return fmt.Errorf("syncing sequences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Error path cleanup
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, storeFilePermissions); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Error path cleanup
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Error path cleanup
		return fmt.Errorf("replacing sequences file: %w", err)
	}
	return nil
}
