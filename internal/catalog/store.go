package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xeb/voxcatalog/internal/logging"
)

var (
	// ErrCorruptState indicates the persisted snapshot exists but cannot be
	// parsed. Fatal: the stage aborts and the operator must intervene.
	ErrCorruptState = errors.New("corrupt catalog snapshot")
	// ErrUnknownEntry indicates a merge targeted a key that is not in the
	// store. Only the discovery path may create entries.
	ErrUnknownEntry = errors.New("unknown catalog entry")
)

// Store is the single source of truth shared across all stages: the ordered
// entry list, the processed-pages skip-set, and the advisory last-updated
// timestamp. It is not safe for concurrent use; the pipeline has exactly one
// writer at a time.
type Store struct {
	path           string
	logger         *slog.Logger
	entries        []Entry
	index          map[string]int
	processedPages map[int]struct{}
	lastUpdated    time.Time
}

type snapshot struct {
	Episodes       []Entry `json:"episodes"`
	ProcessedPages []int   `json:"processed_pages"`
	LastUpdated    string  `json:"last_updated,omitempty"`
}

// Open loads the snapshot at path. A missing file yields an empty store; a
// malformed file yields ErrCorruptState.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:           path,
		logger:         logging.NewComponentLogger(logger, "catalog"),
		index:          make(map[string]int),
		processedPages: make(map[int]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no catalog snapshot, starting empty", logging.String("path", path))
			return s, nil
		}
		return nil, fmt.Errorf("read catalog snapshot: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
	}

	for _, entry := range snap.Episodes {
		key := entry.Key()
		if key == "" {
			continue
		}
		if pos, seen := s.index[key]; seen {
			// Duplicate key: the most recently written version wins but
			// keeps the original discovery position.
			s.entries[pos] = entry
			continue
		}
		s.index[key] = len(s.entries)
		s.entries = append(s.entries, entry)
	}
	for _, page := range snap.ProcessedPages {
		s.processedPages[page] = struct{}{}
	}
	if snap.LastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, snap.LastUpdated); err == nil {
			s.lastUpdated = ts
		}
	}

	s.logger.Debug("loaded catalog snapshot",
		logging.Int("entry_count", len(s.entries)),
		logging.Int("processed_pages", len(s.processedPages)),
		logging.String("path", path))
	return s, nil
}

// Len returns the number of entries in the store.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns the entries in discovery order. The slice is a copy; use
// Merge to change the store.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with the given key.
func (s *Store) Get(key string) (Entry, bool) {
	pos, ok := s.index[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[pos], true
}

// Insert adds a newly discovered entry. It reports whether the entry was
// actually added; an existing key is left untouched so re-discovery stays
// idempotent.
func (s *Store) Insert(entry Entry) (bool, error) {
	key := entry.Key()
	if key == "" {
		return false, errors.New("entry key cannot be empty")
	}
	if _, exists := s.index[key]; exists {
		return false, nil
	}
	entry.URL = key
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry)
	return true, nil
}

// Merge applies a partial field update to the entry with the given key.
func (s *Store) Merge(key string, update FieldUpdate) error {
	pos, ok := s.index[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, key)
	}
	update.apply(&s.entries[pos])
	return nil
}

// PageProcessed reports skip-set membership for a page.
func (s *Store) PageProcessed(page int) bool {
	_, ok := s.processedPages[page]
	return ok
}

// MarkPageProcessed adds a page to the skip-set.
func (s *Store) MarkPageProcessed(page int) {
	s.processedPages[page] = struct{}{}
}

// UnmarkPageProcessed removes a page from the skip-set so it is revisited on
// the next run.
func (s *Store) UnmarkPageProcessed(page int) {
	delete(s.processedPages, page)
}

// ProcessedPages returns the skip-set in ascending order.
func (s *Store) ProcessedPages() []int {
	pages := make([]int, 0, len(s.processedPages))
	for page := range s.processedPages {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// LastUpdated returns the advisory timestamp recorded by the last Persist.
func (s *Store) LastUpdated() time.Time {
	return s.lastUpdated
}

// Persist atomically writes the full snapshot. Every stage calls this after
// each successfully processed unit, so an interruption loses at most the
// in-flight unit.
func (s *Store) Persist() error {
	s.lastUpdated = time.Now().UTC().Truncate(time.Second)
	snap := snapshot{
		Episodes:       s.entries,
		ProcessedPages: s.ProcessedPages(),
		LastUpdated:    s.lastUpdated.Format(time.RFC3339),
	}
	if snap.Episodes == nil {
		snap.Episodes = []Entry{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp snapshot: %w", err)
	}
	return nil
}
