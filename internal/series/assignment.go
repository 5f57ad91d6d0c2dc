package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xeb/voxcatalog/internal/logging"
)

// Ungrouped is the reserved bucket name for episodes that belong to no series.
const Ungrouped = "INDEPENDENT"

var (
	// ErrCorruptAssignment indicates the persisted grouping file exists but
	// cannot be parsed.
	ErrCorruptAssignment = errors.New("corrupt series assignment")
	// ErrPositionConflict indicates an episode number inside a series is
	// already taken by a different entry.
	ErrPositionConflict = errors.New("series position already assigned")
)

// Assignment holds the series grouping: a flat list of ungrouped entry keys
// plus, per named series, a map from episode position to entry key. Every key
// appears at most once across the whole assignment. Not safe for concurrent
// use.
type Assignment struct {
	path      string
	logger    *slog.Logger
	ungrouped []string
	groups    map[string]map[int]string
}

// LoadAssignment reads the grouping file at path. A missing file yields an
// empty assignment. Older files stored the ungrouped bucket as a numbered map;
// those are normalized to the list form and rewritten in place.
func LoadAssignment(path string, logger *slog.Logger) (*Assignment, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Assignment{
		path:   path,
		logger: logging.NewComponentLogger(logger, "series"),
		groups: make(map[string]map[int]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.logger.Debug("no series assignment, starting empty", logging.String("path", path))
			return a, nil
		}
		return nil, fmt.Errorf("read series assignment: %w", err)
	}
	if len(data) == 0 {
		return a, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptAssignment, path, err)
	}

	migrated := false
	for name, value := range raw {
		if name == Ungrouped {
			keys, wasLegacy, err := decodeUngrouped(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrCorruptAssignment, path, err)
			}
			a.ungrouped = keys
			migrated = migrated || wasLegacy
			continue
		}
		var positions map[string]string
		if err := json.Unmarshal(value, &positions); err != nil {
			return nil, fmt.Errorf("%w: %s: series %q: %v", ErrCorruptAssignment, path, name, err)
		}
		group := make(map[int]string, len(positions))
		for pos, key := range positions {
			n, err := strconv.Atoi(pos)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: series %q has non-numeric position %q", ErrCorruptAssignment, path, name, pos)
			}
			group[n] = key
		}
		a.groups[name] = group
	}

	if migrated {
		a.logger.Info("normalized legacy ungrouped bucket", logging.Int("entry_count", len(a.ungrouped)))
		if err := a.Save(); err != nil {
			return nil, err
		}
	}

	a.logger.Debug("loaded series assignment",
		logging.Int("series_count", len(a.groups)),
		logging.Int("ungrouped_count", len(a.ungrouped)),
		logging.String("path", path))
	return a, nil
}

// decodeUngrouped accepts both the current list form and the legacy numbered
// map form. Legacy values are ordered by their numeric position so migration
// is deterministic.
func decodeUngrouped(value json.RawMessage) ([]string, bool, error) {
	var keys []string
	if err := json.Unmarshal(value, &keys); err == nil {
		return keys, false, nil
	}
	var legacy map[string]string
	if err := json.Unmarshal(value, &legacy); err != nil {
		return nil, false, fmt.Errorf("ungrouped bucket is neither a list nor a map: %w", err)
	}
	positions := make([]int, 0, len(legacy))
	byPos := make(map[int]string, len(legacy))
	for pos, key := range legacy {
		n, err := strconv.Atoi(pos)
		if err != nil {
			return nil, false, fmt.Errorf("legacy ungrouped bucket has non-numeric position %q", pos)
		}
		positions = append(positions, n)
		byPos[n] = key
	}
	sort.Ints(positions)
	keys = make([]string, 0, len(positions))
	for _, n := range positions {
		keys = append(keys, byPos[n])
	}
	return keys, true, nil
}

// Contains reports whether the key is assigned anywhere, and if so where. A
// key in the ungrouped bucket reports series Ungrouped and position 0.
func (a *Assignment) Contains(key string) (seriesName string, position int, ok bool) {
	for _, k := range a.ungrouped {
		if k == key {
			return Ungrouped, 0, true
		}
	}
	for name, group := range a.groups {
		for pos, k := range group {
			if k == key {
				return name, pos, true
			}
		}
	}
	return "", 0, false
}

// AssignUngrouped places the key in the ungrouped bucket. Assigning a key
// that is already present anywhere is a no-op.
func (a *Assignment) AssignUngrouped(key string) {
	if _, _, ok := a.Contains(key); ok {
		return
	}
	a.ungrouped = append(a.ungrouped, key)
}

// AssignGroup places the key at the given position inside a named series.
// Returns ErrPositionConflict if the position is held by a different key.
// Assigning a key that is already present anywhere is a no-op, so exclusivity
// is preserved.
func (a *Assignment) AssignGroup(name string, position int, key string) error {
	if name == Ungrouped {
		a.AssignUngrouped(key)
		return nil
	}
	if _, _, ok := a.Contains(key); ok {
		return nil
	}
	group, exists := a.groups[name]
	if !exists {
		group = make(map[int]string)
		a.groups[name] = group
	}
	if held, taken := group[position]; taken && held != key {
		return fmt.Errorf("%w: %s #%d held by %s", ErrPositionConflict, name, position, held)
	}
	group[position] = key
	return nil
}

// UngroupedKeys returns the ungrouped bucket in assignment order.
func (a *Assignment) UngroupedKeys() []string {
	out := make([]string, len(a.ungrouped))
	copy(out, a.ungrouped)
	return out
}

// SeriesNames returns the named series sorted alphabetically.
func (a *Assignment) SeriesNames() []string {
	names := make([]string, 0, len(a.groups))
	for name := range a.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group returns a copy of the position map for a named series.
func (a *Assignment) Group(name string) map[int]string {
	group, ok := a.groups[name]
	if !ok {
		return nil
	}
	out := make(map[int]string, len(group))
	for pos, key := range group {
		out[pos] = key
	}
	return out
}

// Len returns the total number of assigned keys.
func (a *Assignment) Len() int {
	n := len(a.ungrouped)
	for _, group := range a.groups {
		n += len(group)
	}
	return n
}

// Save atomically writes the grouping file. Called after every accepted
// decision so an interruption loses at most the in-flight episode.
func (a *Assignment) Save() error {
	doc := make(map[string]any, len(a.groups)+1)
	ungrouped := a.ungrouped
	if ungrouped == nil {
		ungrouped = []string{}
	}
	doc[Ungrouped] = ungrouped
	for name, group := range a.groups {
		positions := make(map[string]string, len(group))
		for pos, key := range group {
			positions[strconv.Itoa(pos)] = key
		}
		doc[name] = positions
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal series assignment: %w", err)
	}

	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create assignment directory: %w", err)
		}
	}

	tmpPath := a.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp assignment: %w", err)
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp assignment: %w", err)
	}
	return nil
}

// JSONSummary renders the current assignment as indented JSON for inclusion
// in classification prompts.
func (a *Assignment) JSONSummary() string {
	doc := make(map[string]any, len(a.groups)+1)
	doc[Ungrouped] = append([]string{}, a.ungrouped...)
	for name, group := range a.groups {
		positions := make(map[string]string, len(group))
		for pos, key := range group {
			positions[strconv.Itoa(pos)] = key
		}
		doc[name] = positions
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
