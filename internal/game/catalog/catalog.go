// Package catalog loads named die definitions from YAML files.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/polydie/internal/game/dice"
)

// ErrNotFound is returned when a catalog lookup yields no entry.
var ErrNotFound = errors.New("die not found in catalog")

// Entry is one named die definition.
//
// Faces is kept as the raw decoded YAML scalar so that "faces: 4.0" is
// rejected as a non-integer instead of being silently truncated.
type Entry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Faces       any    `yaml:"faces"`
}

// Die builds the die the entry describes.
//
// Postcondition: Returns a Die, or an error matching dice.ErrType or dice.ErrValue.
func (e *Entry) Die() (dice.Die, error) {
	d, err := dice.NewDieFromValue(e.Faces)
	if err != nil {
		return dice.Die{}, fmt.Errorf("catalog entry %q: %w", e.ID, err)
	}
	return d, nil
}

// LoadDir reads all .yaml files in dir and parses each as an Entry.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed entries (may be empty slice) or a non-nil error.
func LoadDir(dir string) ([]*Entry, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var e Entry
		if err := yaml.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parsing die file %s: %w", path, err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// DefaultEntries returns the standard polyhedral set plus the degenerate d0.
func DefaultEntries() []*Entry {
	faces := []int{0, 1, 2, 4, 6, 8, 10, 12, 20, 100}
	entries := make([]*Entry, 0, len(faces))
	for _, n := range faces {
		entries = append(entries, &Entry{
			ID:    fmt.Sprintf("d%d", n),
			Name:  fmt.Sprintf("%d-sided die", n),
			Faces: n,
		})
	}
	entries[0].Description = "degenerate die; always rolls 0"
	entries[2].Description = "coin"
	entries[len(entries)-1].Description = "percentile die"
	return entries
}

// Registry is an immutable, validated index of catalog dice by ID.
type Registry struct {
	entries map[string]*Entry
	dice    map[string]dice.Die
}

// NewRegistry validates entries and indexes them by ID. IDs are matched
// case-insensitively.
//
// Postcondition: Returns a Registry or an error naming every empty ID,
// duplicate ID, and invalid face count.
func NewRegistry(entries []*Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]*Entry, len(entries)),
		dice:    make(map[string]dice.Die, len(entries)),
	}
	var errs []string
	for _, e := range entries {
		id := normalizeID(e.ID)
		if id == "" {
			errs = append(errs, fmt.Sprintf("entry %q has empty id", e.Name))
			continue
		}
		if _, dup := r.entries[id]; dup {
			errs = append(errs, fmt.Sprintf("duplicate id %q", id))
			continue
		}
		d, err := e.Die()
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		r.entries[id] = e
		r.dice[id] = d
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return r, nil
}

// Get returns the entry and die registered under id.
//
// Postcondition: Returns ErrNotFound when id is unknown.
func (r *Registry) Get(id string) (*Entry, dice.Die, error) {
	key := normalizeID(id)
	e, ok := r.entries[key]
	if !ok {
		return nil, dice.Die{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return e, r.dice[key], nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// All returns every entry sorted by ID.
func (r *Registry) All() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered dice.
func (r *Registry) Len() int {
	return len(r.entries)
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
