// Package store persists normalized entity documents and the derived
// artifacts built from them: the entity index, the location and search
// indexes and the tab-separated export lists.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/model"
)

const (
	// IndexFile holds the flat entity index.
	IndexFile = "entity_list.json"
	// LocationsFile holds the extracted location index.
	LocationsFile = "location_information.json"
	// SearchFile holds the flattened search index.
	SearchFile = "search_index.json"
	// SiteFile holds the copy of the site configuration a run was built from.
	SiteFile = "site.json"
)

var entityFilePattern = regexp.MustCompile(`^Q[0-9]+\.json$`)

// Store reads and writes the data directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a store rooted at dir, creating it when absent.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string { return s.dir }

// Path returns the path of a file inside the data directory.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// WriteJSON persists any value as a pretty-printed JSON artifact.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteSiteCopy persists the site configuration next to the built
// documents so the published site can serve it back.
func (s *Store) WriteSiteCopy(data []byte) error {
	if err := os.WriteFile(s.Path(SiteFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", SiteFile, err)
	}
	return nil
}

// WriteDocument persists one entity document as {id}.json.
func (s *Store) WriteDocument(doc *model.EntityDocument) error {
	return s.WriteJSON(doc.ID+".json", doc)
}

// ReadDocument loads one entity document by id.
func (s *Store) ReadDocument(id string) (*model.EntityDocument, error) {
	data, err := os.ReadFile(s.Path(id + ".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	var doc model.EntityDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &doc, nil
}

// Documents lists the ids of every persisted entity document, sorted.
func (s *Store) Documents() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entityFilePattern.MatchString(entry.Name()) {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadIndex loads the entity index, which is empty when absent.
func (s *Store) ReadIndex() ([]model.IndexEntry, error) {
	data, err := os.ReadFile(s.Path(IndexFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	var index []model.IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return index, nil
}

// WriteIndex persists the entity index.
func (s *Store) WriteIndex(index []model.IndexEntry) error {
	return s.WriteJSON(IndexFile, index)
}

// UpdateIndex replaces the row with the entry's id, or appends the entry
// when no such row exists, then persists the index.
func (s *Store) UpdateIndex(entry model.IndexEntry) error {
	index, err := s.ReadIndex()
	if err != nil {
		return err
	}
	replaced := false
	for i := range index {
		if index[i].ID == entry.ID {
			index[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, entry)
	}
	return s.WriteIndex(index)
}

func sortedGroupKeys(groups map[string]model.PropertyGroup) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// HasImage reports whether a converted image artifact exists for the entity.
func (s *Store) HasImage(id string) bool {
	_, err := os.Stat(s.Path(id + ".jpg"))
	return err == nil
}

// Reset removes every generated artifact: entity documents, converted
// images and the index.
func (s *Store) Reset() error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list data dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		remove := entityFilePattern.MatchString(name) ||
			strings.HasSuffix(name, ".jpg") ||
			name == IndexFile || name == LocationsFile || name == SearchFile
		if !remove {
			continue
		}
		if err := os.Remove(s.Path(name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	s.logger.Info("data dir reset", zap.String("dir", s.dir))
	return nil
}
