package diff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/exhibitkit/constellate/internal/model"
)

// ClearDocument strips every status marker from a document, deleting the
// property groups and publications the markers tombstoned. Clearing a
// freshly diffed document yields the state a publish would leave behind.
func ClearDocument(doc *model.EntityDocument) {
	doc.Status = ""
	doc.LabelStatus = ""
	doc.DescriptionStatus = ""
	doc.BiographyStatus = ""
	if doc.PublicationsStatus == model.StatusRemoved {
		doc.Publications = nil
	}
	doc.PublicationsStatus = ""

	for key, group := range doc.Properties {
		if group.Status == model.StatusRemoved {
			delete(doc.Properties, key)
			continue
		}
		group.Status = ""
		for i := range group.Values {
			group.Values[i].Status = ""
		}
		doc.Properties[key] = group
	}
}

// ClearIndex strips status markers from index rows, dropping the rows
// tombstoned as removed.
func ClearIndex(index []model.IndexEntry) []model.IndexEntry {
	cleared := index[:0]
	for _, entry := range index {
		if entry.Status == model.StatusRemoved {
			continue
		}
		entry.Status = ""
		cleared = append(cleared, entry)
	}
	return cleared
}

// ClearJSON strips status markers from an arbitrary decoded JSON tree,
// removing any object tombstoned as removed along with the sibling fields
// its *Status markers tombstone. It returns the cleared tree and whether
// the node itself survives.
func ClearJSON(node any) (any, bool) {
	switch typed := node.(type) {
	case map[string]any:
		if typed["status"] == model.StatusRemoved {
			return nil, false
		}
		delete(typed, "status")
		for key, value := range typed {
			if strings.HasSuffix(key, "Status") {
				if value == model.StatusRemoved {
					delete(typed, strings.TrimSuffix(key, "Status"))
				}
				delete(typed, key)
				continue
			}
			cleared, keep := ClearJSON(value)
			if !keep {
				delete(typed, key)
				continue
			}
			typed[key] = cleared
		}
		return typed, true
	case []any:
		cleared := typed[:0]
		for _, element := range typed {
			if value, keep := ClearJSON(element); keep {
				cleared = append(cleared, value)
			}
		}
		return cleared, true
	default:
		return node, true
	}
}

// ClearDir clears the status markers of every JSON artifact in dir,
// rewriting each file in place.
func ClearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var node any
		if err := json.Unmarshal(data, &node); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		node, _ = ClearJSON(node)
		cleared, err := json.MarshalIndent(node, "", "    ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		if err := os.WriteFile(path, cleared, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
