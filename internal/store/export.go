package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/exhibitkit/constellate/internal/model"
)

// Export file names. The lists are tab-separated so they can be edited and
// fed back in as curation feeds.
const (
	EntityListExport   = "entity_list.csv"
	ImageListExport    = "all_images_list.csv"
	PropertyListExport = "all_properties_list.csv"
)

// ExportLists derives the editable curation lists from the persisted
// documents: every entity with its label, every media file referenced by
// any entity, and every property key in use, including the keys of nested
// summary properties, with its label.
func (s *Store) ExportLists(dir string) error {
	ids, err := s.Documents()
	if err != nil {
		return err
	}

	entityLines := []string{"entity id\tlabel"}
	imageLines := []string{"entity id\tlabel\timage name"}
	properties := make(map[string]string)
	for _, id := range ids {
		doc, err := s.ReadDocument(id)
		if err != nil {
			return err
		}
		entityLines = append(entityLines, doc.ID+"\t"+doc.Label)
		for _, key := range sortedGroupKeys(doc.Properties) {
			group := doc.Properties[key]
			label := ""
			if group.Property != nil {
				label = group.Property.Label
			}
			properties[group.Key] = label
			for _, value := range group.Values {
				if value.Data != nil {
					for _, nestedKey := range sortedGroupKeys(value.Data.Properties) {
						nested := value.Data.Properties[nestedKey]
						nestedLabel := ""
						if nested.Property != nil {
							nestedLabel = nested.Property.Label
						}
						properties[nested.Key] = nestedLabel
					}
				}
				if value.Kind == model.KindMedia && value.Name != "" {
					imageLines = append(imageLines, doc.ID+"\t"+doc.Label+"\t"+value.Name)
				}
			}
		}
	}

	propertyLines := make([]string, 0, len(properties))
	for key, label := range properties {
		propertyLines = append(propertyLines, key+"\t"+label)
	}
	sort.Strings(propertyLines)
	propertyLines = append([]string{"property id\tlabel"}, propertyLines...)

	exports := map[string][]string{
		EntityListExport:   entityLines,
		ImageListExport:    imageLines,
		PropertyListExport: propertyLines,
	}
	for name, lines := range exports {
		path := filepath.Join(dir, name)
		content := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
