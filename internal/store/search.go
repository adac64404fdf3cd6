package store

import (
	"regexp"
	"strings"

	"github.com/exhibitkit/constellate/internal/model"
)

// SearchEntry is one row of the flattened search index: every searchable
// text fragment of one entity, joined for substring matching.
type SearchEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

var yearPattern = regexp.MustCompile(`^[+-]?(\d{4})`)

// BuildSearchIndex flattens every persisted document into one searchable
// text blob per entity and persists the result.
func (s *Store) BuildSearchIndex() error {
	ids, err := s.Documents()
	if err != nil {
		return err
	}

	entries := make([]SearchEntry, 0, len(ids))
	for _, id := range ids {
		doc, err := s.ReadDocument(id)
		if err != nil {
			return err
		}
		entries = append(entries, SearchEntry{
			ID:    doc.ID,
			Label: doc.Label,
			Text:  flattenDocument(doc),
		})
	}
	return s.WriteJSON(SearchFile, entries)
}

// flattenDocument collects every human-searchable fragment of a document.
func flattenDocument(doc *model.EntityDocument) string {
	var fragments []string
	add := func(fragment string) {
		fragment = strings.TrimSpace(fragment)
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
	}

	add(doc.Label)
	add(doc.Description)
	for _, publication := range doc.Publications {
		add(publication.Title)
		add(publication.Journal)
		add(publication.Authors)
	}
	for _, key := range sortedGroupKeys(doc.Properties) {
		group := doc.Properties[key]
		if group.Property != nil {
			add(group.Property.Label)
		}
		for i := range group.Values {
			add(searchText(&group.Values[i]))
		}
	}
	return strings.Join(fragments, " ")
}

// searchText extracts the searchable fragment of one value by kind. Times
// contribute just the year; references contribute their resolved label.
func searchText(value *model.Value) string {
	switch value.Kind {
	case model.KindString, model.KindMonolingual, model.KindExternalID, model.KindURL:
		return value.Text
	case model.KindItem, model.KindProperty, model.KindLexemeForm:
		return value.Text
	case model.KindTime:
		if match := yearPattern.FindStringSubmatch(value.Text); match != nil {
			return match[1]
		}
		return ""
	case model.KindQuantity:
		return value.Amount
	case model.KindMedia, model.KindGeoShape:
		return value.Name
	case model.KindCoordinate:
		return ""
	}
	return ""
}
