package store

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/exhibitkit/constellate/internal/model"
)

// LocationProperty links one entity to the coordinate it contributed.
type LocationProperty struct {
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name"`
	EntityID     string `json:"entity_id"`
	EntityName   string `json:"entity_name"`
}

// Location is one row of the location index: a place with coordinates and
// the entities whose properties point at it.
type Location struct {
	Label            string             `json:"label"`
	EntityProperties []LocationProperty `json:"entity_properties"`
	Latitude         float64            `json:"lat"`
	Longitude        float64            `json:"long"`
}

var titleCaser = cases.Title(language.English)

// CoordinateLocationKey is the summary property carrying place coordinates.
const CoordinateLocationKey = "P625"

// ExtractLocations walks every persisted document and collects the places
// referenced by coordinate-bearing item values, keyed by the referenced
// entity's id. Each referencing property contributes one row naming the
// entity and the title-cased property it came through.
func (s *Store) ExtractLocations() error {
	ids, err := s.Documents()
	if err != nil {
		return err
	}

	locations := make(map[string]*Location)
	for _, id := range ids {
		doc, err := s.ReadDocument(id)
		if err != nil {
			return err
		}
		for _, key := range sortedGroupKeys(doc.Properties) {
			group := doc.Properties[key]
			propertyName := group.Key
			if group.Property != nil && group.Property.Label != "" {
				propertyName = titleCaser.String(group.Property.Label)
			}
			for _, value := range group.Values {
				if value.Kind != model.KindItem {
					continue
				}
				coordinate := placeCoordinate(&value)
				if coordinate == nil {
					continue
				}
				location, seen := locations[value.Id]
				if !seen {
					location = &Location{
						Label:     value.Text,
						Latitude:  *coordinate.Latitude,
						Longitude: *coordinate.Longitude,
					}
					locations[value.Id] = location
				}
				location.EntityProperties = append(location.EntityProperties, LocationProperty{
					PropertyID:   group.Key,
					PropertyName: propertyName,
					EntityID:     doc.ID,
					EntityName:   doc.Label,
				})
			}
		}
	}
	return s.WriteJSON(LocationsFile, locations)
}

// placeCoordinate finds the first coordinate in the referenced entity
// summary's coordinate-location property.
func placeCoordinate(value *model.Value) *model.Value {
	if value.Data == nil {
		return nil
	}
	group, ok := value.Data.Properties[CoordinateLocationKey]
	if !ok {
		return nil
	}
	for i := range group.Values {
		candidate := &group.Values[i]
		if candidate.Kind == model.KindCoordinate && candidate.Latitude != nil && candidate.Longitude != nil {
			return candidate
		}
	}
	return nil
}
