package model

import "encoding/json"

// Kind identifies the datatype of a resolved claim value. The set mirrors the
// upstream snak datatypes and is closed: every consumer switches exhaustively
// over it.
type Kind string

const (
	KindString        Kind = "string"
	KindMonolingual   Kind = "monolingualtext"
	KindExternalID    Kind = "external-id"
	KindURL           Kind = "url"
	KindTime          Kind = "time"
	KindQuantity      Kind = "quantity"
	KindCoordinate    Kind = "globe-coordinate"
	KindGeoShape      Kind = "geo-shape"
	KindMedia         Kind = "commonsMedia"
	KindItem          Kind = "wikibase-item"
	KindProperty      Kind = "wikibase-property"
	KindLexemeForm    Kind = "wikibase-form"
)

// Kinds lists every valid value kind.
var Kinds = []Kind{
	KindString, KindMonolingual, KindExternalID, KindURL, KindTime,
	KindQuantity, KindCoordinate, KindGeoShape, KindMedia, KindItem,
	KindProperty, KindLexemeForm,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsReference reports whether the kind cross-references another graph node
// and therefore must carry a non-empty Id.
func (k Kind) IsReference() bool {
	return k == KindItem || k == KindProperty || k == KindLexemeForm
}

// Value is the resolved form of one claim. It is a tagged union in wire form:
// Kind is always set and only the fields relevant to that kind are populated.
// The JSON field names match the persisted document format consumed by the
// site, so documents written by this tool and by earlier loaders compare
// byte-for-byte after normalization.
type Value struct {
	Kind Kind `json:"value-type"`

	// Text carries the display form for most kinds.
	Text string `json:"text,omitempty"`

	// Id and Data are set for cross-reference kinds (item, property, form).
	Id   string         `json:"id,omitempty"`
	Data *EntitySummary `json:"data,omitempty"`

	// Time extras.
	CalendarModel *EntitySummary `json:"calendar-model,omitempty"`
	Timezone      *int           `json:"timezone,omitempty"`

	// Coordinate fields.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Quantity fields.
	Amount string         `json:"amount,omitempty"`
	Unit   *EntitySummary `json:"unit,omitempty"`

	// Name is the raw identifier for media and geo-shape values.
	Name string `json:"name,omitempty"`

	// GeoShape holds the fetched shape revision as an opaque blob.
	GeoShape json.RawMessage `json:"geo-shape,omitempty"`

	// ImageInfo holds descriptor metadata for media values.
	ImageInfo []ImageInfo `json:"image-info,omitempty"`

	// Qualifiers annotate the value; References carry provenance. Both are
	// attached only when the build profile requests full provenance.
	Qualifiers []PropertyGroup   `json:"qualifiers,omitempty"`
	References [][]PropertyGroup `json:"references,omitempty"`

	// Status is set transiently by the differ, never by the builder.
	Status string `json:"status,omitempty"`
}

// ImageInfo describes one binary media asset.
type ImageInfo struct {
	URL    string `json:"url,omitempty"`
	Mime   string `json:"mime,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Name   string `json:"name,omitempty"`
}

// EntitySummary is the depth-limited resolution of a cross-referenced entity:
// its label, what it is an instance of, and a small fixed set of value-bearing
// properties (currently coordinate location). Recursion stops here.
type EntitySummary struct {
	Label      string                   `json:"label,omitempty"`
	InstanceOf []string                 `json:"instance_of,omitempty"`
	Properties map[string]PropertyGroup `json:"properties,omitempty"`
}
