// Package wikidata fetches and caches raw entity documents from the upstream
// knowledge graph, along with media descriptors, geo-shapes, query results,
// and externally hosted feed files.
package wikidata

import "encoding/json"

// RawEntity is the upstream representation of one graph node. It is immutable
// once fetched; the cache owns the canonical copy.
type RawEntity struct {
	ID              string               `json:"id"`
	Modified        string               `json:"modified"`
	Labels          map[string]LangValue `json:"labels"`
	Descriptions    map[string]LangValue `json:"descriptions"`
	Representations map[string]LangValue `json:"representations"`
	Claims          map[string][]Claim   `json:"claims"`
}

// LangValue is a per-language text value.
type LangValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// EnglishLabel returns the English label, falling back to the English lexeme
// form representation.
func (e *RawEntity) EnglishLabel() string {
	if v, ok := e.Labels["en"]; ok {
		return v.Value
	}
	if v, ok := e.Representations["en"]; ok {
		return v.Value
	}
	return ""
}

// EnglishDescription returns the English description, or "".
func (e *RawEntity) EnglishDescription() string {
	if v, ok := e.Descriptions["en"]; ok {
		return v.Value
	}
	return ""
}

// Claim is one typed assertion about an entity: a main snak plus optional
// qualifier and reference snaks.
type Claim struct {
	MainSnak        *Snak             `json:"mainsnak"`
	Qualifiers      map[string][]Snak `json:"qualifiers"`
	QualifiersOrder []string          `json:"qualifiers-order"`
	References      []Reference       `json:"references"`
}

// Reference is one provenance record attached to a claim.
type Reference struct {
	Snaks      map[string][]Snak `json:"snaks"`
	SnaksOrder []string          `json:"snaks-order"`
}

// Snak is the smallest unit of assertion: a datatype tag plus a raw value.
type Snak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property"`
	DataType  string     `json:"datatype"`
	DataValue *DataValue `json:"datavalue"`
}

// NoValue reports whether the source explicitly marked this snak as having
// no value. That absence is expected and never logged as an error.
func (s *Snak) NoValue() bool {
	return s.SnakType == "novalue"
}

// DataValue carries the undecoded payload of a snak.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Typed datavalue payloads. Each decode helper tolerates a missing datavalue
// and returns ok=false rather than an error.

// EntityIDValue is the payload of item/property/form references.
type EntityIDValue struct {
	ID         string `json:"id"`
	EntityType string `json:"entity-type"`
}

// TimeValue is the payload of time snaks.
type TimeValue struct {
	Time          string `json:"time"`
	Timezone      int    `json:"timezone"`
	CalendarModel string `json:"calendarmodel"`
}

// CoordinateValue is the payload of globe-coordinate snaks.
type CoordinateValue struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// QuantityValue is the payload of quantity snaks. Unit is either "1" for
// dimensionless amounts or an entity URI.
type QuantityValue struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// MonolingualValue is the payload of monolingual text snaks.
type MonolingualValue struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func decode[T any](s *Snak) (T, bool) {
	var out T
	if s == nil || s.DataValue == nil || len(s.DataValue.Value) == 0 {
		return out, false
	}
	if err := json.Unmarshal(s.DataValue.Value, &out); err != nil {
		return out, false
	}
	return out, true
}

// StringValue decodes a plain string payload (string, url, external-id,
// geo-shape, commonsMedia datatypes).
func (s *Snak) StringValue() (string, bool) {
	return decode[string](s)
}

// EntityID decodes an entity reference payload.
func (s *Snak) EntityID() (EntityIDValue, bool) {
	return decode[EntityIDValue](s)
}

// Time decodes a time payload.
func (s *Snak) Time() (TimeValue, bool) {
	return decode[TimeValue](s)
}

// Coordinate decodes a globe-coordinate payload.
func (s *Snak) Coordinate() (CoordinateValue, bool) {
	return decode[CoordinateValue](s)
}

// Quantity decodes a quantity payload.
func (s *Snak) Quantity() (QuantityValue, bool) {
	return decode[QuantityValue](s)
}

// Monolingual decodes a monolingual text payload.
func (s *Snak) Monolingual() (MonolingualValue, bool) {
	return decode[MonolingualValue](s)
}

// QueryResult is one row of a declarative query: an entity id plus its label.
type QueryResult struct {
	ID    string
	Label string
}
