package resolve

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/wikidata"
)

func itemClaim(id string) wikidata.Claim {
	return wikidata.Claim{MainSnak: &wikidata.Snak{
		SnakType: "value",
		DataType: "wikibase-item",
		DataValue: &wikidata.DataValue{
			Value: json.RawMessage(`{"id":"` + id + `","entity-type":"item"}`),
		},
	}}
}

func TestSummary_Memoized(t *testing.T) {
	source := &stubSource{entities: map[string]*wikidata.RawEntity{
		"Q42": labeledEntity("Q42", "Douglas Adams"),
	}}
	r := newTestResolver(source)

	first := r.Summary(context.Background(), "Q42")
	second := r.Summary(context.Background(), "Q42")
	if first != second {
		t.Error("Expected memoized summary to be reused")
	}
	if source.fetches != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", source.fetches)
	}
	if first.Label != "Douglas Adams" {
		t.Errorf("Unexpected label: %q", first.Label)
	}
}

func TestSummary_MissingEntityKeepsOverrideLabel(t *testing.T) {
	r := newTestResolver(&stubSource{})
	r.SetLabelOverride("Q404", "lost entity")

	summary := r.Summary(context.Background(), "Q404")
	if summary == nil || summary.Label != "lost entity" {
		t.Errorf("Expected override label on unfetchable entity, got %+v", summary)
	}
}

func TestSummary_InstanceOfAndCoordinates(t *testing.T) {
	city := labeledEntity("Q64", "Berlin")
	city.Claims = map[string][]wikidata.Claim{
		"P31": {itemClaim("Q515")},
		"P625": {{MainSnak: &wikidata.Snak{
			SnakType:  "value",
			DataType:  "globe-coordinate",
			DataValue: &wikidata.DataValue{Value: json.RawMessage(`{"latitude":52.5,"longitude":13.4}`)},
		}}},
		// Properties outside the summary set stay out of summaries.
		"P1082": {{MainSnak: &wikidata.Snak{
			SnakType:  "value",
			DataType:  "quantity",
			DataValue: &wikidata.DataValue{Value: json.RawMessage(`{"amount":"+3700000","unit":"1"}`)},
		}}},
	}
	source := &stubSource{entities: map[string]*wikidata.RawEntity{
		"Q64":  city,
		"Q515": labeledEntity("Q515", "metropolis"),
	}}
	r := newTestResolver(source)

	summary := r.Summary(context.Background(), "Q64")
	if len(summary.InstanceOf) != 1 || summary.InstanceOf[0] != "metropolis" {
		t.Errorf("Unexpected instance-of labels: %v", summary.InstanceOf)
	}
	if _, ok := summary.Properties["P625"]; !ok {
		t.Error("Expected coordinate location in summary")
	}
	if _, ok := summary.Properties["P1082"]; ok {
		t.Error("Expected population to stay out of summary")
	}
}

func TestSummary_NormalizesEntityURI(t *testing.T) {
	source := &stubSource{entities: map[string]*wikidata.RawEntity{
		"Q42": labeledEntity("Q42", "Douglas Adams"),
	}}
	r := newTestResolver(source)

	summary := r.Summary(context.Background(), "http://www.wikidata.org/entity/Q42")
	if summary.Label != "Douglas Adams" {
		t.Errorf("Expected URI key to be normalized, got %+v", summary)
	}
}

func TestLabel_OverrideWinsWithoutFetch(t *testing.T) {
	source := &stubSource{}
	r := newTestResolver(source)
	r.SetLabelOverride("P569", "date of birth")

	if label := r.Label(context.Background(), "P569"); label != "date of birth" {
		t.Errorf("Unexpected label: %q", label)
	}
	if source.fetches != 0 {
		t.Errorf("Expected no fetches for overridden label, got %d", source.fetches)
	}
}

func TestLabel_FailureMemoizedAsEmpty(t *testing.T) {
	source := &stubSource{}
	r := newTestResolver(source)

	if label := r.Label(context.Background(), "Q404"); label != "" {
		t.Errorf("Expected empty label, got %q", label)
	}
	_ = r.Label(context.Background(), "Q404")
	if source.fetches != 1 {
		t.Errorf("Expected failed lookup to be memoized, got %d fetches", source.fetches)
	}
}

func TestSeed_PreemptsFetch(t *testing.T) {
	source := &stubSource{}
	r := newTestResolver(source)
	r.Seed("P19", &model.EntitySummary{Label: "place of birth"})

	summary := r.Summary(context.Background(), "P19")
	if summary.Label != "place of birth" {
		t.Errorf("Unexpected label: %q", summary.Label)
	}
	if source.fetches != 0 {
		t.Errorf("Expected seeded summary to skip the network, got %d fetches", source.fetches)
	}
}

func TestDecoratePlace_AppendsRegionAndCountry(t *testing.T) {
	town := labeledEntity("Q1", "Springfield")
	town.Claims = map[string][]wikidata.Claim{
		"P31":  {itemClaim("Q3957")},
		"P131": {itemClaim("Q2")},
		"P17":  {itemClaim("Q30")},
	}
	county := labeledEntity("Q2", "Sangamon County")
	county.Claims = map[string][]wikidata.Claim{
		"P131": {itemClaim("Q3")},
	}
	source := &stubSource{entities: map[string]*wikidata.RawEntity{
		"Q1":    town,
		"Q2":    county,
		"Q3":    labeledEntity("Q3", "Illinois"),
		"Q30":   labeledEntity("Q30", "United States of America"),
		"Q3957": labeledEntity("Q3957", "town"),
	}}
	r := newTestResolver(source)

	summary := r.Summary(context.Background(), "Q1")
	if summary.Label != "Springfield, Illinois, US" {
		t.Errorf("Unexpected decorated label: %q", summary.Label)
	}
}

func TestDecoratePlace_SkipsNonPlaces(t *testing.T) {
	person := labeledEntity("Q42", "Douglas Adams")
	person.Claims = map[string][]wikidata.Claim{
		"P31": {itemClaim("Q5")},
		"P17": {itemClaim("Q145")},
	}
	source := &stubSource{entities: map[string]*wikidata.RawEntity{
		"Q42":  person,
		"Q5":   labeledEntity("Q5", "human"),
		"Q145": labeledEntity("Q145", "United Kingdom"),
	}}
	r := newTestResolver(source)

	summary := r.Summary(context.Background(), "Q42")
	if summary.Label != "Douglas Adams" {
		t.Errorf("Expected undecorated label for non-places, got %q", summary.Label)
	}
}
