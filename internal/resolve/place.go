package resolve

import (
	"context"
	"strings"

	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/wikidata"
)

const (
	locatedInProperty = "P131"
	countryProperty   = "P17"

	// maxLocatedInHops bounds the administrative containment walk.
	maxLocatedInHops = 5
)

// populatedPlaceKeywords mark instance-of labels whose entities get
// administrative context appended to their label.
var populatedPlaceKeywords = []string{
	"city", "town", "borough", "island", "county", "neighborhood", "state", "place",
}

// skipRegionKeywords mark intermediate administrative levels that are walked
// through rather than displayed.
var skipRegionKeywords = []string{"county", "region", "parish", "district"}

// countryCodes substitutes short codes for long-form country names.
var countryCodes = map[string]string{
	"United States of America": "US",
	"United Kingdom":           "UK",
}

// decoratePlace appends ", region, country" to the summary label of
// populated places so that bare town names stay distinguishable in lists.
func (r *Resolver) decoratePlace(ctx context.Context, entity *wikidata.RawEntity, summary *model.EntitySummary) {
	if summary.Label == "" || !isPopulatedPlace(summary.InstanceOf) {
		return
	}

	parts := []string{summary.Label}
	if region := r.containingRegion(ctx, entity); region != "" {
		parts = appendDistinct(parts, region)
	}
	if country := r.countryLabel(ctx, entity); country != "" {
		if code, ok := countryCodes[country]; ok {
			country = code
		}
		parts = appendDistinct(parts, country)
	}
	summary.Label = strings.Join(parts, ", ")
}

func isPopulatedPlace(instanceOf []string) bool {
	for _, label := range instanceOf {
		lower := strings.ToLower(label)
		for _, keyword := range populatedPlaceKeywords {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
	}
	return false
}

// containingRegion walks the located-in chain upward, skipping levels whose
// labels look like intermediate administrative divisions, and returns the
// first region worth displaying.
func (r *Resolver) containingRegion(ctx context.Context, entity *wikidata.RawEntity) string {
	current := entity
	for hop := 0; hop < maxLocatedInHops; hop++ {
		parentID := firstItemRef(current, locatedInProperty)
		if parentID == "" {
			return ""
		}
		parent, err := r.source.Entity(ctx, parentID)
		if err != nil {
			return ""
		}
		label := r.labelFor(parent)
		if label != "" && !matchesAny(label, skipRegionKeywords) {
			return label
		}
		current = parent
	}
	return ""
}

func (r *Resolver) countryLabel(ctx context.Context, entity *wikidata.RawEntity) string {
	countryID := firstItemRef(entity, countryProperty)
	if countryID == "" {
		return ""
	}
	return r.Label(ctx, countryID)
}

// firstItemRef returns the id referenced by the first item-valued claim of
// key on entity, or "".
func firstItemRef(entity *wikidata.RawEntity, key string) string {
	for _, claim := range entity.Claims[key] {
		snak := claim.MainSnak
		if snak == nil || snak.DataType != string(model.KindItem) {
			continue
		}
		if ref, ok := snak.EntityID(); ok && ref.ID != "" {
			return ref.ID
		}
	}
	return ""
}

func matchesAny(label string, keywords []string) bool {
	lower := strings.ToLower(label)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func appendDistinct(parts []string, part string) []string {
	for _, existing := range parts {
		if existing == part {
			return parts
		}
	}
	return append(parts, part)
}
