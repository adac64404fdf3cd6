package resolve

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/wikidata"
)

// stripEntityURI removes the entity URI prefix from values that are
// documented to arrive as URIs (calendar models, quantity units).
func stripEntityURI(s string) string {
	return strings.Replace(s, entityURIPrefix, "", 1)
}

// ResolveSnak resolves one snak into a normalized value, dispatching on its
// datatype. It returns nil when the snak is dropped: silently for explicit
// no-value markers and allow-list filtered media, with an error log for
// genuinely malformed snaks. ownerID selects the media allow-list; depth
// bounds cross-reference resolution to one hop.
func (r *Resolver) ResolveSnak(ctx context.Context, snak *wikidata.Snak, ownerID string, depth int) *model.Value {
	if snak == nil {
		return nil
	}
	if snak.NoValue() {
		r.logger.Debug("no-value snak", zap.String("property", snak.Property))
		return nil
	}

	kind := model.Kind(snak.DataType)
	if !kind.Valid() {
		r.logger.Error("unknown datatype", zap.String("datatype", snak.DataType), zap.String("property", snak.Property))
		return nil
	}

	value := &model.Value{Kind: kind}
	switch kind {
	case model.KindString, model.KindExternalID, model.KindURL:
		text, _ := snak.StringValue()
		value.Text = text

	case model.KindMonolingual:
		mono, _ := snak.Monolingual()
		value.Text = mono.Text

	case model.KindItem, model.KindProperty, model.KindLexemeForm:
		ref, ok := snak.EntityID()
		if !ok || ref.ID == "" {
			r.logger.Error("id not found", zap.String("property", snak.Property))
			return nil
		}
		value.Id = ref.ID
		if depth == 0 {
			value.Data = r.Summary(ctx, ref.ID)
		} else {
			value.Data = &model.EntitySummary{Label: r.Label(ctx, ref.ID)}
		}
		value.Text = value.Data.Label

	case model.KindTime:
		t, _ := snak.Time()
		value.Text = t.Time
		if value.Text == "" {
			r.logger.Error("no time info", zap.String("property", snak.Property))
		}
		if t.CalendarModel != "" {
			calendarID := stripEntityURI(t.CalendarModel)
			if depth == 0 {
				value.CalendarModel = r.Summary(ctx, calendarID)
			} else {
				value.CalendarModel = &model.EntitySummary{Label: r.Label(ctx, calendarID)}
			}
		}
		if t.Timezone != 0 {
			tz := t.Timezone
			value.Timezone = &tz
		}

	case model.KindCoordinate:
		coord, ok := snak.Coordinate()
		if !ok {
			r.logger.Error("no coordinate info", zap.String("property", snak.Property))
			return nil
		}
		lat, lon := coord.Latitude, coord.Longitude
		value.Latitude = &lat
		value.Longitude = &lon

	case model.KindGeoShape:
		name, ok := snak.StringValue()
		if !ok || name == "" {
			r.logger.Error("no shape name", zap.String("property", snak.Property))
			return nil
		}
		value.Name = name
		shape, err := r.source.GeoShape(ctx, name)
		if err != nil {
			r.logger.Error("unable to fetch geo-shape", zap.String("name", name), zap.Error(err))
		} else {
			value.GeoShape = shape
		}

	case model.KindQuantity:
		quantity, ok := snak.Quantity()
		if !ok || quantity.Amount == "" {
			r.logger.Error("amount not found", zap.String("property", snak.Property))
			return nil
		}
		value.Amount = quantity.Amount
		if quantity.Unit != "" && quantity.Unit != "1" {
			unitID := stripEntityURI(quantity.Unit)
			if depth == 0 {
				value.Unit = r.Summary(ctx, unitID)
			} else {
				value.Unit = &model.EntitySummary{Label: r.Label(ctx, unitID)}
			}
		}

	case model.KindMedia:
		name, ok := snak.StringValue()
		if !ok || name == "" {
			return nil
		}
		if allowed := r.allowedImages[ownerID]; allowed != nil && !contains(allowed, name) {
			r.logger.Info("skipping image", zap.String("name", name))
			return nil
		}
		value.Name = name
		info, err := r.source.MediaInfo(ctx, name)
		if err != nil {
			r.logger.Error("unable to fetch media info", zap.String("name", name), zap.Error(err))
		}
		if len(info) > 0 && info[0].Mime == "image/tiff" {
			info[0].Name = name
			r.convertMedia(ctx, name, info)
		}
		value.ImageInfo = info
	}

	return value
}

// convertMedia rewrites the first descriptor to point at a converted JPEG
// artifact. Conversion failures keep the original descriptor.
func (r *Resolver) convertMedia(ctx context.Context, name string, info []model.ImageInfo) {
	if r.converter == nil {
		return
	}
	localURL, err := r.converter.Convert(ctx, name, info[0].URL)
	if err != nil {
		r.logger.Error("unable to convert image", zap.String("url", info[0].URL), zap.Error(err))
		return
	}
	info[0].URL = localURL
	info[0].Mime = "image/jpeg"
}

// ResolveClaims resolves every claim of the given property map into
// normalized property groups, applying the property allow-list and dropping
// groups that resolve to zero values. includeProvenance attaches qualifier
// and reference groups to each value.
func (r *Resolver) ResolveClaims(ctx context.Context, ownerID string, claims map[string][]wikidata.Claim, includeProvenance bool, depth int) map[string]model.PropertyGroup {
	groups := make(map[string]model.PropertyGroup)
	for _, key := range sortedKeys(claims) {
		if !r.PropertyAllowed(key) {
			continue
		}
		group := model.PropertyGroup{Key: key, Property: r.Summary(ctx, key)}
		for _, claim := range claims[key] {
			value := r.ResolveSnak(ctx, claim.MainSnak, ownerID, depth)
			if value == nil {
				continue
			}
			if includeProvenance {
				if qualifiers := r.resolveSnakGroups(ctx, claim.Qualifiers, claim.QualifiersOrder, depth); len(qualifiers) > 0 {
					value.Qualifiers = qualifiers
				}
				for _, reference := range claim.References {
					if snaks := r.resolveSnakGroups(ctx, reference.Snaks, reference.SnaksOrder, depth); len(snaks) > 0 {
						value.References = append(value.References, snaks)
					}
				}
			}
			group.Values = append(group.Values, *value)
		}
		if len(group.Values) > 0 {
			groups[key] = group
		}
	}
	return groups
}

// resolveSnakGroups resolves qualifier or reference snaks into ordered
// property groups. Empty groups are dropped.
func (r *Resolver) resolveSnakGroups(ctx context.Context, snaks map[string][]wikidata.Snak, order []string, depth int) []model.PropertyGroup {
	if len(snaks) == 0 {
		return nil
	}
	keys := order
	if len(keys) == 0 {
		keys = sortedKeys(snaks)
	}

	var groups []model.PropertyGroup
	for _, key := range keys {
		group := model.PropertyGroup{Key: key, Property: r.Summary(ctx, key)}
		for i := range snaks[key] {
			if value := r.ResolveSnak(ctx, &snaks[key][i], "", depth); value != nil {
				group.Values = append(group.Values, *value)
			}
		}
		if len(group.Values) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

func sortedKeys[T any](m map[string][]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, item string) bool {
	for _, candidate := range list {
		if candidate == item {
			return true
		}
	}
	return false
}
