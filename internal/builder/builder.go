// Package builder assembles persisted entity documents: it fetches the raw
// upstream entity, resolves its claims, folds in the curation feeds and
// maintains the entity index.
package builder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/feeds"
	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/resolve"
	"github.com/exhibitkit/constellate/internal/store"
	"github.com/exhibitkit/constellate/internal/wikidata"
)

// relationOrder fixes the consolidation order of family-relation groups so
// repeated builds produce identical documents.
var relationOrder = []string{"P22", "P25", "P26", "P3373", "P8810"}

// EntityFetcher fetches raw upstream entities.
type EntityFetcher interface {
	Entity(ctx context.Context, id string) (*wikidata.RawEntity, error)
}

// Builder builds one document per entity id.
type Builder struct {
	entities EntityFetcher
	resolver *resolve.Resolver
	feeds    feeds.Fetcher
	store    *store.Store
	logger   *zap.Logger

	// Feed URL prefixes, each empty when the site defines no such feed.
	BioPrefix      string
	OverridePrefix string
	PubPrefix      string
}

// New creates a builder. feedFetcher may be nil when no feeds are
// configured.
func New(entities EntityFetcher, resolver *resolve.Resolver, feedFetcher feeds.Fetcher, st *store.Store, logger *zap.Logger) *Builder {
	return &Builder{
		entities: entities,
		resolver: resolver,
		feeds:    feedFetcher,
		store:    st,
		logger:   logger,
	}
}

// Build fetches, resolves and persists the document for one entity and
// updates its index row. An unfetchable entity fails the build of that
// entity only.
func (b *Builder) Build(ctx context.Context, id string) error {
	entity, err := b.entities.Entity(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load entity %s: %w", id, err)
	}

	doc := &model.EntityDocument{
		ID:          id,
		Label:       entity.EnglishLabel(),
		Description: entity.EnglishDescription(),
	}
	if label, ok := b.resolver.LabelOverride(id); ok {
		doc.Label = label
	}

	if b.feeds != nil && b.BioPrefix != "" {
		if bio, ok := feeds.FetchBiography(ctx, b.feeds, b.BioPrefix, id); ok {
			doc.Biography = bio.Markdown
			if bio.Title != "" {
				doc.Label = bio.Title
			}
			if bio.Description != "" {
				doc.Description = bio.Description
			}
		}
	}
	if b.feeds != nil && b.PubPrefix != "" {
		if publications, ok := feeds.FetchPublications(ctx, b.feeds, b.PubPrefix, id); ok {
			doc.Publications = publications
		}
	}

	doc.Properties = b.resolver.ResolveClaims(ctx, id, entity.Claims, true, 0)
	consolidateRelatives(doc.Properties)

	if b.feeds != nil && b.OverridePrefix != "" {
		applyOverrides(doc.Properties, feeds.FetchPropertyOverrides(ctx, b.feeds, b.logger, b.OverridePrefix, id))
	}

	if b.store.HasImage(id) {
		doc.Properties["image"] = imageGroup(id)
	}

	if err := b.store.WriteDocument(doc); err != nil {
		return err
	}
	if err := b.store.UpdateIndex(indexEntry(doc)); err != nil {
		return err
	}
	b.logger.Info("entity built", zap.String("id", id), zap.String("label", doc.Label))
	return nil
}

// consolidateRelatives folds the family-relation groups into one synthetic
// "relative" group, tagging each value with a kinship qualifier naming the
// relation it came from.
func consolidateRelatives(groups map[string]model.PropertyGroup) {
	relative := model.PropertyGroup{
		Key:      model.RelativeGroupKey,
		Property: &model.EntitySummary{Label: model.RelativeGroupKey},
	}
	for _, key := range relationOrder {
		group, ok := groups[key]
		if !ok {
			continue
		}
		relation := model.RelationProperties[key]
		for _, value := range group.Values {
			value.Qualifiers = append(value.Qualifiers, model.PropertyGroup{
				Key:      model.KinshipQualifierKey,
				Property: &model.EntitySummary{Label: model.KinshipQualifierLabel},
				Values:   []model.Value{{Kind: model.KindString, Text: relation}},
			})
			relative.Values = append(relative.Values, value)
		}
		delete(groups, key)
	}
	if len(relative.Values) > 0 {
		groups[model.RelativeGroupKey] = relative
	}
}

// applyOverrides merges curated group overrides into the resolved groups.
// An override with no values deletes the group.
func applyOverrides(groups map[string]model.PropertyGroup, overrides map[string]model.PropertyGroup) {
	for key, override := range overrides {
		if len(override.Values) == 0 {
			delete(groups, key)
			continue
		}
		if override.Key == "" {
			override.Key = key
		}
		groups[key] = override
	}
}

// imageGroup points a document at its locally converted image artifact.
func imageGroup(id string) model.PropertyGroup {
	name := id + ".jpg"
	return model.PropertyGroup{
		Key:      "image",
		Property: &model.EntitySummary{Label: "image"},
		Values: []model.Value{{
			Kind: model.KindMedia,
			Name: name,
			ImageInfo: []model.ImageInfo{{
				URL:  "/data/" + name,
				Mime: "image/jpeg",
				Name: name,
			}},
		}},
	}
}

// indexEntry derives the flat index row for a document: the fixed display
// property subset with provenance stripped.
func indexEntry(doc *model.EntityDocument) model.IndexEntry {
	entry := model.IndexEntry{
		ID:          doc.ID,
		Label:       doc.Label,
		Description: doc.Description,
		Properties:  make(map[string]model.PropertyGroup),
	}
	for _, key := range model.IndexProperties {
		group, ok := doc.Properties[key]
		if !ok {
			continue
		}
		values := make([]model.Value, len(group.Values))
		for i, value := range group.Values {
			value.Qualifiers = nil
			value.References = nil
			values[i] = value
		}
		group.Values = values
		entry.Properties[key] = group
	}
	return entry
}
