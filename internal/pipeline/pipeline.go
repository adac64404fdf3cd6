// Package pipeline orchestrates a complete load run: site configuration,
// entity selection, document building and the derived artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/builder"
	"github.com/exhibitkit/constellate/internal/diff"
	"github.com/exhibitkit/constellate/internal/feeds"
	"github.com/exhibitkit/constellate/internal/media"
	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/resolve"
	"github.com/exhibitkit/constellate/internal/store"
	"github.com/exhibitkit/constellate/internal/wikidata"
)

// coordinateProperty is always allowed so summaries can carry locations
// even when a site restricts the property list.
const coordinateProperty = "P625"

// Pipeline wires the client, resolver, builder and store for one run.
type Pipeline struct {
	client   *wikidata.Client
	resolver *resolve.Resolver
	builder  *builder.Builder
	store    *store.Store
	config   *model.Config
	logger   *zap.Logger
}

// New creates a pipeline from a configuration.
func New(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	st, err := store.New(cfg.Paths.Data, logger)
	if err != nil {
		return nil, err
	}
	client := wikidata.NewClient(cfg, logger)
	converter := media.NewJPEGConverter(client, cfg.Paths.Data, cfg.Paths.Cache, cfg.Cache.Images, logger)
	resolver := resolve.New(client, converter, logger)
	return &Pipeline{
		client:   client,
		resolver: resolver,
		builder:  builder.New(client, resolver, client, st, logger),
		store:    st,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Store exposes the pipeline's store for derived-artifact commands.
func (p *Pipeline) Store() *store.Store { return p.store }

// Resolver exposes the resolver for seeding and overrides.
func (p *Pipeline) Resolver() *resolve.Resolver { return p.resolver }

// RunSiteFile reads a site configuration file, keeps a copy of it with
// the built artifacts and executes the full site load.
func (p *Pipeline) RunSiteFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read site config: %w", err)
	}
	var site feeds.SiteConfig
	if err := json.Unmarshal(data, &site); err != nil {
		return fmt.Errorf("failed to decode site config: %w", err)
	}
	if err := p.store.WriteSiteCopy(data); err != nil {
		return err
	}
	return p.RunSite(ctx, &site)
}

// ApplySiteConfig configures the run from a site definition: feed
// prefixes, the property allow-list with its label overrides and the
// image allow-lists.
func (p *Pipeline) ApplySiteConfig(ctx context.Context, site *feeds.SiteConfig) error {
	p.builder.BioPrefix = site.BioURLPrefix
	p.builder.OverridePrefix = site.PropertyOverrideURLPrefix
	p.builder.PubPrefix = site.PublicationsURLPrefix

	if site.Properties != "" {
		keys, labels, err := feeds.FetchPropertyList(ctx, p.client, site.Properties)
		if err != nil {
			return err
		}
		for key, label := range labels {
			p.resolver.SetLabelOverride(key, label)
			p.resolver.Seed(key, &model.EntitySummary{Label: label})
		}
		p.resolver.SetLabelOverride(coordinateProperty, "coordinate location")
		p.resolver.Seed(coordinateProperty, &model.EntitySummary{Label: "coordinate location"})
		p.resolver.AllowProperties(append(keys, coordinateProperty))
	}

	if site.Images != "" {
		images, err := feeds.FetchImageList(ctx, p.client, site.Images)
		if err != nil {
			return err
		}
		for id, names := range images {
			p.resolver.AllowImages(id, names)
		}
	}
	return nil
}

// LoadIDs builds the documents for a list of entity ids, in order. A
// failed entity is logged and skipped; labels supplies per-id display
// label overrides.
func (p *Pipeline) LoadIDs(ctx context.Context, ids []string, labels map[string]string) error {
	for id, label := range labels {
		p.resolver.SetLabelOverride(id, label)
	}
	for _, id := range ids {
		if err := p.builder.Build(ctx, id); err != nil {
			p.logger.Error("failed to build entity", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// LoadQuery selects entities with a SPARQL query and builds their
// documents, seeding the query's labels as overrides.
func (p *Pipeline) LoadQuery(ctx context.Context, sparql string) error {
	results, err := p.client.Query(ctx, sparql)
	if err != nil {
		return fmt.Errorf("failed to run query: %w", err)
	}
	ids := make([]string, 0, len(results))
	labels := make(map[string]string, len(results))
	for _, result := range results {
		ids = append(ids, result.ID)
		if result.Label != "" {
			labels[result.ID] = result.Label
		}
	}
	p.logger.Info("query selected entities", zap.Int("count", len(ids)))
	return p.LoadIDs(ctx, ids, labels)
}

// RunSite executes a full site load: configuration, the configured id
// list (fetched or literal) and the site query.
func (p *Pipeline) RunSite(ctx context.Context, site *feeds.SiteConfig) error {
	if err := p.ApplySiteConfig(ctx, site); err != nil {
		return err
	}
	feedURL, literal := site.IDListSource()
	if feedURL != "" {
		ids, labels, err := feeds.FetchIDList(ctx, p.client, feedURL)
		if err != nil {
			return err
		}
		if err := p.LoadIDs(ctx, ids, labels); err != nil {
			return err
		}
	}
	if len(literal) > 0 {
		if err := p.LoadIDs(ctx, literal, nil); err != nil {
			return err
		}
	}
	if site.Sparql != "" {
		if err := p.LoadQuery(ctx, site.Sparql); err != nil {
			return err
		}
	}
	return nil
}

// Finish derives the location and search indexes from the persisted
// documents. It runs once, after every entity of a run is built.
func (p *Pipeline) Finish() error {
	if err := p.store.ExtractLocations(); err != nil {
		return err
	}
	return p.store.BuildSearchIndex()
}

// CompareSite diffs the persisted documents against a published site.
func (p *Pipeline) CompareSite(ctx context.Context, siteURL string) error {
	return diff.New(p.client, p.store, p.logger).CompareSite(ctx, siteURL)
}
