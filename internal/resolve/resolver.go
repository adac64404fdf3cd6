// Package resolve turns raw claims into normalized values and opaque entity
// ids into human-readable summaries, with per-run memoization.
package resolve

import (
	"context"
	"encoding/json"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/media"
	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/wikidata"
)

// entityURIPrefix sometimes leaks into places where a bare id is expected.
const entityURIPrefix = "http://www.wikidata.org/entity/"

// EntitySource provides raw upstream documents and media metadata.
type EntitySource interface {
	Entity(ctx context.Context, id string) (*wikidata.RawEntity, error)
	MediaInfo(ctx context.Context, name string) ([]model.ImageInfo, error)
	GeoShape(ctx context.Context, name string) (json.RawMessage, error)
}

// Resolver resolves claims and entity references for one batch run. All of
// its state (memoized summaries, label overrides, allow-lists) is scoped to
// the run; create a fresh Resolver per invocation.
type Resolver struct {
	source    EntitySource
	converter media.Converter

	// summaries memoizes id -> *model.EntitySummary for the run; labels
	// memoizes the cheaper label-only lookups used past the hop limit.
	summaries *gocache.Cache
	labels    *gocache.Cache

	labelOverrides    map[string]string
	allowedProperties map[string]bool
	allowedImages     map[string][]string

	logger *zap.Logger
}

// New creates a resolver for one run. converter may be nil, in which case
// non-displayable media are left with their original descriptors.
func New(source EntitySource, converter media.Converter, logger *zap.Logger) *Resolver {
	return &Resolver{
		source:         source,
		converter:      converter,
		summaries:      gocache.New(gocache.NoExpiration, 0),
		labels:         gocache.New(gocache.NoExpiration, 0),
		labelOverrides: make(map[string]string),
		allowedImages:  make(map[string][]string),
		logger:         logger,
	}
}

// SetLabelOverride forces the label used for id, winning over the upstream
// label wherever the id is summarized.
func (r *Resolver) SetLabelOverride(id, label string) {
	r.labelOverrides[id] = label
}

// LabelOverride returns the forced label for id, if one was set.
func (r *Resolver) LabelOverride(id string) (string, bool) {
	label, ok := r.labelOverrides[id]
	return label, ok
}

// AllowProperties restricts which property keys are materialized. A nil
// allow-list (the default) materializes everything.
func (r *Resolver) AllowProperties(keys []string) {
	r.allowedProperties = make(map[string]bool, len(keys))
	for _, key := range keys {
		r.allowedProperties[key] = true
	}
}

// PropertyAllowed reports whether key passes the property allow-list.
func (r *Resolver) PropertyAllowed(key string) bool {
	return r.allowedProperties == nil || r.allowedProperties[key]
}

// AllowImages restricts which media names may be materialized for entityID.
func (r *Resolver) AllowImages(entityID string, names []string) {
	r.allowedImages[entityID] = append(r.allowedImages[entityID], names...)
}

// Seed pre-populates the summary memo, used by property allow-list feeds
// that carry their own labels.
func (r *Resolver) Seed(id string, summary *model.EntitySummary) {
	r.summaries.Set(id, summary, gocache.NoExpiration)
}

// normalizeID strips a full entity URI down to the bare id. URI keys are
// upstream noise and worth flagging.
func (r *Resolver) normalizeID(id string) string {
	if strings.Contains(id, entityURIPrefix) {
		r.logger.Error("key with entity URI", zap.String("key", id))
		return strings.Replace(id, entityURIPrefix, "", 1)
	}
	return id
}

// Summary returns the depth-limited summary for id: label, instance-of
// labels, and the fixed value-bearing property set. The first resolution is
// memoized for the rest of the run.
func (r *Resolver) Summary(ctx context.Context, id string) *model.EntitySummary {
	id = r.normalizeID(id)
	if cached, ok := r.summaries.Get(id); ok {
		return cached.(*model.EntitySummary)
	}

	summary := r.buildSummary(ctx, id)
	r.summaries.Set(id, summary, gocache.NoExpiration)
	return summary
}

func (r *Resolver) buildSummary(ctx context.Context, id string) *model.EntitySummary {
	entity, err := r.source.Entity(ctx, id)
	if err != nil {
		r.logger.Error("no data for entity", zap.String("id", id), zap.Error(err))
		return &model.EntitySummary{Label: r.labelOverrides[id]}
	}

	summary := &model.EntitySummary{Label: r.labelFor(entity)}
	for _, claim := range entity.Claims[model.InstanceOfProperty] {
		snak := claim.MainSnak
		if snak == nil || snak.DataType != string(model.KindItem) {
			continue
		}
		if ref, ok := snak.EntityID(); ok && ref.ID != "" {
			summary.InstanceOf = append(summary.InstanceOf, r.Label(ctx, ref.ID))
		}
	}

	filtered := make(map[string][]wikidata.Claim)
	for _, key := range model.SummaryValueProperties {
		if claims, ok := entity.Claims[key]; ok {
			filtered[key] = claims
		}
	}
	if len(filtered) > 0 {
		if props := r.ResolveClaims(ctx, "", filtered, false, 1); len(props) > 0 {
			summary.Properties = props
		}
	}

	r.decoratePlace(ctx, entity, summary)
	return summary
}

// Label returns only the display label for id. This is the terminal lookup
// used past the one-hop summary bound; it never resolves claims.
func (r *Resolver) Label(ctx context.Context, id string) string {
	id = r.normalizeID(id)
	if override, ok := r.labelOverrides[id]; ok {
		return override
	}
	if cached, ok := r.summaries.Get(id); ok {
		return cached.(*model.EntitySummary).Label
	}
	if cached, ok := r.labels.Get(id); ok {
		return cached.(string)
	}

	label := ""
	if entity, err := r.source.Entity(ctx, id); err != nil {
		r.logger.Error("no data for entity", zap.String("id", id), zap.Error(err))
	} else {
		label = r.labelFor(entity)
	}
	r.labels.Set(id, label, gocache.NoExpiration)
	return label
}

func (r *Resolver) labelFor(entity *wikidata.RawEntity) string {
	if override, ok := r.labelOverrides[entity.ID]; ok {
		return override
	}
	return entity.EnglishLabel()
}
