// Package feeds parses the external curation feeds that supplement entity
// data: biography markdown, publication tables, property overrides and the
// id, property and image lists referenced by a site configuration.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/model"
)

// Fetcher retrieves feed documents over the network.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchJSON(ctx context.Context, url string, out any) error
}

// Biography is a per-entity markdown feed. The first line is always the
// title and the second, when it carries a heading prefix, the description;
// both override the upstream label and description.
type Biography struct {
	Title       string
	Description string
	Markdown    string
}

// ParseBiography splits the heading lines off a biography feed. The first
// line is the title whether or not it is written as a markdown heading.
func ParseBiography(text string) Biography {
	bio := Biography{Markdown: text}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		bio.Title = strings.TrimSpace(strings.TrimPrefix(lines[0], "# "))
	}
	if len(lines) > 1 && strings.HasPrefix(lines[1], "## ") {
		bio.Description = strings.TrimSpace(strings.TrimPrefix(lines[1], "## "))
	}
	return bio
}

// FetchBiography downloads and parses one biography feed. A missing feed is
// not an error for the caller to act on, so it is reported as ok=false.
func FetchBiography(ctx context.Context, fetcher Fetcher, urlPrefix, id string) (Biography, bool) {
	text, err := fetcher.FetchText(ctx, urlPrefix+id+".md")
	if err != nil {
		return Biography{}, false
	}
	return ParseBiography(text), true
}

// ParsePublications parses a tab-separated publications feed. Every
// non-empty line is one publication with up to six columns.
func ParsePublications(text string) []model.Publication {
	var publications []model.Publication
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		column := func(i int) string {
			if i < len(columns) {
				return strings.TrimSpace(columns[i])
			}
			return ""
		}
		publications = append(publications, model.Publication{
			Title:   column(0),
			Date:    column(1),
			Link:    column(2),
			Journal: column(3),
			Role:    column(4),
			Authors: column(5),
		})
	}
	return publications
}

// FetchPublications downloads and parses one publications feed.
func FetchPublications(ctx context.Context, fetcher Fetcher, urlPrefix, id string) ([]model.Publication, bool) {
	text, err := fetcher.FetchText(ctx, urlPrefix+id+".tsv")
	if err != nil {
		return nil, false
	}
	return ParsePublications(text), true
}

// FetchPropertyOverrides downloads per-entity property group overrides. A
// malformed feed is logged and ignored wholesale rather than partially
// applied.
func FetchPropertyOverrides(ctx context.Context, fetcher Fetcher, logger *zap.Logger, urlPrefix, id string) map[string]model.PropertyGroup {
	var overrides map[string]model.PropertyGroup
	url := urlPrefix + id + ".json"
	if err := fetcher.FetchJSON(ctx, url, &overrides); err != nil {
		logger.Debug("no property overrides", zap.String("id", id), zap.Error(err))
		return nil
	}
	return overrides
}

// splitRow splits a list feed row into its id and the rest of the line at
// the first whitespace, so both space- and tab-separated feeds work.
func splitRow(line string) (string, string) {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i:])
	}
	return line, ""
}

// ParseIDList parses an entity id list feed. Each non-empty line starting
// with a Q id contributes one entry; the remainder of the line, when
// present, is a display label override.
func ParseIDList(text string) ([]string, map[string]string) {
	var ids []string
	labels := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "Q") {
			continue
		}
		id, label := splitRow(line)
		ids = append(ids, id)
		if label != "" {
			labels[id] = label
		}
	}
	return ids, labels
}

// FetchIDList downloads and parses an id list feed.
func FetchIDList(ctx context.Context, fetcher Fetcher, url string) ([]string, map[string]string, error) {
	text, err := fetcher.FetchText(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch id list: %w", err)
	}
	ids, labels := ParseIDList(text)
	return ids, labels, nil
}

// ParsePropertyList parses a property list feed of P ids with label
// overrides. Lines not starting with a P id are skipped.
func ParsePropertyList(text string) ([]string, map[string]string) {
	var keys []string
	labels := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "P") {
			continue
		}
		key, label := splitRow(line)
		keys = append(keys, key)
		if label != "" {
			labels[key] = label
		}
	}
	return keys, labels
}

// FetchPropertyList downloads and parses a property list feed.
func FetchPropertyList(ctx context.Context, fetcher Fetcher, url string) ([]string, map[string]string, error) {
	text, err := fetcher.FetchText(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch property list: %w", err)
	}
	keys, labels := ParsePropertyList(text)
	return keys, labels, nil
}

// ParseImageList parses an image allow-list feed. Each line carries at
// least three tab-separated columns: the entity id, a caption and the
// media file name.
func ParseImageList(text string) map[string][]string {
	images := make(map[string][]string)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		if len(columns) < 3 {
			continue
		}
		id := strings.TrimSpace(columns[0])
		name := strings.TrimSpace(columns[2])
		if id == "" || name == "" {
			continue
		}
		images[id] = append(images[id], name)
	}
	return images
}

// FetchImageList downloads and parses an image allow-list feed.
func FetchImageList(ctx context.Context, fetcher Fetcher, url string) (map[string][]string, error) {
	text, err := fetcher.FetchText(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image list: %w", err)
	}
	return ParseImageList(text), nil
}

// SiteConfig ties a published site to its feeds: the feed URL prefixes,
// the id/property/image lists and an optional SPARQL query.
type SiteConfig struct {
	Title                     string          `json:"title"`
	BioURLPrefix              string          `json:"bioUrlPrefix"`
	PropertyOverrideURLPrefix string          `json:"propertyOverrideUrlPrefix"`
	PublicationsURLPrefix     string          `json:"publicationsUrlPrefix"`
	Properties                string          `json:"properties"`
	Images                    string          `json:"images"`
	IDList                    json.RawMessage `json:"idList"`
	Sparql                    string          `json:"sparql"`
}

// IDListSource returns the configured id list in whichever form the site
// uses: a string is the URL of an id list feed, an array is the literal
// list of entity ids to load.
func (c *SiteConfig) IDListSource() (feedURL string, ids []string) {
	if len(c.IDList) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(c.IDList, &feedURL); err == nil {
		return feedURL, nil
	}
	if err := json.Unmarshal(c.IDList, &ids); err == nil {
		return "", ids
	}
	return "", nil
}
