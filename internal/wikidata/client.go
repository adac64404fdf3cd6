package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/util"
)

// ErrNotAvailable is returned when an upstream document or feed cannot be
// fetched. Callers treat it as absence, not as a batch-fatal condition.
var ErrNotAvailable = errors.New("not available")

// Client fetches raw entity documents and related artifacts from the
// upstream graph, backed by the durable entity cache. A nil-failure fetch
// never crashes the batch; the caller skips the dependent work.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	endpoints  model.EndpointsConfig

	entities  *Cache
	mediaInfo *Cache

	limiter *Limiter
	robots  *util.RobotsChecker

	// checkUpstream controls conditional refetching of cached entities;
	// cacheImages controls the media descriptor cache.
	checkUpstream bool
	cacheImages   bool

	logger *zap.Logger
}

// NewClient creates a client from the runtime configuration.
func NewClient(cfg *model.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy),
			},
		},
		userAgent:     cfg.HTTP.UserAgent,
		maxBytes:      cfg.HTTP.MaxBodyBytes,
		endpoints:     cfg.Endpoints,
		entities:      NewCache(cfg.Paths.Cache, ".json.gz"),
		mediaInfo:     NewCache(cfg.Paths.Cache, ".info.gz"),
		limiter:       NewLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst),
		robots:        util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout),
		checkUpstream: cfg.Cache.CheckUpstream,
		cacheImages:   cfg.Cache.Images,
		logger:        logger,
	}
}

// Entity returns the raw document for id, serving from the cache when the
// upstream copy is unmodified. A cached copy is refreshed via a conditional
// request keyed on its modification timestamp; any upstream failure returns
// ErrNotAvailable and leaves the cache untouched.
func (c *Client) Entity(ctx context.Context, id string) (*RawEntity, error) {
	var cached *RawEntity
	if data, ok := c.entities.Get(id); ok {
		cached = &RawEntity{}
		if err := json.Unmarshal(data, cached); err != nil {
			c.logger.Error("unable to read cache", zap.String("id", id), zap.Error(err))
			cached = nil
		}
	}
	if cached != nil && !c.checkUpstream {
		return cached, nil
	}

	entityURL := fmt.Sprintf(c.endpoints.EntityData, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entityURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if cached != nil && cached.Modified != "" {
		if t, err := time.Parse(time.RFC3339, cached.Modified); err == nil {
			req.Header.Set("If-Modified-Since", t.UTC().Format(http.TimeFormat))
		}
	}

	if err := c.limiter.Wait(ctx, entityURL); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch entity %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
		if err != nil {
			return nil, fmt.Errorf("read entity %s: %w", id, err)
		}
		raw, err := extractEntity(body, id)
		if err != nil {
			return nil, fmt.Errorf("decode entity %s: %w", id, err)
		}
		entity := &RawEntity{}
		if err := json.Unmarshal(raw, entity); err != nil {
			return nil, fmt.Errorf("decode entity %s: %w", id, err)
		}
		c.logger.Debug("adding to cache", zap.String("id", id))
		if err := c.entities.Put(id, raw); err != nil {
			c.logger.Error("cache write failed", zap.String("id", id), zap.Error(err))
		}
		return entity, nil
	case http.StatusNotModified:
		c.logger.Debug("using cache", zap.String("id", id))
		return cached, nil
	default:
		return nil, fmt.Errorf("fetch entity %s: %w (status %d)", id, ErrNotAvailable, resp.StatusCode)
	}
}

// extractEntity picks the raw entity document out of the response envelope.
// Redirected ids come back under their canonical id, so fall back to the
// first entry when the requested one is absent.
func extractEntity(body []byte, id string) (json.RawMessage, error) {
	var envelope struct {
		Entities map[string]json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if raw, ok := envelope.Entities[id]; ok {
		return raw, nil
	}
	for _, raw := range envelope.Entities {
		return raw, nil
	}
	return nil, fmt.Errorf("no entity in response")
}

// Query runs a declarative query against the batch endpoint and returns the
// (id, label) pairs of its result rows.
func (c *Client) Query(ctx context.Context, sparql string) ([]QueryResult, error) {
	sparql = strings.ReplaceAll(sparql, "[AUTO_LANGUAGE]", "en")

	queryURL := c.endpoints.Sparql + "?query=" + url.QueryEscape(sparql)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx, queryURL); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query: unexpected status %d", resp.StatusCode)
	}

	var decoded struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode query results: %w", err)
	}

	var results []QueryResult
	for _, binding := range decoded.Results.Bindings {
		item, ok := binding["item"]
		if !ok || item.Value == "" {
			continue
		}
		segments := strings.Split(item.Value, "/")
		result := QueryResult{ID: segments[len(segments)-1]}
		if label, ok := binding["itemLabel"]; ok {
			result.Label = label.Value
		}
		results = append(results, result)
	}
	return results, nil
}

// FetchText fetches an externally hosted feed file, honoring the host's
// robots.txt. Non-200 responses map to ErrNotAvailable.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	if !c.robots.IsAllowed(ctx, rawURL) {
		c.logger.Info("fetch disallowed by robots.txt", zap.String("url", rawURL))
		return "", fmt.Errorf("fetch %s: %w", rawURL, ErrNotAvailable)
	}

	body, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchJSON fetches an externally hosted JSON document into v.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, v any) error {
	text, err := c.FetchText(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// MediaInfo returns descriptor metadata (dimensions, MIME type, URL) for one
// media asset, cached durably by asset name unless the image cache is
// disabled.
func (c *Client) MediaInfo(ctx context.Context, name string) ([]model.ImageInfo, error) {
	if c.cacheImages {
		if data, ok := c.mediaInfo.Get(name); ok {
			var cached []model.ImageInfo
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			c.logger.Error("unable to read cache", zap.String("name", name))
		}
	}

	infoURL := c.endpoints.CommonsAPI +
		"?action=query&prop=imageinfo%7Cinfo&inprop=url&iiprop=url%7Csize%7Cmime&format=json&titles=File:" +
		url.QueryEscape(name)
	body, err := c.get(ctx, infoURL)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Query struct {
			Pages map[string]struct {
				ImageInfo []struct {
					URL    string `json:"url"`
					Mime   string `json:"mime"`
					Width  int    `json:"width"`
					Height int    `json:"height"`
				} `json:"imageinfo"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode media info %s: %w", name, err)
	}

	var info []model.ImageInfo
	for _, page := range decoded.Query.Pages {
		for _, entry := range page.ImageInfo {
			info = append(info, model.ImageInfo{
				URL:    entry.URL,
				Mime:   entry.Mime,
				Width:  entry.Width,
				Height: entry.Height,
			})
		}
		if info != nil {
			break
		}
	}
	if info == nil {
		return nil, nil
	}

	if c.cacheImages {
		if data, err := json.Marshal(info); err == nil {
			if err := c.mediaInfo.Put(name, data); err != nil {
				c.logger.Error("cache write failed", zap.String("name", name), zap.Error(err))
			}
		}
	}
	return info, nil
}

// GeoShape fetches the shape revision for a geo-shape identifier from the
// secondary data source. The payload is treated as an opaque blob.
func (c *Client) GeoShape(ctx context.Context, name string) (json.RawMessage, error) {
	shapeURL := c.endpoints.CommonsAPI +
		"?action=query&prop=revisions&rvslots=*&rvprop=content&format=json&titles=" +
		url.QueryEscape(name)
	body, err := c.get(ctx, shapeURL)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("geo-shape %s: invalid payload", name)
	}
	return json.RawMessage(body), nil
}

// Download fetches arbitrary binary content (used for media assets).
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w (status %d)", rawURL, ErrNotAvailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
