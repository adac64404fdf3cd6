package wikidata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/model"
)

func testConfig(t *testing.T, serverURL string) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Endpoints.EntityData = serverURL + "/entity/%s.json"
	cfg.Endpoints.Sparql = serverURL + "/sparql"
	cfg.Endpoints.CommonsAPI = serverURL + "/commons"
	cfg.Paths.Cache = t.TempDir()
	cfg.Rate.RequestsPerSecond = 1000
	cfg.Rate.Burst = 1000
	return cfg
}

const entityEnvelope = `{"entities":{"%s":{"id":"%s","modified":"2024-01-02T03:04:05Z",
"labels":{"en":{"language":"en","value":"Douglas Adams"}},
"descriptions":{"en":{"language":"en","value":"writer"}},"claims":{}}}}`

func TestEntity_FetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, entityEnvelope, "Q42", "Q42")
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	client := NewClient(cfg, zap.NewNop())

	entity, err := client.Entity(context.Background(), "Q42")
	if err != nil {
		t.Fatalf("Entity failed: %v", err)
	}
	if entity.EnglishLabel() != "Douglas Adams" {
		t.Errorf("Unexpected label: %q", entity.EnglishLabel())
	}
	if entity.EnglishDescription() != "writer" {
		t.Errorf("Unexpected description: %q", entity.EnglishDescription())
	}

	if _, ok := client.entities.Get("Q42"); !ok {
		t.Error("Expected entity in durable cache")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 upstream hit, got %d", hits.Load())
	}
}

func TestEntity_ConditionalRefetch(t *testing.T) {
	var conditional atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-Modified-Since") != "" {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		fmt.Fprintf(w, entityEnvelope, "Q42", "Q42")
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	client := NewClient(cfg, zap.NewNop())

	if _, err := client.Entity(context.Background(), "Q42"); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	entity, err := client.Entity(context.Background(), "Q42")
	if err != nil {
		t.Fatalf("Conditional fetch failed: %v", err)
	}
	if conditional.Load() != 1 {
		t.Errorf("Expected 1 conditional request, got %d", conditional.Load())
	}
	if entity.EnglishLabel() != "Douglas Adams" {
		t.Errorf("Expected cached entity, got label %q", entity.EnglishLabel())
	}
}

func TestEntity_NoCacheCheckSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, entityEnvelope, "Q42", "Q42")
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Cache.CheckUpstream = false
	client := NewClient(cfg, zap.NewNop())

	if _, err := client.Entity(context.Background(), "Q42"); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if _, err := client.Entity(context.Background(), "Q42"); err != nil {
		t.Fatalf("Cached fetch failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected cached copy to be served without a request, got %d hits", hits.Load())
	}
}

func TestEntity_RedirectedIDFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The canonical id differs from the requested one.
		fmt.Fprintf(w, entityEnvelope, "Q100", "Q100")
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server.URL), zap.NewNop())
	entity, err := client.Entity(context.Background(), "Q42")
	if err != nil {
		t.Fatalf("Entity failed: %v", err)
	}
	if entity.ID != "Q100" {
		t.Errorf("Expected canonical entity, got %q", entity.ID)
	}
}

func TestEntity_UpstreamErrorIsNotAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server.URL), zap.NewNop())
	if _, err := client.Entity(context.Background(), "Q404"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Expected ErrNotAvailable, got %v", err)
	}
}

func TestQuery_ParsesBindings(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{"results":{"bindings":[
			{"item":{"value":"http://www.wikidata.org/entity/Q42"},"itemLabel":{"value":"Douglas Adams"}},
			{"item":{"value":"http://www.wikidata.org/entity/Q7"}}
		]}}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server.URL), zap.NewNop())
	results, err := client.Query(context.Background(), `SELECT ?item WHERE { } # [AUTO_LANGUAGE]`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != "Q42" || results[0].Label != "Douglas Adams" {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	if results[1].ID != "Q7" || results[1].Label != "" {
		t.Errorf("Unexpected second result: %+v", results[1])
	}
	if gotQuery == "" || gotQuery != `SELECT ?item WHERE { } # en` {
		t.Errorf("Expected [AUTO_LANGUAGE] substitution, got %q", gotQuery)
	}
}

func TestMediaInfo_CachesDescriptor(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"query":{"pages":{"123":{"imageinfo":[
			{"url":"https://upload.example/x.tif","mime":"image/tiff","width":2000,"height":1000}
		]}}}}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server.URL), zap.NewNop())
	info, err := client.MediaInfo(context.Background(), "x.tif")
	if err != nil {
		t.Fatalf("MediaInfo failed: %v", err)
	}
	if len(info) != 1 || info[0].Mime != "image/tiff" || info[0].Width != 2000 {
		t.Fatalf("Unexpected descriptor: %+v", info)
	}

	if _, err := client.MediaInfo(context.Background(), "x.tif"); err != nil {
		t.Fatalf("Cached MediaInfo failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected descriptor served from cache, got %d hits", hits.Load())
	}
}

func TestMediaInfo_CacheDisabled(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"query":{"pages":{"123":{"imageinfo":[
			{"url":"https://upload.example/x.tif","mime":"image/tiff","width":2000,"height":1000}
		]}}}}`)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Cache.Images = false
	client := NewClient(cfg, zap.NewNop())
	for i := 0; i < 2; i++ {
		if _, err := client.MediaInfo(context.Background(), "x.tif"); err != nil {
			t.Fatalf("MediaInfo failed: %v", err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("Expected every descriptor fetched upstream, got %d hits", hits.Load())
	}
}

func TestFetchText_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server.URL), zap.NewNop())
	if _, err := client.FetchText(context.Background(), server.URL+"/missing.md"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Expected ErrNotAvailable, got %v", err)
	}
}
