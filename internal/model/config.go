package model

import "time"

// Config holds the full runtime configuration. Values come from defaults,
// the config file, CONSTELLATE_* environment variables, and CLI flags, in
// increasing priority.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	Paths     PathsConfig     `yaml:"paths"`
	Cache     CacheConfig     `yaml:"cache"`
	Rate      RateConfig      `yaml:"rate"`
	Output    OutputConfig    `yaml:"output"`
}

// HTTPConfig holds HTTP client settings.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty"`
}

// EndpointsConfig holds upstream service locations.
type EndpointsConfig struct {
	// EntityData is the per-entity document endpoint; %s is the entity id.
	EntityData string `yaml:"entity_data"`
	// Sparql is the declarative query endpoint.
	Sparql string `yaml:"sparql"`
	// CommonsAPI is the media descriptor and geo-shape endpoint.
	CommonsAPI string `yaml:"commons_api"`
}

// PathsConfig holds local filesystem locations.
type PathsConfig struct {
	Data  string `yaml:"data"`
	Cache string `yaml:"cache"`
}

// CacheConfig controls entity and image caching behavior.
type CacheConfig struct {
	// CheckUpstream issues conditional requests for cached entities; when
	// false the cached copy is always used as-is.
	CheckUpstream bool `yaml:"check_upstream"`
	// Images enables the binary image cache.
	Images bool `yaml:"images"`
}

// RateConfig holds per-host rate limiting settings.
type RateConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "Constellate/0.1 (+https://github.com/exhibitkit/constellate)",
			MaxBodyBytes: 20_000_000,
		},
		Endpoints: EndpointsConfig{
			EntityData: "https://www.wikidata.org/wiki/Special:EntityData/%s.json",
			Sparql:     "https://query.wikidata.org/sparql",
			CommonsAPI: "https://commons.wikimedia.org/w/api.php",
		},
		Paths: PathsConfig{
			Data:  "data",
			Cache: "wiki-cache",
		},
		Cache: CacheConfig{
			CheckUpstream: true,
			Images:        true,
		},
		Rate: RateConfig{
			RequestsPerSecond: 5,
			Burst:             5,
		},
	}
}
