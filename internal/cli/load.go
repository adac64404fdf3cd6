package cli

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/pipeline"
)

var (
	entityID     string
	idFile       string
	sparqlFile   string
	siteFile     string
	appendRun    bool
	noCacheCheck bool
	noImageCache bool
	compareSite  string
	dataPath     string
	cachePath    string
	userAgent    string
	timeout      time.Duration
	httpProxy    string
	httpsProxy   string
	rps          float64
)

var entityIDPattern = regexp.MustCompile(`^Q[0-9]+$`)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load entities and build the site data artifacts",
	Long: `Load fetches entities from Wikidata, resolves their claims into
self-contained documents under the data directory, and rebuilds the
entity, location and search indexes.

Entities come from exactly one source: a single id, an id list file,
a SPARQL query file, or a site configuration file that bundles feeds,
lists and queries.

Example:
  constellate load --entity-id Q42
  constellate load --id-file people.txt --append
  constellate load --site-file site.json --compare-site https://example.org`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	// Entity source flags
	loadCmd.Flags().StringVar(&entityID, "entity-id", "", "load a single entity by id")
	loadCmd.Flags().StringVar(&idFile, "id-file", "", "load entities listed in a file (one Q id per line)")
	loadCmd.Flags().StringVar(&sparqlFile, "sparql-file", "", "load entities selected by a SPARQL query file")
	loadCmd.Flags().StringVar(&siteFile, "site-file", "", "load a full site from a site configuration file")

	// Run behavior flags
	loadCmd.Flags().BoolVar(&appendRun, "append", false, "keep existing documents instead of resetting the data dir")
	loadCmd.Flags().BoolVar(&noCacheCheck, "no-cache-check", false, "use cached entities without checking upstream for changes")
	loadCmd.Flags().BoolVar(&noImageCache, "disable-image-cache", false, "re-download and re-convert images on every run")
	loadCmd.Flags().StringVar(&compareSite, "compare-site", "", "diff the built documents against a published site URL")

	// Path flags
	loadCmd.Flags().StringVar(&dataPath, "data-path", "data", "output directory for built artifacts")
	loadCmd.Flags().StringVar(&cachePath, "cache-path", "wiki-cache", "entity and image cache directory")

	// HTTP flags
	loadCmd.Flags().StringVar(&userAgent, "ua", "Constellate/0.1 (+https://github.com/exhibitkit/constellate)", "HTTP User-Agent")
	loadCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "per-request HTTP timeout")
	loadCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "proxy for http:// requests")
	loadCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "proxy for https:// requests")
	loadCmd.Flags().Float64Var(&rps, "rps", 5, "max requests per second per upstream host")
}

func runLoad(cmd *cobra.Command, args []string) error {
	sources := 0
	for _, source := range []string{entityID, idFile, sparqlFile, siteFile} {
		if source != "" {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of --entity-id, --id-file, --sparql-file or --site-file is required")
	}

	cfg := buildConfig()
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	if !appendRun {
		if err := p.Store().Reset(); err != nil {
			return err
		}
	}

	ctx := context.Background()
	switch {
	case entityID != "":
		err = p.LoadIDs(ctx, []string{entityID}, nil)
	case idFile != "":
		var ids []string
		ids, err = readIDFile(idFile)
		if err == nil {
			err = p.LoadIDs(ctx, ids, nil)
		}
	case sparqlFile != "":
		var sparql []byte
		sparql, err = os.ReadFile(sparqlFile)
		if err != nil {
			err = fmt.Errorf("failed to read query file: %w", err)
		} else {
			err = p.LoadQuery(ctx, string(sparql))
		}
	case siteFile != "":
		err = p.RunSiteFile(ctx, siteFile)
	}
	if err != nil {
		return err
	}

	if err := p.Finish(); err != nil {
		return err
	}
	if compareSite != "" {
		if err := p.CompareSite(ctx, compareSite); err != nil {
			return err
		}
	}
	return nil
}

// buildConfig assembles the run configuration from flags over defaults.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Paths.Data = dataPath
	cfg.Paths.Cache = cachePath
	cfg.Cache.CheckUpstream = !noCacheCheck
	cfg.Cache.Images = !noImageCache
	cfg.Rate.RequestsPerSecond = rps
	cfg.Output.Verbose = verbose
	return cfg
}

// readIDFile reads an entity id list file, skipping anything that is not a
// bare Q id.
func readIDFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read id file: %w", err)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if entityIDPattern.MatchString(line) {
			ids = append(ids, line)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no entity ids in %s", path)
	}
	return ids, nil
}
