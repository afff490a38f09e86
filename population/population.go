// SPDX-License-Identifier: MIT

// Package population reads the World Bank's 2014 population dataset into a [treemap.Tree]
// of world, regions & countries.
package population

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"gitlab.com/fisherprime/treemap"
	"gitlab.com/fisherprime/treemap/internal/httputil"
)

type (
	// Config defines configuration options for a [Load].
	Config struct {
		Logger logrus.FieldLogger
		Debug  bool

		// Client fetches & caches the datasets, nil for an uncached client.
		Client  *httputil.Client
		// Refresh bypasses cached datasets.
		Refresh bool

		PopulationURL string
		RegionURL     string
	}

	// Option defines the Load functional option type.
	Option func(*Config)

	// Region groups the countries of a World Bank region in listing order.
	Region struct {
		Name      string   `json:"name"`
		Countries []string `json:"countries"`
	}

	populationRecord struct {
		Country struct {
			Value string `json:"value"`
		} `json:"country"`
		Value json.RawMessage `json:"value"`
	}

	countryRecord struct {
		Name   string `json:"name"`
		Region struct {
			Value string `json:"value"`
		} `json:"region"`
	}
)

// World Bank endpoints & dataset quirks.
const (
	PopulationURL = "http://api.worldbank.org/countries/all/indicators/SP.POP.TOTL?format=json&date=2014:2014&per_page=270"
	RegionURL     = "http://api.worldbank.org/countries?format=json&date=2014:2014&per_page=310"

	// AggregateRecords is the number of leading population records describing aggregates,
	// not countries.
	AggregateRecords = 47
	// AggregatesRegion names the pseudo region of aggregates in the country listing.
	AggregatesRegion = "Aggregates"

	// WorldLabel labels the root of the tree.
	WorldLabel = "World"
)

// Dataset errors.
var (
	ErrFetch  = errors.New("failed to fetch dataset")
	ErrDecode = errors.New("failed to decode dataset")
)

// DefConfig obtains the package's default Load options.
func DefConfig() *Config {
	return &Config{
		Logger:        logrus.StandardLogger(),
		PopulationURL: PopulationURL,
		RegionURL:     RegionURL,
	}
}

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithDebug configures the debug option.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

// WithClient configures the dataset client.
func WithClient(client *httputil.Client) Option {
	return func(c *Config) { c.Client = client }
}

// WithRefresh configures whether cached datasets are bypassed.
func WithRefresh(refresh bool) Option {
	return func(c *Config) { c.Refresh = refresh }
}

// WithURLs configures the population & country listing endpoints.
func WithURLs(population, region string) Option {
	return func(c *Config) { c.PopulationURL, c.RegionURL = population, region }
}

// Load fetches both datasets & constructs the world in t, returning the root's handle.
//
// Countries without a usable population are dropped, as are regions left without countries.
// A country listed by several regions is kept in the first.
func Load(ctx context.Context, t *treemap.Tree, options ...Option) (root treemap.NodeID, err error) {
	root = treemap.NoNode

	cfg := DefConfig()
	for _, opt := range options {
		opt(cfg)
	}
	if cfg.Client == nil {
		cfg.Client = httputil.NewClient(nil, httputil.WithLogger(cfg.Logger))
	}

	var populationRecords []populationRecord
	if err = fetch(ctx, cfg, "population", cfg.PopulationURL, &populationRecords); err != nil {
		return
	}

	var countryRecords []countryRecord
	if err = fetch(ctx, cfg, "countries", cfg.RegionURL, &countryRecords); err != nil {
		return
	}

	populations := countryPopulations(cfg.Logger, populationRecords)
	regions := groupRegions(countryRecords)

	return Build(ctx, t, populations, regions, cfg)
}

// Build constructs the world from per country populations & the ordered regions.
func Build(ctx context.Context, t *treemap.Tree, populations map[string]int64, regions []Region, cfg *Config) (root treemap.NodeID, err error) {
	src := treemap.NewBuildSource(treemap.WithBuildLogger(cfg.Logger), treemap.WithDebug(cfg.Debug))
	src.Add(treemap.NewRecord(WorldLabel, "", 0))

	placed := make(map[string]string)
	for _, region := range regions {
		var records []treemap.Builder
		for _, country := range region.Countries {
			size, ok := populations[country]
			if !ok {
				continue
			}

			if first, ok := placed[country]; ok {
				cfg.Logger.WithFields(logrus.Fields{"country": country, "region": region.Name, "kept": first}).
					Warn("country listed by several regions")
				continue
			}
			placed[country] = region.Name

			records = append(records, treemap.NewRecord(country, region.Name, size))
		}

		if len(records) < 1 {
			cfg.Logger.WithField("region", region.Name).Debug("dropped region without countries")
			continue
		}

		src.Add(treemap.NewRecord(region.Name, WorldLabel, 0))
		src.Add(records...)
	}

	if cfg.Debug {
		cfg.Logger.Debugf("building %d records", src.Len())
	}

	return src.Build(ctx, t)
}

// countryPopulations maps country names to their population, skipping the leading aggregates &
// every record without a positive integer population.
func countryPopulations(logger logrus.FieldLogger, records []populationRecord) (populations map[string]int64) {
	populations = make(map[string]int64)
	if len(records) <= AggregateRecords {
		return
	}

	for _, record := range records[AggregateRecords:] {
		name := record.Country.Value

		size, ok := parsePopulation(record.Value)
		if !ok {
			logger.WithField("country", name).Debugf("dropped population %s", record.Value)
			continue
		}
		populations[name] = size
	}

	return
}

// groupRegions groups country names by region in order of first appearance, skipping the
// aggregates pseudo region.
func groupRegions(records []countryRecord) (regions []Region) {
	index := make(map[string]int)
	for _, record := range records {
		name, region := record.Name, record.Region.Value
		if name == "" || region == AggregatesRegion {
			continue
		}

		i, ok := index[region]
		if !ok {
			i = len(regions)
			index[region] = i
			regions = append(regions, Region{Name: region})
		}
		regions[i].Countries = append(regions[i].Countries, name)
	}

	return
}

// parsePopulation accepts JSON integers & strings holding one.
func parsePopulation(raw json.RawMessage) (size int64, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return
	}

	var err error
	switch value := v.(type) {
	case string:
		size, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	case json.Number:
		size, err = value.Int64()
	default:
		return
	}

	return size, err == nil && size > 0
}

// fetch retrieves the records page of a World Bank response, a [metadata, records] pair.
func fetch(ctx context.Context, cfg *Config, key, url string, records any) (err error) {
	err = cfg.Client.Cached(ctx, key+":"+url, cfg.Refresh, records, func() (err error) {
		var page []json.RawMessage
		if err = cfg.Client.GetJSON(ctx, url, &page); err != nil {
			return
		}

		if len(page) < 2 {
			return fmt.Errorf("%w (%s): got %d of 2 elements", ErrDecode, key, len(page))
		}
		if err = json.Unmarshal(page[1], records); err != nil {
			return fmt.Errorf("%w (%s): %w", ErrDecode, key, err)
		}

		return
	})

	if err != nil && !errors.Is(err, ErrDecode) {
		err = fmt.Errorf("%w (%s): %w", ErrFetch, key, err)
	}

	return
}
