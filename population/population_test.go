// SPDX-License-Identifier: MIT
package population

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gitlab.com/fisherprime/treemap"
	"gitlab.com/fisherprime/treemap/internal/httputil"
)

func populationPage() []any {
	var records []any
	for i := range AggregateRecords {
		records = append(records, map[string]any{
			"country": map[string]string{"value": fmt.Sprintf("Aggregate %d", i)},
			"value":   "1000",
		})
	}

	for _, r := range []struct {
		name  string
		value any
	}{
		{"Nepal", "28174724"},
		{"India", 1295291543},
		{"Bhutan", nil},
		{"Atlantis", "12.5"},
		{"Chad", ""},
		{"Malta", "427364"},
		{"Tonga", "105586"},
	} {
		records = append(records, map[string]any{"country": map[string]string{"value": r.name}, "value": r.value})
	}

	return []any{map[string]int{"page": 1}, records}
}

func countryPage() []any {
	var records []any
	for _, r := range [][2]string{
		{"Nepal", "South Asia"},
		{"Bhutan", "South Asia"},
		{"Euro area", AggregatesRegion},
		{"Malta", "Europe & Central Asia"},
		{"India", "South Asia"},
		{"Atlantis", "Lost Region"},
		{"Nepal", "Other Region"},
		{"Tonga", "East Asia & Pacific"},
	} {
		records = append(records, map[string]any{"name": r[0], "region": map[string]string{"value": r[1]}})
	}

	return []any{map[string]int{"page": 1}, records}
}

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/population", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(populationPage())
	})
	mux.HandleFunc("/countries", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(countryPage())
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]any{map[string]any{"message": "invalid"}})
	})
	mux.HandleFunc("/missing", http.NotFound)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

func TestLoad(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)

	cache, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("httputil.NewCache() error = %v", err)
	}
	client := httputil.NewClient(cache, httputil.WithHTTPClient(srv.Client()), httputil.WithLogger(quietLogger()))

	type region struct {
		name      string
		countries map[string]int64
	}
	want := []region{
		{"South Asia", map[string]int64{"Nepal": 28174724, "India": 1295291543}},
		{"Europe & Central Asia", map[string]int64{"Malta": 427364}},
		{"East Asia & Pacific", map[string]int64{"Tonga": 105586}},
	}

	// The second load is served from the cache.
	for range 2 {
		tree := treemap.New(treemap.WithSeparator(treemap.PopulationSeparator))

		root, err := Load(context.Background(), tree,
			WithClient(client), WithLogger(quietLogger()), WithDebug(true),
			WithURLs(srv.URL+"/population", srv.URL+"/countries"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if got := tree.Label(root).String(); got != WorldLabel {
			t.Errorf("root label = %v, want %v", got, WorldLabel)
		}
		if got, want := tree.Size(root), int64(28174724+1295291543+427364+105586); got != want {
			t.Errorf("root size = %v, want %v", got, want)
		}

		var got []region
		for _, id := range tree.Children(root) {
			r := region{name: tree.Label(id).String(), countries: make(map[string]int64)}
			for _, country := range tree.Children(id) {
				r.countries[tree.Label(country).String()] = tree.Size(country)
			}
			got = append(got, r)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Load() = %+v, want %+v", got, want)
		}

		nepal := tree.Children(tree.Children(root)[0])[0]
		if got, _ := tree.Path(nepal); got != `World\South Asia\Nepal` {
			t.Errorf("Tree.Path() = %v, want %v", got, `World\South Asia\Nepal`)
		}

		if err = tree.Check(context.Background(), root); err != nil {
			t.Errorf("Tree.Check() error = %v", err)
		}
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestLoad_errors(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)

	tests := []struct {
		name       string
		population string
		countries  string
		wantErr    error
	}{
		{"missing population", "/missing", "/countries", ErrFetch},
		{"missing countries", "/population", "/missing", ErrFetch},
		{"metadata only", "/broken", "/countries", ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := httputil.NewClient(nil, httputil.WithHTTPClient(srv.Client()), httputil.WithLogger(quietLogger()))

			root, err := Load(context.Background(), treemap.New(),
				WithClient(client), WithLogger(quietLogger()),
				WithURLs(srv.URL+tt.population, srv.URL+tt.countries))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if root != treemap.NoNode {
				t.Errorf("Load() root = %v, want %v", root, treemap.NoNode)
			}
		})
	}
}

func TestParsePopulation(t *testing.T) {
	tests := []struct {
		raw    string
		want   int64
		wantOK bool
	}{
		{`"28174724"`, 28174724, true},
		{`" 42 "`, 42, true},
		{`1295291543`, 1295291543, true},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"12.5"`, 0, false},
		{`12.5`, 0, false},
		{`"0"`, 0, false},
		{`"-3"`, -3, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parsePopulation(json.RawMessage(tt.raw))
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("parsePopulation() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGroupRegions(t *testing.T) {
	var records []countryRecord
	page := countryPage()
	data, _ := json.Marshal(page[1])
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatal(err)
	}

	want := []Region{
		{Name: "South Asia", Countries: []string{"Nepal", "Bhutan", "India"}},
		{Name: "Europe & Central Asia", Countries: []string{"Malta"}},
		{Name: "Lost Region", Countries: []string{"Atlantis"}},
		{Name: "Other Region", Countries: []string{"Nepal"}},
		{Name: "East Asia & Pacific", Countries: []string{"Tonga"}},
	}
	if got := groupRegions(records); !reflect.DeepEqual(got, want) {
		t.Errorf("groupRegions() = %+v, want %+v", got, want)
	}
}
