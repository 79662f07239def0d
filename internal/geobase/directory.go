// Package geobase loads Montreal's geobase-double street network and exposes
// it as a read-only directory keyed on the street-side identifier.
package geobase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// DefaultURL is the geobase-double GeoJSON published on Montreal Open Data.
const DefaultURL = "https://donnees.montreal.ca/dataset/88493b16-220f-4709-b57b-1ea57c5ba405/resource/16f7fa0a-9ce6-4b29-a7fc-00842c593927/download/gbdouble.json"

// Directory maps street-side identifiers (COTE_RUE_ID) to their full geobase
// feature. It is built once per run and never mutated afterward, so it is
// safe for concurrent reads across batch workers.
type Directory struct {
	features map[int]*geojson.Feature
}

// Load builds a Directory from src, which is an http(s) URL or a local file
// path. Features without a COTE_RUE_ID property are skipped, not fatal.
func Load(ctx context.Context, src string) (*Directory, error) {
	raw, err := fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse geobase geojson: %w", err)
	}

	d, skipped := FromFeatures(fc.Features)
	log.Printf("[geobase] loaded %d street features (%d without COTE_RUE_ID)", d.Len(), skipped)
	return d, nil
}

// FromFeatures indexes an already-parsed feature list. It returns the
// directory and how many features were dropped for lacking COTE_RUE_ID.
func FromFeatures(features []*geojson.Feature) (*Directory, int) {
	d := &Directory{features: make(map[int]*geojson.Feature, len(features))}
	skipped := 0
	for _, f := range features {
		id, ok := FeatureID(f)
		if !ok {
			skipped++
			continue
		}
		d.features[id] = f
	}
	return d, skipped
}

// Lookup returns the feature for a street-side identifier, if present.
func (d *Directory) Lookup(id int) (*geojson.Feature, bool) {
	f, ok := d.features[id]
	return f, ok
}

// Len reports how many street-side identifiers the directory holds.
func (d *Directory) Len() int {
	return len(d.features)
}

// FeatureID extracts the COTE_RUE_ID property from a geobase feature.
func FeatureID(f *geojson.Feature) (int, bool) {
	v, ok := f.Properties["COTE_RUE_ID"]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func fetch(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client := &http.Client{Timeout: 120 * time.Second}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("create geobase request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download geobase: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download geobase: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read geobase file: %w", err)
	}
	return raw, nil
}
