// Package parking loads Montreal's winter municipal parking dataset,
// independent of the snow pipeline.
package parking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultURL is the winter parking GeoJSON on Montreal Open Data.
const DefaultURL = "https://donnees.montreal.ca/fr/dataset/575ecf37-9097-44cd-817f-a2fbd8de314b/resource/def63739-6295-4745-97e9-74755ee0bf92/download/stationnements-h-2025-2026.geojson"

// LoadResult summarizes one parking load.
type LoadResult struct {
	Processed int
	Upserted  int
	Skipped   int
	Errors    int
}

// Fetch downloads and parses the parking feature collection.
func Fetch(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create parking request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch parking data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch parking data: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read parking data: %w", err)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse parking geojson: %w", err)
	}
	return &fc, nil
}

// Load converts all features and upserts them in batches of batchSize.
func Load(ctx context.Context, db *gorm.DB, fc *geojson.FeatureCollection, batchSize int) (LoadResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var res LoadResult
	var records []MunicipalParking
	for _, f := range fc.Features {
		rec, ok := processFeature(f)
		if !ok {
			res.Skipped++
			continue
		}
		records = append(records, rec)
	}
	res.Processed = len(records)

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "station_id"}},
			UpdateAll: true,
		}).Create(&batch).Error
		if err != nil {
			res.Errors += len(batch)
			log.Printf("[parking] batch %d failed: %v", start/batchSize+1, err)
			continue
		}
		res.Upserted += len(batch)
	}

	return res, nil
}

// Init prepares the parking table.
func Init(db *gorm.DB) error {
	if err := db.AutoMigrate(&MunicipalParking{}); err != nil {
		return fmt.Errorf("auto-migrate parking table: %w", err)
	}
	return nil
}

// processFeature maps one GeoJSON feature to a database record. Features
// missing a station id, a borough, or usable coordinates are dropped.
func processFeature(f *geojson.Feature) (MunicipalParking, bool) {
	props := f.Properties

	stationID := strings.TrimSpace(propString(props, "ID_STA"))
	if stationID == "" {
		log.Print("[parking] feature missing ID_STA, skipping")
		return MunicipalParking{}, false
	}

	borough := propString(props, "ARRONDISSEMENT")
	if borough == "" {
		borough = propString(props, "BOROUGH")
	}
	if borough == "" {
		log.Printf("[parking] feature %s missing borough, skipping", stationID)
		return MunicipalParking{}, false
	}

	x, okX := parseCoordinate(props["X"])
	y, okY := parseCoordinate(props["Y"])
	if !okX || !okY {
		log.Printf("[parking] feature %s has invalid coordinates, skipping", stationID)
		return MunicipalParking{}, false
	}
	lat, lon := MTMToWGS84(x, y)

	payment := propString(props, "TYPE_PAY")
	if payment == "" {
		payment = "0"
	}

	return MunicipalParking{
		StationID:      stationID,
		Borough:        borough,
		NumberOfSpaces: propIntPtr(props, "NBR_PLA"),
		Latitude:       lat,
		Longitude:      lon,
		Jurisdiction:   propStringPtr(props, "JURIDICTION"),
		LocationFR:     propStringPtr(props, "EMPLACEMENT"),
		LocationEN:     propStringPtr(props, "LOCATION"),
		HoursFR:        propStringPtr(props, "HEURES"),
		HoursEN:        propStringPtr(props, "HOURS"),
		NoteFR:         propStringPtr(props, "NOTE_FR"),
		NoteEN:         propStringPtr(props, "NOTE_EN"),
		PaymentType:    payment,
		UpdatedAt:      time.Now(),
	}, true
}

// parseCoordinate reads a coordinate that may be numeric or a string using a
// comma as decimal separator, as the source file does.
func parseCoordinate(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", "."), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func propString(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func propStringPtr(props geojson.Properties, key string) *string {
	s := propString(props, key)
	if s == "" {
		return nil
	}
	return &s
}

func propIntPtr(props geojson.Properties, key string) *int {
	switch v := props[key].(type) {
	case float64:
		i := int(v)
		return &i
	case int:
		i := v
		return &i
	}
	return nil
}
