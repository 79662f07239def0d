package snow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// fromDateRe pins the from_date query parameter to YYYY-MM-DDTHH:MM:SS,
// nothing looser.
var fromDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`)

// defaultLookback is how far back /planifications reaches when no from_date
// is given, matching the upstream service's own window.
const defaultLookback = 60 * 24 * time.Hour

// API serves the read-only planning state. All collaborators are injected;
// Cache is optional and the handlers fail open when it is down.
type API struct {
	DB       *gorm.DB
	Cache    *redis.Client
	CacheTTL time.Duration
}

// PlanificationOut is a current-state row enriched with the stored geobase
// feature for its street side.
type PlanificationOut struct {
	DeneigementCurrent
	StreetFeature JSONB `json:"streetFeature,omitempty"`
}

// StreetOut is a street row with its snow state optionally embedded.
type StreetOut struct {
	Street
	Deneigement *DeneigementCurrent `json:"deneigement_current,omitempty"`
}

// ListPlanifications handles GET /planifications?from_date=...
func (a *API) ListPlanifications(w http.ResponseWriter, r *http.Request) {
	fromParam := r.URL.Query().Get("from_date")

	from := time.Now().Add(-defaultLookback)
	if fromParam != "" {
		if !fromDateRe.MatchString(fromParam) {
			http.Error(w, fmt.Sprintf(
				"Invalid date format: %q. Expected format: YYYY-MM-DDTHH:MM:SS (e.g. 2024-12-09T08:00:00)",
				fromParam), http.StatusBadRequest)
			return
		}
		parsed, err := time.Parse("2006-01-02T15:04:05", fromParam)
		if err != nil {
			http.Error(w, "Invalid date: "+fromParam, http.StatusBadRequest)
			return
		}
		from = parsed
	}

	if body, ok := a.cacheGet(r.Context(), "planifs:"+fromParam); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	var rows []DeneigementCurrent
	if err := a.DB.WithContext(r.Context()).
		Where("date_maj >= ?", from).
		Order("date_maj DESC").
		Find(&rows).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := a.enrich(r.Context(), rows)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(out)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	a.cacheSet(r.Context(), "planifs:"+fromParam, body)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// GetPlanification handles GET /planifications/{streetSideID}.
func (a *API) GetPlanification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "streetSideID"))
	if err != nil {
		http.Error(w, "Invalid street side ID", http.StatusBadRequest)
		return
	}

	var row DeneigementCurrent
	err = a.DB.WithContext(r.Context()).First(&row, "cote_rue_id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		http.Error(w, fmt.Sprintf("No planification found for street side ID: %d", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := a.enrich(r.Context(), []DeneigementCurrent{row})
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out[0]); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListStreets handles GET /streets with optional bounding box, snow status
// embedding and accent-insensitive name search.
func (a *API) ListStreets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeSnow := q.Get("include_snow") == "true"

	var streets []Street
	bbox, err := parseBBox(q.Get("minLat"), q.Get("minLng"), q.Get("maxLat"), q.Get("maxLng"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx := a.DB.WithContext(r.Context()).Order("nom_voie ASC")
	if bbox != nil {
		tx = tx.Where(
			"geometry IS NOT NULL AND ST_Intersects(geometry::geometry, ST_MakeEnvelope(?, ?, ?, ?, 4326))",
			bbox.minLng, bbox.minLat, bbox.maxLng, bbox.maxLat,
		)
	}
	if err := tx.Find(&streets).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if search := strings.TrimSpace(q.Get("q")); search != "" {
		needle := foldAccents(strings.ToLower(search))
		filtered := streets[:0]
		for _, s := range streets {
			if strings.Contains(foldAccents(strings.ToLower(s.NomVoie)), needle) {
				filtered = append(filtered, s)
			}
		}
		streets = filtered
	}

	out := make([]StreetOut, len(streets))
	for i, s := range streets {
		out[i] = StreetOut{Street: s}
	}

	if includeSnow && len(streets) > 0 {
		ids := make([]int64, len(streets))
		for i, s := range streets {
			ids[i] = int64(s.CoteRueID)
		}

		var current []DeneigementCurrent
		if err := a.DB.WithContext(r.Context()).Raw(`
			SELECT * FROM deneigement_current WHERE cote_rue_id = ANY(?)
		`, pq.Array(ids)).Scan(&current).Error; err != nil {
			http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		byID := make(map[int]*DeneigementCurrent, len(current))
		for i := range current {
			byID[current[i].CoteRueID] = &current[i]
		}
		for i := range out {
			out[i].Deneigement = byID[out[i].CoteRueID]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// HealthHandler reports liveness plus a database ping.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "healthy"}
	if sqlDB, err := a.DB.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// enrich attaches each row's stored street feature, batch-loaded in one
// query.
func (a *API) enrich(ctx context.Context, rows []DeneigementCurrent) ([]PlanificationOut, error) {
	out := make([]PlanificationOut, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		out[i] = PlanificationOut{DeneigementCurrent: row}
		ids[i] = int64(row.CoteRueID)
	}

	type featureRow struct {
		CoteRueID     int   `gorm:"column:cote_rue_id"`
		StreetFeature JSONB `gorm:"column:street_feature"`
	}
	var features []featureRow
	if err := a.DB.WithContext(ctx).Raw(`
		SELECT cote_rue_id, street_feature FROM streets WHERE cote_rue_id = ANY(?)
	`, pq.Array(ids)).Scan(&features).Error; err != nil {
		return nil, fmt.Errorf("fetch street features: %w", err)
	}

	byID := make(map[int]JSONB, len(features))
	for _, f := range features {
		byID[f.CoteRueID] = f.StreetFeature
	}
	for i := range out {
		out[i].StreetFeature = byID[out[i].CoteRueID]
	}
	return out, nil
}

func (a *API) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if a.Cache == nil {
		return nil, false
	}
	body, err := a.Cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

func (a *API) cacheSet(ctx context.Context, key string, body []byte) {
	if a.Cache == nil {
		return
	}
	ttl := a.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	// Best effort: a cache write failure is not the client's problem.
	a.Cache.Set(ctx, key, body, ttl)
}

type bbox struct {
	minLat, minLng, maxLat, maxLng float64
}

func parseBBox(minLat, minLng, maxLat, maxLng string) (*bbox, error) {
	if minLat == "" && minLng == "" && maxLat == "" && maxLng == "" {
		return nil, nil
	}
	vals := [4]float64{}
	for i, s := range []string{minLat, minLng, maxLat, maxLng} {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bounding box: all of minLat, minLng, maxLat, maxLng are required")
		}
		vals[i] = f
	}
	return &bbox{minLat: vals[0], minLng: vals[1], maxLat: vals[2], maxLng: vals[3]}, nil
}

// accentFolder strips combining marks so "Décarie" matches "decarie".
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}
