package snow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/InfoNeigeMTL/neige-backend/internal/geobase"
	"github.com/InfoNeigeMTL/neige-backend/internal/geometry"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the write surface the reconciliation engine drives. Reads report
// absence explicitly instead of smuggling it through an error.
type Store interface {
	StreetExists(ctx context.Context, coteRueID int) (bool, error)
	UpsertStreet(ctx context.Context, f *geojson.Feature) error
	GetCurrent(ctx context.Context, coteRueID int) (*DeneigementCurrent, bool, error)
	UpsertCurrent(ctx context.Context, row *DeneigementCurrent) error
	InsertEvent(ctx context.Context, ev *DeneigementEvent) error

	// Serialized runs fn while holding an exclusive per-street lock, for
	// deployments that want exactly-once event semantics across concurrent
	// chunks touching the same identifier.
	Serialized(ctx context.Context, coteRueID int, fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a GORM handle in the engine's storage contract.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) StreetExists(ctx context.Context, coteRueID int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Street{}).
		Where("cote_rue_id = ?", coteRueID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("street exists %d: %w", coteRueID, err)
	}
	return n > 0, nil
}

// UpsertStreet inserts or refreshes the street row for a geobase feature.
// The geometry is normalized to a single LineString first; when normalization
// is impossible the attributes still persist, the geometry column is just
// left alone.
func (s *gormStore) UpsertStreet(ctx context.Context, f *geojson.Feature) error {
	coteRueID, ok := geobase.FeatureID(f)
	if !ok {
		return errors.New("feature has no COTE_RUE_ID")
	}

	props := f.Properties
	street := Street{
		CoteRueID:    coteRueID,
		IDTrc:        propIntPtr(props, "ID_TRC"),
		IDVoie:       propIntPtr(props, "ID_VOIE"),
		NomVoie:      props.MustString("NOM_VOIE", ""),
		NomVille:     props.MustString("NOM_VILLE", ""),
		DebutAdresse: propIntPtr(props, "DEBUT_ADRESSE"),
		FinAdresse:   propIntPtr(props, "FIN_ADRESSE"),
		Cote:         props.MustString("COTE", ""),
		TypeF:        propIntPtr(props, "TYPE_F"),
		SensCir:      propIntPtr(props, "SENS_CIR"),
		UpdatedAt:    time.Now(),
	}

	cols := []string{
		"id_trc", "id_voie", "nom_voie", "nom_ville",
		"debut_adresse", "fin_adresse", "cote", "type_f", "sens_cir",
		"street_feature", "updated_at",
	}

	stored := f
	if normalized, err := geometry.NormalizeLineString(f.Geometry); err == nil {
		ewkt, _ := geometry.ToEWKT(normalized)
		street.Geometry = &ewkt
		cols = append(cols, "geometry")

		// Persist the normalized geometry in the feature blob too; copy so
		// the shared directory feature stays untouched.
		stored = geojson.NewFeature(normalized)
		stored.Properties = f.Properties
	} else {
		log.Printf("[snow] cote_rue_id=%d: %v, keeping attributes without geometry", coteRueID, err)
	}

	blob, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal street feature %d: %w", coteRueID, err)
	}
	street.StreetFeature = JSONB(blob)

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cote_rue_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&street).Error
	if err != nil {
		return fmt.Errorf("upsert street %d: %w", coteRueID, err)
	}
	return nil
}

func (s *gormStore) GetCurrent(ctx context.Context, coteRueID int) (*DeneigementCurrent, bool, error) {
	var row DeneigementCurrent
	err := s.db.WithContext(ctx).First(&row, "cote_rue_id = ?", coteRueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get current %d: %w", coteRueID, err)
	}
	return &row, true, nil
}

// UpsertCurrent writes the current-state row keyed on cote_rue_id. The merge
// is sparse: only columns the incoming record actually carries are assigned
// on conflict, so an absent timestamp never clobbers a stored one.
func (s *gormStore) UpsertCurrent(ctx context.Context, row *DeneigementCurrent) error {
	cols := []string{"status"}
	if row.EtatDeneig != nil {
		cols = append(cols, "etat_deneig")
	}
	if row.DateDebutPlanif != nil {
		cols = append(cols, "date_debut_planif")
	}
	if row.DateFinPlanif != nil {
		cols = append(cols, "date_fin_planif")
	}
	if row.DateDebutReplanif != nil {
		cols = append(cols, "date_debut_replanif")
	}
	if row.DateFinReplanif != nil {
		cols = append(cols, "date_fin_replanif")
	}
	if row.DateMaj != nil {
		cols = append(cols, "date_maj")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cote_rue_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert current %d: %w", row.CoteRueID, err)
	}
	return nil
}

func (s *gormStore) InsertEvent(ctx context.Context, ev *DeneigementEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("insert event %d: %w", ev.CoteRueID, err)
	}
	return nil
}

// Serialized wraps fn in a transaction holding pg_advisory_xact_lock on the
// identifier. The lock releases with the transaction on every exit path.
func (s *gormStore) Serialized(ctx context.Context, coteRueID int, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(coteRueID)).Error; err != nil {
			return fmt.Errorf("advisory lock %d: %w", coteRueID, err)
		}
		return fn(&gormStore{db: tx})
	})
}

// RecordRun persists the audit row for one batch invocation.
func RecordRun(ctx context.Context, db *gorm.DB, run *IngestRun) error {
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

func propIntPtr(props geojson.Properties, key string) *int {
	v, ok := props[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		i := n
		return &i
	}
	return nil
}

// isForeignKeyViolation recognizes Postgres error 23503, the referential
// failure mode when a current-state write races a missing street row.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "23503") || strings.Contains(msg, "foreign key")
}
