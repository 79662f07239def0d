package snow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB wraps json.RawMessage with Scanner/Valuer for GORM JSONB columns.
type JSONB json.RawMessage

func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("unsupported type: %T", value)
	}
	return nil
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(j).MarshalJSON()
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	if j == nil {
		return fmt.Errorf("JSONB: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// Street is one side of one street segment from the geobase-double network.
// Attributes mirror the geobase feature; Geometry holds the normalized
// LineString as EWKT and StreetFeature keeps the full source feature.
type Street struct {
	CoteRueID     int       `gorm:"column:cote_rue_id;primaryKey" json:"cote_rue_id"`
	IDTrc         *int      `gorm:"column:id_trc" json:"id_trc,omitempty"`
	IDVoie        *int      `gorm:"column:id_voie" json:"id_voie,omitempty"`
	NomVoie       string    `gorm:"column:nom_voie;index" json:"nom_voie"`
	NomVille      string    `gorm:"column:nom_ville" json:"nom_ville"`
	DebutAdresse  *int      `gorm:"column:debut_adresse" json:"debut_adresse,omitempty"`
	FinAdresse    *int      `gorm:"column:fin_adresse" json:"fin_adresse,omitempty"`
	Cote          string    `gorm:"column:cote" json:"cote"`
	TypeF         *int      `gorm:"column:type_f" json:"type_f,omitempty"`
	SensCir       *int      `gorm:"column:sens_cir" json:"sens_cir,omitempty"`
	Geometry      *string   `gorm:"column:geometry;type:geography(LineString,4326)" json:"-"`
	StreetFeature JSONB     `gorm:"column:street_feature;type:jsonb" json:"street_feature,omitempty"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Street) TableName() string {
	return "streets"
}

// DeneigementCurrent is the single current-state row per street side. The
// state code and scheduling timestamps stay nil when the source never sent
// them; the sparse upsert never nulls out a previously stored value.
type DeneigementCurrent struct {
	CoteRueID         int        `gorm:"column:cote_rue_id;primaryKey" json:"cote_rue_id"`
	EtatDeneig        *int       `gorm:"column:etat_deneig" json:"etat_deneig,omitempty"`
	Status            string     `gorm:"column:status" json:"status"`
	DateDebutPlanif   *time.Time `gorm:"column:date_debut_planif" json:"date_debut_planif,omitempty"`
	DateFinPlanif     *time.Time `gorm:"column:date_fin_planif" json:"date_fin_planif,omitempty"`
	DateDebutReplanif *time.Time `gorm:"column:date_debut_replanif" json:"date_debut_replanif,omitempty"`
	DateFinReplanif   *time.Time `gorm:"column:date_fin_replanif" json:"date_fin_replanif,omitempty"`
	DateMaj           *time.Time `gorm:"column:date_maj;index" json:"date_maj,omitempty"`

	Street *Street `gorm:"foreignKey:CoteRueID;references:CoteRueID" json:"-"`
}

func (DeneigementCurrent) TableName() string {
	return "deneigement_current"
}

// DeneigementEvent is one detected state transition. Append-only: rows are
// never updated or deleted. OldEtat/OldStatus are nil on first observation.
type DeneigementEvent struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CoteRueID int        `gorm:"column:cote_rue_id;index" json:"cote_rue_id"`
	OldEtat   *int       `gorm:"column:old_etat" json:"old_etat,omitempty"`
	NewEtat   *int       `gorm:"column:new_etat" json:"new_etat,omitempty"`
	OldStatus *string    `gorm:"column:old_status" json:"old_status,omitempty"`
	NewStatus string     `gorm:"column:new_status" json:"new_status"`
	EventDate *time.Time `gorm:"column:event_date" json:"event_date,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`

	Street *Street `gorm:"foreignKey:CoteRueID;references:CoteRueID" json:"-"`
}

func (DeneigementEvent) TableName() string {
	return "deneigement_events"
}

// IngestRun records one batch invocation for post-run auditing.
type IngestRun struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FromDate        time.Time `gorm:"column:from_date" json:"from_date"`
	StartedAt       time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt      time.Time `gorm:"column:finished_at" json:"finished_at"`
	RecordCount     int       `gorm:"column:record_count" json:"record_count"`
	ChunkCount      int       `gorm:"column:chunk_count" json:"chunk_count"`
	Total           int       `gorm:"column:total" json:"total"`
	StreetsUpserted int       `gorm:"column:streets_upserted" json:"streets_upserted"`
	StreetsSkipped  int       `gorm:"column:streets_skipped" json:"streets_skipped"`
	CurrentUpserted int       `gorm:"column:current_upserted" json:"current_upserted"`
	MissingID       int       `gorm:"column:missing_id" json:"missing_id"`
	Failed          int       `gorm:"column:failed" json:"failed"`
}

func (IngestRun) TableName() string {
	return "ingest_runs"
}
