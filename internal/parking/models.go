package parking

import "time"

// MunicipalParking is one winter parking lot from Montreal Open Data,
// upserted on station_id.
type MunicipalParking struct {
	StationID      string    `gorm:"column:station_id;primaryKey" json:"station_id"`
	Borough        string    `gorm:"column:borough" json:"borough"`
	NumberOfSpaces *int      `gorm:"column:number_of_spaces" json:"number_of_spaces,omitempty"`
	Latitude       float64   `gorm:"column:latitude" json:"latitude"`
	Longitude      float64   `gorm:"column:longitude" json:"longitude"`
	Jurisdiction   *string   `gorm:"column:jurisdiction" json:"jurisdiction,omitempty"`
	LocationFR     *string   `gorm:"column:location_fr" json:"location_fr,omitempty"`
	LocationEN     *string   `gorm:"column:location_en" json:"location_en,omitempty"`
	HoursFR        *string   `gorm:"column:hours_fr" json:"hours_fr,omitempty"`
	HoursEN        *string   `gorm:"column:hours_en" json:"hours_en,omitempty"`
	NoteFR         *string   `gorm:"column:note_fr" json:"note_fr,omitempty"`
	NoteEN         *string   `gorm:"column:note_en" json:"note_en,omitempty"`
	PaymentType    string    `gorm:"column:payment_type" json:"payment_type"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (MunicipalParking) TableName() string {
	return "municipal_parking"
}
