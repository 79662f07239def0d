package snow

import (
	"fmt"

	"gorm.io/gorm"
)

// Init prepares the snow tables. The geometry column is PostGIS geography,
// so the extension has to exist before AutoMigrate sees the model.
func Init(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error; err != nil {
		return fmt.Errorf("enable postgis extension: %w", err)
	}

	if err := db.AutoMigrate(
		&Street{},
		&DeneigementCurrent{},
		&DeneigementEvent{},
		&IngestRun{},
	); err != nil {
		return fmt.Errorf("auto-migrate snow tables: %w", err)
	}

	return nil
}
