package db

import (
	"encoding/json"
	"time"
)

// ProductRecord maps catalog.products. The resolved record travels as one
// jsonb payload; the extracted columns exist for filtering and listing
// without unmarshaling every row.
type ProductRecord struct {
	GTIN        int64           `gorm:"column:gtin;primaryKey"`
	Vertical    string          `gorm:"column:vertical;type:text;not null;index"`
	Brand       string          `gorm:"column:brand;type:text;not null;default:'';index"`
	Model       string          `gorm:"column:model;type:text;not null;default:''"`
	CoverPath   string          `gorm:"column:cover_path;type:text;not null;default:''"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	LastChange  time.Time       `gorm:"column:last_change;type:timestamptz;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ProductRecord) TableName() string { return "catalog.products" }

func autoMigrateModels() []any {
	return []any{
		&ProductRecord{},
	}
}
