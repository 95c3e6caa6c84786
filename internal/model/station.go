package model

import "time"

// StationRecord describes where a station was located during one
// interval of its history. The interval is half-open: [ValidFrom,
// ValidTo). ValidTo is nil while the record is current.
type StationRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	StationID   string    `gorm:"size:64;index;not null"`
	Location    string    `gorm:"size:128;not null"`
	Sublocation string    `gorm:"size:128"`
	Description string    `gorm:"size:256"`
	ValidFrom   time.Time `gorm:"not null"`
	ValidTo     *time.Time
	IsCurrent   bool `gorm:"index;not null"`
}

// TableName keeps the table name used by the monitoring scripts.
func (StationRecord) TableName() string { return "stations" }
