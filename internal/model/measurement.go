package model

import "time"

// LastValue holds the most recent observation per (station, measure
// type) pair, regardless of whether it was archived (hot table).
type LastValue struct {
	StationID       string    `gorm:"primaryKey;size:64"`
	MeasureType     string    `gorm:"primaryKey;size:32"`
	TimestampUTC    time.Time `gorm:"not null"`
	Value           float64   `gorm:"not null"`
	LastArchiveTime time.Time
}

// TableName keeps the table name used by the monitoring scripts.
func (LastValue) TableName() string { return "last_updates" }

// ArchiveRow is one durably archived observation (cold tables).
// The same shape is used for every measure kind; the target table is
// chosen per observation, so no TableName is defined here.
type ArchiveRow struct {
	TimestampUTC time.Time `gorm:"index;not null"`
	StationID    string    `gorm:"size:64;not null"`
	Value        float64   `gorm:"not null"`
}

// GasReading is one raw gas meter pulse. Pulses are sparse discrete
// events, so they are always archived and never cached.
type GasReading struct {
	TimestampUTC   time.Time `gorm:"index;not null"`
	StationID      string    `gorm:"size:64;not null"`
	VolumeL        int64     `gorm:"not null"`
	IsMeterReading bool      `gorm:"not null"` // false for pulses, true only for manual meter entries
}

// TableName keeps the table name used by the monitoring scripts.
func (GasReading) TableName() string { return "gas_use" }
