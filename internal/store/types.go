package store

import "time"

// Placement is one station-location fact, from the CLI or a config
// driven backfill. Current should be true iff no ValidTo is supplied.
type Placement struct {
	StationID   string
	Location    string
	Sublocation string
	Description string
	ValidFrom   time.Time // zero means "now"
	ValidTo     *time.Time
	Current     bool
}

// Observation is one decoded environmental measurement.
type Observation struct {
	StationID   string
	MeasureType string
	Value       float64
	Timestamp   time.Time
}

// GasPulse is one decoded gas meter pulse.
type GasPulse struct {
	StationID string
	VolumeL   int64
	Timestamp time.Time
}
