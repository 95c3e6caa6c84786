package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/henryleach/store-mqtt-data/internal/model"
	"github.com/henryleach/store-mqtt-data/internal/observability"
)

// ErrUnrecognizedMeasure is returned when an observation's measure type
// has no configured archive table. Nothing is written in that case.
var ErrUnrecognizedMeasure = errors.New("unrecognized measure type")

// Store defines the interface for all database operations.
type Store interface {
	PlaceStation(ctx context.Context, p Placement) error
	RecordObservation(ctx context.Context, obs Observation) error
	RecordGasPulse(ctx context.Context, pulse GasPulse) error

	Stations(ctx context.Context) ([]model.StationRecord, error)
	StationHistory(ctx context.Context, stationID string) ([]model.StationRecord, error)
	LatestValues(ctx context.Context, stationID string) ([]model.LastValue, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db              *gorm.DB
	archiveTables   map[string]string // measure_type -> archive table
	archiveInterval time.Duration
	clock           clockwork.Clock
	metrics         *observability.Metrics
}

// NewGormStore creates a new GORM-backed store. archiveTables maps each
// recognised measure type to its archive table name.
func NewGormStore(db *gorm.DB, archiveTables map[string]string, archiveInterval time.Duration, clock clockwork.Clock, metrics *observability.Metrics) Store {
	return &gormStore{
		db:              db,
		archiveTables:   archiveTables,
		archiveInterval: archiveInterval,
		clock:           clock,
		metrics:         metrics,
	}
}

// PlaceStation records where a station is located. A placement with an
// end time and Current false is a historical backfill and only inserts
// a single closed record. Otherwise any record still marked current for
// the station is closed at ValidFrom minus one second, and the new
// record becomes the current one.
func (s *gormStore) PlaceStation(ctx context.Context, p Placement) error {
	validFrom := p.ValidFrom
	if validFrom.IsZero() {
		validFrom = s.clock.Now().UTC()
	}

	if p.ValidTo != nil && !p.Current {
		// Backfill: inserted as-is, with no overlap check against
		// existing rows. Trusted manual data entry.
		record := model.StationRecord{
			StationID:   p.StationID,
			Location:    p.Location,
			Sublocation: p.Sublocation,
			Description: p.Description,
			ValidFrom:   validFrom,
			ValidTo:     p.ValidTo,
			IsCurrent:   false,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert backfill record for station %s: %w", p.StationID, err)
		}
		s.metrics.Placements.Inc()
		return nil
	}

	var open []model.StationRecord
	if err := s.db.WithContext(ctx).
		Where("station_id = ? AND is_current = ?", p.StationID, true).
		Find(&open).Error; err != nil {
		return fmt.Errorf("failed to fetch current records for station %s: %w", p.StationID, err)
	}

	// There shouldn't be more than one current record, but if there is,
	// close all of them and count the extras.
	if len(open) > 1 {
		log.Printf("Warning: station %s had %d current records, closing all", p.StationID, len(open))
		s.metrics.StaleCurrentClosed.Add(float64(len(open) - 1))
	}

	closeTime := validFrom.Add(-time.Second)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range open {
			if closeTime.Before(rec.ValidFrom) {
				// Accepted as-is, but worth alerting on.
				log.Printf("Warning: closing record %d of station %s with valid_to before valid_from", rec.ID, p.StationID)
				s.metrics.InvertedIntervals.Inc()
			}
			if err := tx.Model(&model.StationRecord{}).
				Where("id = ?", rec.ID).
				Updates(map[string]any{"valid_to": closeTime, "is_current": false}).Error; err != nil {
				return fmt.Errorf("failed to close record %d for station %s: %w", rec.ID, p.StationID, err)
			}
		}

		record := model.StationRecord{
			StationID:   p.StationID,
			Location:    p.Location,
			Sublocation: p.Sublocation,
			Description: p.Description,
			ValidFrom:   validFrom,
			ValidTo:     nil,
			IsCurrent:   true,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert current record for station %s: %w", p.StationID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Placements.Inc()
	return nil
}

// RecordObservation caches the latest value for the observation's
// (station, measure type) key and, if more than the archive interval
// has elapsed since the last archived value for that key, also writes
// it to the measure's archive table. An archive failure is absorbed so
// the cache still reflects the latest reading.
func (s *gormStore) RecordObservation(ctx context.Context, obs Observation) error {
	table, ok := s.archiveTables[obs.MeasureType]
	if !ok {
		s.metrics.ObservationsDropped.Inc()
		return fmt.Errorf("%w: %q", ErrUnrecognizedMeasure, obs.MeasureType)
	}

	// A missing cache row leaves lastArchive at the zero time, so the
	// first observation for a new key always archives.
	var lastArchive time.Time
	var cached model.LastValue
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND measure_type = ?", obs.StationID, obs.MeasureType).
		First(&cached).Error
	switch {
	case err == nil:
		lastArchive = cached.LastArchiveTime
	case errors.Is(err, gorm.ErrRecordNotFound):
		// keep zero
	default:
		return fmt.Errorf("failed to fetch last value for %s/%s: %w", obs.StationID, obs.MeasureType, err)
	}

	if obs.Timestamp.Sub(lastArchive) > s.archiveInterval {
		row := model.ArchiveRow{
			TimestampUTC: obs.Timestamp,
			StationID:    obs.StationID,
			Value:        obs.Value,
		}
		if aerr := s.db.WithContext(ctx).Table(table).Create(&row).Error; aerr != nil {
			// The cache update below still proceeds with the old
			// archive time, so a later observation retries.
			log.Printf("Warning: failed to archive %s for station %s: %v", obs.MeasureType, obs.StationID, aerr)
			s.metrics.ArchiveFailures.Inc()
		} else {
			lastArchive = obs.Timestamp
			s.metrics.Archived.Inc()
		}
	}

	entry := model.LastValue{
		StationID:       obs.StationID,
		MeasureType:     obs.MeasureType,
		TimestampUTC:    obs.Timestamp,
		Value:           obs.Value,
		LastArchiveTime: lastArchive,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}, {Name: "measure_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp_utc", "value", "last_archive_time"}),
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to upsert last value for %s/%s: %w", obs.StationID, obs.MeasureType, err)
	}

	s.metrics.Observations.WithLabelValues(obs.MeasureType).Inc()
	return nil
}

// RecordGasPulse appends a gas meter pulse to the gas archive. Pulses
// bypass the throttle and the last-value cache entirely.
func (s *gormStore) RecordGasPulse(ctx context.Context, pulse GasPulse) error {
	reading := model.GasReading{
		TimestampUTC:   pulse.Timestamp,
		StationID:      pulse.StationID,
		VolumeL:        pulse.VolumeL,
		IsMeterReading: false, // meter readings are only ever added manually
	}
	if err := s.db.WithContext(ctx).Create(&reading).Error; err != nil {
		return fmt.Errorf("failed to archive gas pulse for station %s: %w", pulse.StationID, err)
	}
	s.metrics.GasReadings.Inc()
	return nil
}

// Stations returns the current location record of every station.
func (s *gormStore) Stations(ctx context.Context) ([]model.StationRecord, error) {
	var records []model.StationRecord
	if err := s.db.WithContext(ctx).
		Where("is_current = ?", true).
		Order("station_id").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch stations: %w", err)
	}
	return records, nil
}

// StationHistory returns every location record of one station, oldest
// first.
func (s *gormStore) StationHistory(ctx context.Context, stationID string) ([]model.StationRecord, error) {
	var records []model.StationRecord
	if err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("valid_from").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history for station %s: %w", stationID, err)
	}
	return records, nil
}

// LatestValues returns the cached latest observation per measure type
// for one station.
func (s *gormStore) LatestValues(ctx context.Context, stationID string) ([]model.LastValue, error) {
	var values []model.LastValue
	if err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("measure_type").
		Find(&values).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch latest values for station %s: %w", stationID, err)
	}
	return values, nil
}

// DB exposes the underlying gorm handle for read-only API queries.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
