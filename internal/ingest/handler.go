package ingest

import (
	"context"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/observability"
	"github.com/henryleach/store-mqtt-data/internal/store"
)

// Handler holds the dependencies shared by the message callbacks, so
// they are passed explicitly rather than through client userdata.
type Handler struct {
	store    store.Store
	measures map[string]config.Measure
	clock    clockwork.Clock
	metrics  *observability.Metrics
}

// NewHandler creates a message handler backed by the given store.
func NewHandler(s store.Store, measures map[string]config.Measure, clock clockwork.Clock, metrics *observability.Metrics) *Handler {
	return &Handler{
		store:    s,
		measures: measures,
		clock:    clock,
		metrics:  metrics,
	}
}

// HandleEnvMessage caches an environmental reading and archives it if
// it is due. Decode and store failures are logged, never fatal; a
// failure on one message leaves every other key untouched.
func (h *Handler) HandleEnvMessage(_ mqtt.Client, msg mqtt.Message) {
	reading, err := DecodeEnvMessage(msg.Topic(), msg.Payload(), h.measures)
	if err != nil {
		log.Printf("Warning: dropping env message: %v", err)
		h.metrics.ObservationsDropped.Inc()
		return
	}

	obs := store.Observation{
		StationID:   reading.StationID,
		MeasureType: reading.MeasureType,
		Value:       reading.Value,
		Timestamp:   h.clock.Now().UTC(),
	}
	if err := h.store.RecordObservation(context.Background(), obs); err != nil {
		log.Printf("Error: failed to record %s for station %s: %v", obs.MeasureType, obs.StationID, err)
		return
	}
	log.Printf("recorded %s=%v for station %s", obs.MeasureType, obs.Value, obs.StationID)
}

// HandleGasMessage archives a gas meter pulse. Gas pulses skip the
// last-value cache.
func (h *Handler) HandleGasMessage(_ mqtt.Client, msg mqtt.Message) {
	stationID, volumeL, err := DecodeGasMessage(msg.Topic(), msg.Payload())
	if err != nil {
		log.Printf("Warning: dropping gas message: %v", err)
		return
	}

	pulse := store.GasPulse{
		StationID: stationID,
		VolumeL:   volumeL,
		Timestamp: h.clock.Now().UTC(),
	}
	if err := h.store.RecordGasPulse(context.Background(), pulse); err != nil {
		log.Printf("Error: failed to record gas pulse for station %s: %v", stationID, err)
		return
	}
	log.Printf("archived gas pulse of %d l for station %s", volumeL, stationID)
}
