package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/henryleach/store-mqtt-data/config"
)

// Topic layouts, as published by the sensor stations:
//
//	env/<measure key>/<station id>   payload: float value
//	utility/gas/<station id>         payload: integer litres
var (
	ErrMalformedTopic    = errors.New("malformed topic")
	ErrUnknownMeasureKey = errors.New("unknown measure key")
)

// EnvReading is a decoded environmental measurement, before the arrival
// timestamp is attached.
type EnvReading struct {
	StationID   string
	MeasureType string
	Value       float64
}

// DecodeEnvMessage splits an env topic and payload into a reading. The
// measure key is mapped to its configured measure type; unknown keys
// are rejected without any further processing.
func DecodeEnvMessage(topic string, payload []byte, measures map[string]config.Measure) (EnvReading, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "env" || parts[2] == "" {
		return EnvReading{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	measure, ok := measures[parts[1]]
	if !ok {
		return EnvReading{}, fmt.Errorf("%w: %q", ErrUnknownMeasureKey, parts[1])
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return EnvReading{}, fmt.Errorf("unparseable payload on %q: %w", topic, err)
	}

	return EnvReading{
		StationID:   parts[2],
		MeasureType: measure.MeasureType,
		Value:       value,
	}, nil
}

// DecodeGasMessage splits a gas topic and payload into a station id and
// a pulse volume in litres.
func DecodeGasMessage(topic string, payload []byte) (stationID string, volumeL int64, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "utility" || parts[1] != "gas" || parts[2] == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	volumeL, err = strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("unparseable payload on %q: %w", topic, err)
	}

	return parts[2], volumeL, nil
}
