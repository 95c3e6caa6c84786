package internal

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/db"
	"github.com/henryleach/store-mqtt-data/internal/ingest"
	"github.com/henryleach/store-mqtt-data/internal/model"
	"github.com/henryleach/store-mqtt-data/internal/observability"
	"github.com/henryleach/store-mqtt-data/internal/store"
)

// fakeMessage satisfies the paho mqtt.Message interface for tests.
type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

// TestIngestionLifecycle drives decoded MQTT messages through the
// handler into a live in-memory database and verifies the cache,
// archive and gas tables after each step.
func TestIngestionLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:ingestion_lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	measures := config.DefaultMeasures()
	archiveTables := map[string]string{
		"temp_c":       "temperature",
		"humidity_pct": "humidity",
	}
	require.NoError(t, db.Migrate(testDB, archiveTables))

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	metrics := observability.NewTestMetrics()

	appStore := store.NewGormStore(testDB, archiveTables, 600*time.Second, clock, metrics)
	handler := ingest.NewHandler(appStore, measures, clock, metrics)

	// First reading: archived immediately and cached.
	handler.HandleEnvMessage(nil, fakeMessage{topic: "env/temp/esp-01", payload: "21.5"})

	var archived []model.ArchiveRow
	require.NoError(t, testDB.Table("temperature").Find(&archived).Error)
	require.Len(t, archived, 1)

	var cached model.LastValue
	require.NoError(t, testDB.Where("station_id = ? AND measure_type = ?", "esp-01", "temp_c").First(&cached).Error)
	assert.Equal(t, 21.5, cached.Value)
	assert.True(t, cached.LastArchiveTime.Equal(start))

	// A burst within the archive interval only refreshes the cache.
	clock.Advance(30 * time.Second)
	handler.HandleEnvMessage(nil, fakeMessage{topic: "env/temp/esp-01", payload: "21.9"})
	clock.Advance(30 * time.Second)
	handler.HandleEnvMessage(nil, fakeMessage{topic: "env/temp/esp-01", payload: "22.1"})

	require.NoError(t, testDB.Table("temperature").Find(&archived).Error)
	assert.Len(t, archived, 1)

	require.NoError(t, testDB.Where("station_id = ? AND measure_type = ?", "esp-01", "temp_c").First(&cached).Error)
	assert.Equal(t, 22.1, cached.Value)
	assert.True(t, cached.LastArchiveTime.Equal(start))

	// Past the interval the next reading is archived again.
	clock.Advance(10 * time.Minute)
	handler.HandleEnvMessage(nil, fakeMessage{topic: "env/temp/esp-01", payload: "20.7"})

	require.NoError(t, testDB.Table("temperature").Find(&archived).Error)
	assert.Len(t, archived, 2)

	// A reading for an unconfigured measure is dropped without a write.
	handler.HandleEnvMessage(nil, fakeMessage{topic: "env/pressure/esp-01", payload: "1013"})
	var cacheCount int64
	require.NoError(t, testDB.Model(&model.LastValue{}).Count(&cacheCount).Error)
	assert.Equal(t, int64(1), cacheCount)

	// Gas pulses land straight in the archive, one row per pulse.
	handler.HandleGasMessage(nil, fakeMessage{topic: "utility/gas/meter-01", payload: "10"})
	handler.HandleGasMessage(nil, fakeMessage{topic: "utility/gas/meter-01", payload: "10"})

	var gas []model.GasReading
	require.NoError(t, testDB.Find(&gas).Error)
	require.Len(t, gas, 2)
	assert.False(t, gas[0].IsMeterReading)

	// Humidity readings use their own archive table and cache key.
	handler.HandleEnvMessage(nil, fakeMessage{topic: "env/humidity/esp-01", payload: "48.2"})

	var humidity []model.ArchiveRow
	require.NoError(t, testDB.Table("humidity").Find(&humidity).Error)
	assert.Len(t, humidity, 1)

	require.NoError(t, testDB.Model(&model.LastValue{}).Count(&cacheCount).Error)
	assert.Equal(t, int64(2), cacheCount)
}
