package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/db"
	"github.com/henryleach/store-mqtt-data/internal/observability"
	"github.com/henryleach/store-mqtt-data/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	archiveTables := map[string]string{"temp_c": "temperature"}
	require.NoError(t, db.Migrate(testDB, archiveTables))

	s := store.NewGormStore(testDB, archiveTables, 600*time.Second,
		clockwork.NewRealClock(), observability.NewTestMetrics())

	cfg := &config.ServerConfig{Port: 8080, RateLimitPerSec: 1000, CacheTTLSeconds: 1}
	return NewRouter(s, cfg), s
}

func doGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetStationHistory(t *testing.T) {
	router, s := newTestRouter(t)
	ctx := context.Background()

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.PlaceStation(ctx, store.Placement{StationID: "esp-01", Location: "kitchen", ValidFrom: t0, Current: true}))
	require.NoError(t, s.PlaceStation(ctx, store.Placement{StationID: "esp-01", Location: "bedroom", ValidFrom: t0.Add(24 * time.Hour), Current: true}))

	w := doGet(t, router, "/api/stations/esp-01/history")
	require.Equal(t, http.StatusOK, w.Code)

	var response []stationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 2)
	assert.Equal(t, "kitchen", response[0].Location)
	assert.False(t, response[0].IsCurrent)
	assert.Equal(t, "bedroom", response[1].Location)
	assert.True(t, response[1].IsCurrent)
}

func TestGetStationHistoryUnknownStation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doGet(t, router, "/api/stations/nope/history")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLatestValues(t *testing.T) {
	router, s := newTestRouter(t)

	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordObservation(context.Background(), store.Observation{
		StationID:   "esp-01",
		MeasureType: "temp_c",
		Value:       21.5,
		Timestamp:   ts,
	}))

	w := doGet(t, router, "/api/stations/esp-01/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var response []latestValueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "temp_c", response[0].MeasureType)
	assert.Equal(t, 21.5, response[0].Value)
	assert.True(t, response[0].Timestamp.Equal(ts))
}

func TestGetHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doGet(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
