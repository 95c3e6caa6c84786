package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/henryleach/store-mqtt-data/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store) *Handler {
	return &Handler{store: s}
}

// GetHealth reports liveness, including a database ping.
func (h *Handler) GetHealth(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// stationResponse is the JSON shape of one station location record.
type stationResponse struct {
	StationID   string     `json:"stationId"`
	Location    string     `json:"location"`
	Sublocation string     `json:"sublocation,omitempty"`
	Description string     `json:"description,omitempty"`
	ValidFrom   time.Time  `json:"validFrom"`
	ValidTo     *time.Time `json:"validTo,omitempty"`
	IsCurrent   bool       `json:"isCurrent"`
}

// GetStations handles GET /api/stations, returning the current
// location of every station.
func (h *Handler) GetStations(c *gin.Context) {
	records, err := h.store.Stations(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stations"})
		return
	}

	response := make([]stationResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, stationResponse{
			StationID:   rec.StationID,
			Location:    rec.Location,
			Sublocation: rec.Sublocation,
			Description: rec.Description,
			ValidFrom:   rec.ValidFrom,
			ValidTo:     rec.ValidTo,
			IsCurrent:   rec.IsCurrent,
		})
	}
	c.JSON(http.StatusOK, response)
}

// GetStationHistory handles GET /api/stations/{station_id}/history.
func (h *Handler) GetStationHistory(c *gin.Context) {
	stationID := c.Param("station_id")

	records, err := h.store.StationHistory(c.Request.Context(), stationID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve station history"})
		return
	}
	if len(records) == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown station"})
		return
	}

	response := make([]stationResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, stationResponse{
			StationID:   rec.StationID,
			Location:    rec.Location,
			Sublocation: rec.Sublocation,
			Description: rec.Description,
			ValidFrom:   rec.ValidFrom,
			ValidTo:     rec.ValidTo,
			IsCurrent:   rec.IsCurrent,
		})
	}
	c.JSON(http.StatusOK, response)
}

// latestValueResponse is the JSON shape of one cached latest reading.
type latestValueResponse struct {
	MeasureType  string    `json:"measureType"`
	Value        float64   `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
	LastArchived time.Time `json:"lastArchived"`
}

// GetLatestValues handles GET /api/stations/{station_id}/latest,
// serving the last-value cache for dashboards. Not response-cached so
// the values stay instantaneous.
func (h *Handler) GetLatestValues(c *gin.Context) {
	stationID := c.Param("station_id")

	values, err := h.store.LatestValues(c.Request.Context(), stationID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve latest values"})
		return
	}

	response := make([]latestValueResponse, 0, len(values))
	for _, v := range values {
		response = append(response, latestValueResponse{
			MeasureType:  v.MeasureType,
			Value:        v.Value,
			Timestamp:    v.TimestampUTC,
			LastArchived: v.LastArchiveTime,
		})
	}
	c.JSON(http.StatusOK, response)
}
