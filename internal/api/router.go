package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/mw"
	"github.com/henryleach/store-mqtt-data/internal/store"
)

// NewRouter creates and configures a new Gin router for the read-only
// dashboard API.
func NewRouter(s store.Store, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), 5)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/stations", caching, handler.GetStations)
		api.GET("/stations/:station_id/history", caching, handler.GetStationHistory)
		api.GET("/stations/:station_id/latest", handler.GetLatestValues)
	}

	return r
}
