// stationctl adds station placement records from the command line,
// either as the station's new current location or as a historical
// backfill when an end time is given.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/db"
	"github.com/henryleach/store-mqtt-data/internal/observability"
	"github.com/henryleach/store-mqtt-data/internal/parse"
	"github.com/henryleach/store-mqtt-data/internal/store"
)

func main() {
	var (
		stationID   = flag.String("id", "", "unique station ID for which to add an entry (required)")
		location    = flag.String("location", "", "station's location (required)")
		sublocation = flag.String("sublocation", "", "station's sublocation")
		description = flag.String("description", "", "optional description of the station or location")
		from        = flag.String("from", "", "UTC time from which the station is active in this location, ISO format `YYYY-MM-DDTHH:MM:SS+00:00`; current time if not specified, UTC assumed if the offset is omitted")
		to          = flag.String("to", "", "UTC time until which the station was at that location; omitting it implies this is the current location")
		configPath  = flag.String("config", "./store-mqtt-data.yaml", "path to the config file")
		dsn         = flag.String("dsn", "", "database DSN, overriding the one in the config file")
	)
	flag.Parse()

	if *stationID == "" || *location == "" {
		flag.Usage()
		os.Exit(2)
	}

	storageCfg, archiveTables, err := loadStorage(*configPath, *dsn)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var validFrom time.Time
	if *from != "" {
		validFrom, err = parse.TimestampUTC(*from)
		if err != nil {
			log.Fatalf("invalid -from: %v", err)
		}
	}

	var validTo *time.Time
	if *to != "" {
		t, err := parse.TimestampUTC(*to)
		if err != nil {
			log.Fatalf("invalid -to: %v", err)
		}
		validTo = &t
	}

	gormDB, err := db.Init(storageCfg, archiveTables)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	s := store.NewGormStore(gormDB, archiveTables, storageCfg.ArchiveInterval, clockwork.NewRealClock(), observability.NewMetrics())

	placement := store.Placement{
		StationID:   *stationID,
		Location:    *location,
		Sublocation: *sublocation,
		Description: *description,
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		Current:     validTo == nil,
	}
	if err := s.PlaceStation(context.Background(), placement); err != nil {
		log.Fatalf("failed to place station: %v", err)
	}

	if placement.Current {
		log.Printf("station %s is now current at %q", *stationID, *location)
	} else {
		log.Printf("added historical entry for station %s at %q", *stationID, *location)
	}
}

// loadStorage reads the storage settings from the config file, unless a
// DSN override makes the file unnecessary.
func loadStorage(configPath, dsnOverride string) (*config.StorageConfig, map[string]string, error) {
	if dsnOverride != "" {
		cfg := &config.StorageConfig{
			DSN:             dsnOverride,
			Driver:          "sqlite",
			ArchiveInterval: 600 * time.Second,
		}
		tables := map[string]string{}
		for _, m := range config.DefaultMeasures() {
			tables[m.MeasureType] = m.Table
		}
		return cfg, tables, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return &cfg.Storage, cfg.ArchiveTables(), nil
}
