// export-history writes the daily rollups for a plant/sensor range to an
// XLSX file. Usage:
//
//	export-history -plant plant-1 -sensor humidity -from 2026-08-01 -to 2026-08-30 -out history.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/aggregate"
	"github.com/vicente3000/Sistema-de-sensores/internal/config"
	"github.com/vicente3000/Sistema-de-sensores/internal/export"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
	"github.com/vicente3000/Sistema-de-sensores/pkg/database"
	"github.com/vicente3000/Sistema-de-sensores/pkg/logger"
)

func main() {
	var (
		plant   = flag.String("plant", "", "plant id")
		sensor  = flag.String("sensor", "", "sensor type (humidity, ph, temp, lux)")
		fromStr = flag.String("from", "", "start day (YYYY-MM-DD), defaults to today")
		toStr   = flag.String("to", "", "end day (YYYY-MM-DD), defaults to from")
		out     = flag.String("out", "history.xlsx", "output file")
	)
	flag.Parse()

	if *plant == "" || *sensor == "" {
		fmt.Fprintln(os.Stderr, "plant and sensor are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, "console", "export-history")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	from, to, err := parseDayRange(*fromStr, *toStr)
	if err != nil {
		log.Fatal("Invalid day range", zap.Error(err))
	}

	readingsRepo := repository.NewPostgresReadingsRepository(db, log)
	rollupsRepo := repository.NewPostgresRollupsRepository(db, log)
	engine := aggregate.NewEngine(readingsRepo, rollupsRepo, log)

	rollups, err := engine.DailyAggregate(context.Background(), *plant, *sensor, from, to)
	if err != nil {
		log.Fatal("Daily aggregate failed", zap.Error(err))
	}

	data, err := export.DailyRollupsToExcel(rollups)
	if err != nil {
		log.Fatal("Failed to build workbook", zap.Error(err))
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatal("Failed to write output file", zap.Error(err))
	}

	log.Info("History exported",
		zap.String("file", *out),
		zap.Int("days", len(rollups)),
	)
}

func parseDayRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid -from: %w", err)
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid -to: %w", err)
		}
		to = &t
	}
	return from, to, nil
}
