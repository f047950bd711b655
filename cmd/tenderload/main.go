package main

// Load a tender file into the corpus:
//   go run ./cmd/tenderload -file tenders.xlsx -source etimad

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tender-backend/internal/shared/config"
	"tender-backend/internal/shared/storage/db"
	"tender-backend/internal/shared/telemetry"
	"tender-backend/internal/tenders"
)

func main() {
	cfg := config.Load()

	path := flag.String("file", "", "Path to a .json, .yaml or .xlsx tender file")
	source := flag.String("source", "", "Source name for records that do not carry one")
	format := flag.String("format", "", "Override the format detected from the file extension")
	dryRun := flag.Bool("dry-run", false, "Parse and validate without writing")
	flag.Parse()

	if strings.TrimSpace(*path) == "" {
		exitErr("file is required")
	}

	batch, err := parse(*path, *format, *source)
	if err != nil {
		exitErr(fmt.Sprintf("parse %s: %v", *path, err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var store tenders.Loader
	if *dryRun {
		store = tenders.NewMemoryStore()
	} else {
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			exitErr("DATABASE_URL is required unless -dry-run is set")
		}
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RoleMigrate)
		if err != nil {
			exitErr(fmt.Sprintf("connect database: %v", err))
		}
		defer sqlDB.Close()
		store = &tenders.PGStore{DB: sqlDB}
	}

	res, err := store.Upsert(ctx, batch)
	if err != nil {
		exitErr(fmt.Sprintf("upsert: %v", err))
	}
	telemetry.Info("tenders.loaded", map[string]any{
		"file":     *path,
		"records":  len(batch),
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"dry_run":  *dryRun,
	})
	fmt.Printf("%d records: %d inserted, %d updated\n", len(batch), res.Inserted, res.Updated)
}

func parse(path, format, source string) ([]tenders.Tender, error) {
	if strings.TrimSpace(format) == "" {
		return tenders.LoadFile(path, source)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tenders.Parse(f, format, source)
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
