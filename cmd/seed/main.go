package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"airwatch/internal/config"
	"airwatch/internal/database"
	"airwatch/internal/location"
)

func main() {
	csvPath := flag.String("csv", "locations_seed.csv", "CSV file with name,country,latitude,longitude rows")
	flag.Parse()

	// Load config for database connection
	if _, err := config.Load("./config.yaml"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	dbCfg := config.GetDatabaseConfig()
	db, err := database.NewDB(dbCfg.Driver, dbCfg.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	count, skipped, err := seed(context.Background(), db, file)
	if err != nil {
		log.Fatalf("Failed to seed locations: %v", err)
	}
	log.Printf("Import complete! Successfully inserted %d locations, skipped %d", count, skipped)
}

// parseRecord turns one CSV row into a validated location.
func parseRecord(record []string) (location.Location, error) {
	if len(record) < 4 {
		return location.Location{}, fmt.Errorf("expected 4 fields, got %d", len(record))
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return location.Location{}, fmt.Errorf("invalid latitude %q", record[2])
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return location.Location{}, fmt.Errorf("invalid longitude %q", record[3])
	}

	loc := location.Location{
		Name:      strings.TrimSpace(record[0]),
		Country:   strings.TrimSpace(record[1]),
		Latitude:  latitude,
		Longitude: longitude,
	}
	return loc, loc.Validate()
}

// seed inserts every valid row after the header. Invalid rows and existing
// locations are counted as skipped.
func seed(ctx context.Context, db *database.DB, r io.Reader) (count, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// Read header row
	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	log.Printf("CSV Header: %v\n", header)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}

		loc, err := parseRecord(record)
		if err != nil {
			log.Printf("Skipping invalid record %v: %v", record, err)
			skipped++
			continue
		}

		// Insert location into database
		err = db.InsertLocation(ctx, database.Location{
			Name:      loc.Name,
			Country:   loc.Country,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		})
		if err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				log.Printf("Location already exists: %s", loc.Name)
			} else {
				log.Printf("Failed to insert location %s: %v", loc.Name, err)
			}
			skipped++
			continue
		}

		count++
		if count%100 == 0 {
			log.Printf("Inserted %d locations...", count)
		}
	}
	return count, skipped, nil
}
