package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/metrics"
	"airwatch/internal/models"
)

// StoreMeasurements inserts readings for a location in one transaction.
// Readings already stored for the same hour are skipped; the number of new
// rows is returned.
func (db *DB) StoreMeasurements(ctx context.Context, location string, readings []aqi.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}
	defer db.recordStats()

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // ignored once committed

	stmt, err := tx.PrepareContext(ctx, db.dialect.insertIgnore+
		` INTO measurements (location, pollutant, timestamp, concentration, unit) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for _, r := range readings {
		res, err := stmt.ExecContext(ctx, location, string(r.Pollutant), r.Timestamp.UTC(), r.Concentration, r.Unit)
		if err != nil {
			metrics.RecordDBQuery("INSERT", "measurements", time.Since(start), err)
			return 0, fmt.Errorf("failed to insert %s at %s: %w", r.Pollutant, r.Timestamp, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("INSERT", "measurements", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, nil
}

// GetMeasurements returns a pollutant's readings at a location since the
// given time, oldest first.
func (db *DB) GetMeasurements(ctx context.Context, location string, pollutant aqi.Pollutant, since time.Time) ([]models.Measurement, error) {
	rows, err := db.query(ctx, "measurements",
		`SELECT id, location, pollutant, timestamp, concentration, unit FROM measurements
		WHERE location = ? AND pollutant = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		location, string(pollutant), since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.Location, &m.Pollutant, &m.Timestamp, &m.Concentration, &m.Unit); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetReadings is GetMeasurements converted to readings.
func (db *DB) GetReadings(ctx context.Context, location string, pollutant aqi.Pollutant, since time.Time) ([]aqi.Reading, error) {
	ms, err := db.GetMeasurements(ctx, location, pollutant, since)
	if err != nil {
		return nil, err
	}
	out := make([]aqi.Reading, len(ms))
	for i, m := range ms {
		out[i] = aqi.Reading{
			Pollutant:     pollutant,
			Concentration: m.Concentration,
			Unit:          m.Unit,
			Timestamp:     m.Timestamp.UTC(),
		}
	}
	return out, nil
}

// GetLocationsWithData returns a set of all locations that have measurements
func (db *DB) GetLocationsWithData(ctx context.Context) (map[string]bool, error) {
	rows, err := db.query(ctx, "measurements", `SELECT DISTINCT location FROM measurements`)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations with data: %w", err)
	}
	defer rows.Close()

	locations := make(map[string]bool)
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations[location] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}

// StoreAQISnapshot records the dominant AQI for a location
func (db *DB) StoreAQISnapshot(ctx context.Context, s *models.AQISnapshot) error {
	_, err := db.exec(ctx, "INSERT", "aqi_snapshots",
		`INSERT INTO aqi_snapshots (location, timestamp, pollutant, aqi, category) VALUES (?, ?, ?, ?, ?)`,
		s.Location, s.Timestamp.UTC(), s.Pollutant, s.AQI, s.Category)
	return err
}

// GetAQISnapshots returns the most recent snapshots for a location, newest first
func (db *DB) GetAQISnapshots(ctx context.Context, location string, limit int) ([]models.AQISnapshot, error) {
	rows, err := db.query(ctx, "aqi_snapshots",
		`SELECT id, location, timestamp, pollutant, aqi, category FROM aqi_snapshots
		WHERE location = ? ORDER BY timestamp DESC LIMIT ?`, location, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AQISnapshot
	for rows.Next() {
		var s models.AQISnapshot
		if err := rows.Scan(&s.ID, &s.Location, &s.Timestamp, &s.Pollutant, &s.AQI, &s.Category); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StoreTrainingRun records the outcome of a model training
func (db *DB) StoreTrainingRun(ctx context.Context, r *models.TrainingRun) error {
	_, err := db.exec(ctx, "INSERT", "training_runs",
		`INSERT INTO training_runs (location, pollutant, trained_at, samples, train_r2, holdout_r2, version) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Location, r.Pollutant, r.TrainedAt.UTC(), r.Samples, r.TrainR2, r.HoldoutR2, int64(r.Version))
	return err
}

// LatestTrainingRun returns the newest training run for a series, or ErrNotFound.
func (db *DB) LatestTrainingRun(ctx context.Context, location string, pollutant aqi.Pollutant) (*models.TrainingRun, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, location, pollutant, trained_at, samples, train_r2, holdout_r2, version FROM training_runs
		WHERE location = ? AND pollutant = ? ORDER BY trained_at DESC, id DESC LIMIT 1`,
		location, string(pollutant))

	var r models.TrainingRun
	var version int64
	err := row.Scan(&r.ID, &r.Location, &r.Pollutant, &r.TrainedAt, &r.Samples, &r.TrainR2, &r.HoldoutR2, &version)
	metrics.RecordDBQuery("SELECT", "training_runs", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("training run for %s/%s: %w", location, pollutant, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan training run: %w", err)
	}
	r.Version = uint64(version)
	return &r, nil
}
