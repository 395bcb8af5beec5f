package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airwatch/internal/location"
	"airwatch/internal/models"
)

// Location represents a known location in the database
type Location struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InsertLocation inserts a new location; an existing name yields ErrDuplicate.
func (db *DB) InsertLocation(ctx context.Context, loc Location) error {
	res, err := db.exec(ctx, "INSERT", "locations",
		db.dialect.insertIgnore+` INTO locations (name, country, latitude, longitude) VALUES (?, ?, ?, ?)`,
		loc.Name, loc.Country, loc.Latitude, loc.Longitude)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("location %s: %w", loc.Name, ErrDuplicate)
	}
	return nil
}

// GetAllLocations retrieves all locations ordered by name
func (db *DB) GetAllLocations(ctx context.Context) ([]Location, error) {
	rows, err := db.query(ctx, "locations", `SELECT id, name, country, latitude, longitude FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Country, &loc.Latitude, &loc.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}

// LocationRegistry indexes the stored locations. An empty table yields a
// registry of fallback instead.
func (db *DB) LocationRegistry(ctx context.Context, fallback []location.Location) (*location.Registry, error) {
	stored, err := db.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return location.NewRegistry(fallback)
	}

	locs := make([]location.Location, len(stored))
	for i, l := range stored {
		locs[i] = location.Location{Name: l.Name, Country: l.Country, Latitude: l.Latitude, Longitude: l.Longitude}
	}
	return location.NewRegistry(locs)
}

// GetLocationByName retrieves a specific location by name
func (db *DB) GetLocationByName(ctx context.Context, name string) (*Location, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT id, name, country, latitude, longitude FROM locations WHERE name = ? LIMIT 1`, name)

	var loc Location
	if err := row.Scan(&loc.ID, &loc.Name, &loc.Country, &loc.Latitude, &loc.Longitude); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan location: %w", err)
	}
	return &loc, nil
}

// AddFavorite bookmarks a location. Adding the same location twice yields ErrDuplicate.
func (db *DB) AddFavorite(ctx context.Context, f *models.Favorite) error {
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now()
	}
	res, err := db.exec(ctx, "INSERT", "favorites",
		db.dialect.insertIgnore+` INTO favorites (location_id, name, country, latitude, longitude, added_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.LocationID, f.Name, f.Country, f.Latitude, f.Longitude, f.AddedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("favorite %s: %w", f.LocationID, ErrDuplicate)
	}
	return nil
}

// RemoveFavorite deletes a bookmark; removing an unknown one yields ErrNotFound.
func (db *DB) RemoveFavorite(ctx context.Context, locationID string) error {
	res, err := db.exec(ctx, "DELETE", "favorites", `DELETE FROM favorites WHERE location_id = ?`, locationID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("favorite %s: %w", locationID, ErrNotFound)
	}
	return nil
}

// GetFavorites returns all bookmarks, newest first
func (db *DB) GetFavorites(ctx context.Context) ([]models.Favorite, error) {
	rows, err := db.query(ctx, "favorites",
		`SELECT id, location_id, name, country, latitude, longitude, added_at FROM favorites ORDER BY added_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Favorite
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.LocationID, &f.Name, &f.Country, &f.Latitude, &f.Longitude, &f.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (db *DB) IsFavorite(ctx context.Context, locationID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM favorites WHERE location_id = ?`, locationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// AddHistory records a location view
func (db *DB) AddHistory(ctx context.Context, h *models.HistoryEntry) error {
	if h.ViewedAt.IsZero() {
		h.ViewedAt = time.Now()
	}
	_, err := db.exec(ctx, "INSERT", "history",
		`INSERT INTO history (location_id, name, country, viewed_at) VALUES (?, ?, ?, ?)`,
		h.LocationID, h.Name, h.Country, h.ViewedAt.UTC())
	return err
}

// GetHistory returns the most recent views, newest first
func (db *DB) GetHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	rows, err := db.query(ctx, "history",
		`SELECT id, location_id, name, country, viewed_at FROM history ORDER BY viewed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var h models.HistoryEntry
		if err := rows.Scan(&h.ID, &h.LocationID, &h.Name, &h.Country, &h.ViewedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (db *DB) ClearHistory(ctx context.Context) error {
	_, err := db.exec(ctx, "DELETE", "history", `DELETE FROM history`)
	return err
}
