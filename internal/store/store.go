package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tripmapper/internal/models"
)

// ErrNotFound is returned when no route exists for the requested id
var ErrNotFound = errors.New("route not found")

// Routes are stored as whole JSON documents keyed by id; waypoints and
// segments are embedded in the route, so delete needs no cascade.
const schema = `
CREATE TABLE IF NOT EXISTS routes (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routes_updated_at ON routes(updated_at);
`

// Store is the persistence gateway: get/put/delete plus enumerate-all over
// the route entity. Nothing above this layer knows the storage technology.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the route database. Schema bootstrap runs on
// every open and is idempotent, which doubles as the one-time migration
// check at startup.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAll returns every stored route, most recently updated first
func (s *Store) GetAll() ([]*models.Route, error) {
	rows, err := s.db.Query(`SELECT data FROM routes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []*models.Route
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		var route models.Route
		if err := json.Unmarshal([]byte(data), &route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route: %w", err)
		}
		routes = append(routes, &route)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route rows: %w", err)
	}

	return routes, nil
}

// Get retrieves a single route by id
func (s *Store) Get(id string) (*models.Route, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM routes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	var route models.Route
	if err := json.Unmarshal([]byte(data), &route); err != nil {
		return nil, fmt.Errorf("failed to unmarshal route: %w", err)
	}
	return &route, nil
}

// Put upserts a route. The caller supplies UpdatedAt; the store never
// invents timestamps.
func (s *Store) Put(route *models.Route) (*models.Route, error) {
	if route.ID == "" {
		return nil, errors.New("route id is required")
	}

	data, err := json.Marshal(route)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO routes (id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		route.ID, string(data),
		route.CreatedAt.UTC().Format(time.RFC3339Nano),
		route.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to put route: %w", err)
	}

	return route, nil
}

// Delete removes a route entirely. Returns false when no such route existed.
func (s *Store) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of stored routes
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM routes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count routes: %w", err)
	}
	return n, nil
}
