package stations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"golang.org/x/text/unicode/norm"

	"aircheck/internal/logging"
	"aircheck/internal/radiko"
	"aircheck/internal/services"
)

const catalogSchema = `
CREATE TABLE stations (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    ascii_name TEXT NOT NULL,
    ruby       TEXT NOT NULL
);
CREATE TABLE catalog_meta (
    area_id   TEXT NOT NULL,
    area_name TEXT NOT NULL,
    loaded_at TEXT NOT NULL
);
`

// Catalog is the in-memory station table for one area.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// CatalogOption customizes Catalog construction.
type CatalogOption func(*Catalog)

// WithCatalogLogger attaches a logger for load diagnostics.
func WithCatalogLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "stations")
		}
	}
}

// Open creates an empty catalog. Call Replace to load it.
func Open(opts ...CatalogOption) (*Catalog, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// Each pooled connection to :memory: is a distinct empty database, so
	// the pool must be pinned to a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	catalog := &Catalog{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(catalog)
	}
	if catalog.logger == nil {
		catalog.logger = logging.NewNop()
	}
	return catalog, nil
}

// Close releases the underlying database.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Replace reloads the catalog from a fetched station list inside one
// transaction, so readers never observe a half-loaded table.
func (c *Catalog) Replace(ctx context.Context, list radiko.StationList) error {
	if strings.TrimSpace(list.AreaID) == "" {
		return errors.New("station list has no area id")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stations`); err != nil {
		return fmt.Errorf("clear stations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_meta`); err != nil {
		return fmt.Errorf("clear catalog meta: %w", err)
	}

	for _, station := range list.Stations {
		id := strings.TrimSpace(station.ID)
		if id == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stations (id, name, ascii_name, ruby) VALUES (?, ?, ?, ?)`,
			id,
			strings.TrimSpace(station.Name),
			normalizeASCIIName(station.ASCIIName),
			strings.TrimSpace(station.Ruby),
		)
		if err != nil {
			return fmt.Errorf("insert station %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO catalog_meta (area_id, area_name, loaded_at) VALUES (?, ?, ?)`,
		strings.TrimSpace(list.AreaID),
		strings.TrimSpace(list.AreaName),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record catalog meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}

	c.logger.Debug("station catalog loaded",
		logging.String("area_id", list.AreaID),
		logging.Int("station_count", len(list.Stations)))
	return nil
}

// Lookup returns the catalog row for a station id.
func (c *Catalog) Lookup(ctx context.Context, id string) (radiko.Station, error) {
	id = strings.TrimSpace(id)
	var station radiko.Station
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, ascii_name, ruby FROM stations WHERE id = ?`, id)
	err := row.Scan(&station.ID, &station.Name, &station.ASCIIName, &station.Ruby)
	if errors.Is(err, sql.ErrNoRows) {
		return radiko.Station{}, services.Wrap(services.ErrNotFound, "stations", "lookup",
			fmt.Sprintf("station %q not in catalog", id), nil)
	}
	if err != nil {
		return radiko.Station{}, fmt.Errorf("lookup station %s: %w", id, err)
	}
	return station, nil
}

// All returns every catalog row ordered by station id.
func (c *Catalog) All(ctx context.Context) ([]radiko.Station, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, ascii_name, ruby FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var list []radiko.Station
	for rows.Next() {
		var station radiko.Station
		if err := rows.Scan(&station.ID, &station.Name, &station.ASCIIName, &station.Ruby); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		list = append(list, station)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}
	return list, nil
}

// Area returns the area id and display name recorded by the last Replace.
func (c *Catalog) Area(ctx context.Context) (string, string, error) {
	var areaID, areaName string
	row := c.db.QueryRowContext(ctx,
		`SELECT area_id, area_name FROM catalog_meta LIMIT 1`)
	err := row.Scan(&areaID, &areaName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", errors.New("catalog not loaded")
	}
	if err != nil {
		return "", "", fmt.Errorf("read catalog meta: %w", err)
	}
	return areaID, areaName, nil
}

// normalizeASCIIName collapses full-width compatibility forms so feeds that
// publish names like ＴＯＫＹＯ　ＦＭ store and render as plain ASCII.
func normalizeASCIIName(name string) string {
	return strings.TrimSpace(norm.NFKC.String(name))
}
