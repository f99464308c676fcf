package storage

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"tidbyt.dev/gtfsgraph/zone"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS zone;
DROP TABLE IF EXISTS zone_external_id;
DROP TABLE IF EXISTS access_point;
DROP TABLE IF EXISTS stop_zone;
`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS zone (
    id INTEGER NOT NULL,
    name TEXT NOT NULL,
    platform_code TEXT NOT NULL,
    kind TEXT NOT NULL,
    geometry TEXT NOT NULL,
    modes TEXT NOT NULL,
    created BOOLEAN NOT NULL,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS zone_external_id (
    zone_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    external_id TEXT NOT NULL,
    PRIMARY KEY (zone_id, seq)
);

CREATE TABLE IF NOT EXISTS access_point (
    zone_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    network_ref TEXT NOT NULL,
    location TEXT NOT NULL,
    modes TEXT NOT NULL,
    PRIMARY KEY (zone_id, seq)
);

CREATE TABLE IF NOT EXISTS stop_zone (
    stop_id TEXT NOT NULL,
    zone_id INTEGER NOT NULL,
    PRIMARY KEY (stop_id)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func (s *PSQLStorage) Zones() ([]*zone.Zone, error) {
	return readZones(s.db)
}

func (s *PSQLStorage) StopZones() (map[string]int, error) {
	return readStopZones(s.db)
}

// Copies rows into table within tx.
func copyIn(tx *sql.Tx, table string, columns []string, rows [][]interface{}) error {
	stmt, err := tx.Prepare(pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.Exec(row...)
		if err != nil {
			return fmt.Errorf("COPY %s: %w", table, err)
		}
	}

	_, err = stmt.Exec()
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	return nil
}

func (s *PSQLStorage) WriteZones(zones []*zone.Zone) error {
	if err := validateZones(zones); err != nil {
		return err
	}

	zoneRows := [][]interface{}{}
	externalIDRows := [][]interface{}{}
	accessPointRows := [][]interface{}{}
	for _, z := range zones {
		zoneRows = append(zoneRows, []interface{}{
			z.ID,
			z.Name,
			z.PlatformCode,
			z.Kind.String(),
			encodeGeometry(z.Geometry),
			encodeModes(z.Modes),
			z.Created,
		})
		for i, externalID := range z.ExternalIDs {
			externalIDRows = append(externalIDRows, []interface{}{z.ID, i, externalID})
		}
		for i, ap := range z.AccessPoints {
			accessPointRows = append(accessPointRows, []interface{}{
				z.ID, i, ap.NetworkRef, encodeGeometry(ap.Location), encodeModes(ap.Modes),
			})
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`TRUNCATE zone, zone_external_id, access_point`)
	if err != nil {
		return fmt.Errorf("truncating zones: %w", err)
	}

	err = copyIn(tx, "zone", []string{
		"id", "name", "platform_code", "kind", "geometry", "modes", "created",
	}, zoneRows)
	if err != nil {
		return err
	}

	err = copyIn(tx, "zone_external_id", []string{"zone_id", "seq", "external_id"}, externalIDRows)
	if err != nil {
		return err
	}

	err = copyIn(tx, "access_point", []string{
		"zone_id", "seq", "network_ref", "location", "modes",
	}, accessPointRows)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	return nil
}

func (s *PSQLStorage) WriteMapping(mapping *zone.Mapping) error {
	rows := [][]interface{}{}
	for stopID, zoneID := range mapping.Rows() {
		rows = append(rows, []interface{}{stopID, zoneID})
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`TRUNCATE stop_zone`)
	if err != nil {
		return fmt.Errorf("truncating stop_zone: %w", err)
	}

	err = copyIn(tx, "stop_zone", []string{"stop_id", "zone_id"}, rows)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	return nil
}
