package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/zone"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/zones.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

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

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Zones() ([]*zone.Zone, error) {
	return readZones(s.db)
}

func (s *SQLiteStorage) WriteZones(zones []*zone.Zone) error {
	if err := validateZones(zones); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"zone", "zone_external_id", "access_point"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return errors.Wrapf(err, "clearing %s", table)
		}
	}

	zoneStmt, err := tx.Prepare(`
INSERT INTO zone (id, name, platform_code, kind, geometry, modes, created)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing zone insert")
	}
	defer zoneStmt.Close()

	externalIDStmt, err := tx.Prepare(`
INSERT INTO zone_external_id (zone_id, seq, external_id)
VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing external id insert")
	}
	defer externalIDStmt.Close()

	accessPointStmt, err := tx.Prepare(`
INSERT INTO access_point (zone_id, seq, network_ref, location, modes)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing access point insert")
	}
	defer accessPointStmt.Close()

	for _, z := range zones {
		_, err := zoneStmt.Exec(
			z.ID,
			z.Name,
			z.PlatformCode,
			z.Kind.String(),
			encodeGeometry(z.Geometry),
			encodeModes(z.Modes),
			z.Created,
		)
		if err != nil {
			return errors.Wrapf(err, "inserting zone %d", z.ID)
		}

		for i, externalID := range z.ExternalIDs {
			if _, err := externalIDStmt.Exec(z.ID, i, externalID); err != nil {
				return errors.Wrapf(err, "inserting external id of zone %d", z.ID)
			}
		}

		for i, ap := range z.AccessPoints {
			_, err := accessPointStmt.Exec(z.ID, i, ap.NetworkRef, encodeGeometry(ap.Location), encodeModes(ap.Modes))
			if err != nil {
				return errors.Wrapf(err, "inserting access point of zone %d", z.ID)
			}
		}
	}

	return errors.Wrap(tx.Commit(), "committing zones")
}

func (s *SQLiteStorage) WriteMapping(mapping *zone.Mapping) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM stop_zone"); err != nil {
		return errors.Wrap(err, "clearing stop_zone")
	}

	stmt, err := tx.Prepare("INSERT INTO stop_zone (stop_id, zone_id) VALUES (?, ?)")
	if err != nil {
		return errors.Wrap(err, "preparing stop_zone insert")
	}
	defer stmt.Close()

	for stopID, zoneID := range mapping.Rows() {
		if _, err := stmt.Exec(stopID, zoneID); err != nil {
			return errors.Wrapf(err, "inserting stop_zone for '%s'", stopID)
		}
	}

	return errors.Wrap(tx.Commit(), "committing stop_zone")
}

func (s *SQLiteStorage) StopZones() (map[string]int, error) {
	return readStopZones(s.db)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
