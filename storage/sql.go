package storage

import (
	"database/sql"

	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/zone"
)

// Reading is the same for SQLite and Postgres, as no query takes
// parameters.

func readZones(db *sql.DB) ([]*zone.Zone, error) {
	rows, err := db.Query(`
SELECT id, name, platform_code, kind, geometry, modes, created
FROM zone
ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying zones")
	}
	defer rows.Close()

	zones := []*zone.Zone{}
	byID := map[int]*zone.Zone{}
	for rows.Next() {
		var z zone.Zone
		var kind, geometry, modes string
		err := rows.Scan(&z.ID, &z.Name, &z.PlatformCode, &kind, &geometry, &modes, &z.Created)
		if err != nil {
			return nil, errors.Wrap(err, "scanning zone")
		}

		z.Kind = zone.ParseKind(kind)
		z.Geometry, err = decodeGeometry(geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "zone %d", z.ID)
		}
		z.Modes, err = decodeModes(modes)
		if err != nil {
			return nil, errors.Wrapf(err, "zone %d", z.ID)
		}
		z.ExternalIDs = []string{}
		z.AccessPoints = []zone.AccessPoint{}

		zones = append(zones, &z)
		byID[z.ID] = &z
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating zones")
	}

	if err := readExternalIDs(db, byID); err != nil {
		return nil, err
	}
	if err := readAccessPoints(db, byID); err != nil {
		return nil, err
	}

	return zones, nil
}

func readExternalIDs(db *sql.DB, byID map[int]*zone.Zone) error {
	rows, err := db.Query(`
SELECT zone_id, external_id
FROM zone_external_id
ORDER BY zone_id, seq`)
	if err != nil {
		return errors.Wrap(err, "querying zone external ids")
	}
	defer rows.Close()

	for rows.Next() {
		var zoneID int
		var externalID string
		if err := rows.Scan(&zoneID, &externalID); err != nil {
			return errors.Wrap(err, "scanning zone external id")
		}
		z, found := byID[zoneID]
		if !found {
			return errors.Errorf("external id '%s' references unknown zone %d", externalID, zoneID)
		}
		z.ExternalIDs = append(z.ExternalIDs, externalID)
	}
	return errors.Wrap(rows.Err(), "iterating zone external ids")
}

func readAccessPoints(db *sql.DB, byID map[int]*zone.Zone) error {
	rows, err := db.Query(`
SELECT zone_id, network_ref, location, modes
FROM access_point
ORDER BY zone_id, seq`)
	if err != nil {
		return errors.Wrap(err, "querying access points")
	}
	defer rows.Close()

	for rows.Next() {
		var zoneID int
		var networkRef, location, modes string
		if err := rows.Scan(&zoneID, &networkRef, &location, &modes); err != nil {
			return errors.Wrap(err, "scanning access point")
		}
		z, found := byID[zoneID]
		if !found {
			return errors.Errorf("access point '%s' references unknown zone %d", networkRef, zoneID)
		}

		ap := zone.AccessPoint{NetworkRef: networkRef}
		ap.Location, err = decodePoint(location)
		if err != nil {
			return errors.Wrapf(err, "access point '%s'", networkRef)
		}
		ap.Modes, err = decodeModes(modes)
		if err != nil {
			return errors.Wrapf(err, "access point '%s'", networkRef)
		}
		z.AccessPoints = append(z.AccessPoints, ap)
	}
	return errors.Wrap(rows.Err(), "iterating access points")
}

func readStopZones(db *sql.DB) (map[string]int, error) {
	rows, err := db.Query(`SELECT stop_id, zone_id FROM stop_zone`)
	if err != nil {
		return nil, errors.Wrap(err, "querying stop zones")
	}
	defer rows.Close()

	stopZones := map[string]int{}
	for rows.Next() {
		var stopID string
		var zoneID int
		if err := rows.Scan(&stopID, &zoneID); err != nil {
			return nil, errors.Wrap(err, "scanning stop zone")
		}
		stopZones[stopID] = zoneID
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating stop zones")
	}
	return stopZones, nil
}
