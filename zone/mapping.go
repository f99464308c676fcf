package zone

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var ErrAlreadyMapped = errors.New("stop already mapped to a zone")

// Mapping records which zone each reconciled stop belongs to, and
// which stops were fused into each zone.
type Mapping struct {
	logger    zerolog.Logger
	stopZone  map[string]*Zone
	zoneStops map[*Zone][]string

	// Restored from an earlier run
	restored      map[string]*Zone
	restoredStops map[*Zone][]string
}

func NewMapping(logger zerolog.Logger) *Mapping {
	return &Mapping{
		logger:        logger,
		stopZone:      map[string]*Zone{},
		zoneStops:     map[*Zone][]string{},
		restored:      map[string]*Zone{},
		restoredStops: map[*Zone][]string{},
	}
}

// Restore records that an earlier run mapped stopID to z. The stop
// still needs reconciling, but z holds it for conflict checks until
// the stop is registered elsewhere.
func (m *Mapping) Restore(stopID string, z *Zone) {
	if _, found := m.restored[stopID]; found {
		return
	}
	m.restored[stopID] = z
	m.restoredStops[z] = append(m.restoredStops[z], stopID)
}

// Register maps stopID to z. A stop maps to at most one zone;
// registering it again for a different zone fails.
func (m *Mapping) Register(stopID string, z *Zone) error {
	if existing, found := m.stopZone[stopID]; found {
		if existing == z {
			return nil
		}
		return errors.Wrapf(ErrAlreadyMapped, "stop '%s' zone %d", stopID, existing.ID)
	}
	m.stopZone[stopID] = z
	m.zoneStops[z] = append(m.zoneStops[z], stopID)
	return nil
}

// ZoneFor returns the zone stopID was reconciled into, or nil.
func (m *Mapping) ZoneFor(stopID string) *Zone {
	return m.stopZone[stopID]
}

// Stop ids fused into z, in registration order.
func (m *Mapping) StopsFor(z *Zone) []string {
	return append([]string{}, m.zoneStops[z]...)
}

// ConflictingStop returns a stop other than stopID already mapped to
// z, in this run or a restored one, if any.
func (m *Mapping) ConflictingStop(z *Zone, stopID string) (string, bool) {
	for _, other := range m.zoneStops[z] {
		if other != stopID {
			return other, true
		}
	}
	for _, other := range m.restoredStops[z] {
		if other == stopID {
			continue
		}
		if current, found := m.stopZone[other]; found && current != z {
			continue
		}
		return other, true
	}
	return "", false
}

// AccessPoint returns the first access point of the zone stopID maps
// to. More than one is ambiguous; the first is used and a warning
// logged.
func (m *Mapping) AccessPoint(stopID string) (AccessPoint, bool) {
	z := m.stopZone[stopID]
	if z == nil || len(z.AccessPoints) == 0 {
		return AccessPoint{}, false
	}
	if len(z.AccessPoints) > 1 {
		m.logger.Warn().
			Str("stop_id", stopID).
			Int("zone_id", z.ID).
			Int("access_points", len(z.AccessPoints)).
			Msg("zone has several access points, using the first")
	}
	return z.AccessPoints[0], true
}

// StopIDs returns all mapped stop ids, sorted.
func (m *Mapping) StopIDs() []string {
	ids := make([]string, 0, len(m.stopZone))
	for id := range m.stopZone {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Mapping) Len() int {
	return len(m.stopZone)
}

// Rows maps stop ids to zone ids. Restored stops that were not
// registered again keep their earlier zone.
func (m *Mapping) Rows() map[string]int {
	rows := map[string]int{}
	for stopID, z := range m.restored {
		rows[stopID] = z.ID
	}
	for stopID, z := range m.stopZone {
		rows[stopID] = z.ID
	}
	return rows
}
