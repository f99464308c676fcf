// Package storage persists the platform zone inventory and the
// stop to zone mapping between runs.
package storage

import (
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/zone"
)

type ZoneStorage interface {
	// All stored zones, ordered by id.
	Zones() ([]*zone.Zone, error)

	// Replaces all stored zones. Zones must have non-zero ids.
	WriteZones(zones []*zone.Zone) error

	// Replaces the stored stop to zone mapping.
	WriteMapping(mapping *zone.Mapping) error

	// Map from stop id to zone id, as per the last WriteMapping.
	StopZones() (map[string]int, error)

	Close() error
}

// Comma joined, sorted.
func encodeModes(s mode.Set) string {
	return strings.Join(modeStrings(s), ",")
}

func decodeModes(s string) (mode.Set, error) {
	set := mode.Set{}
	if s == "" {
		return set, nil
	}
	for _, part := range strings.Split(s, ",") {
		m, ok := mode.Parse(strings.TrimSpace(part))
		if !ok {
			return nil, errors.Errorf("unknown mode '%s'", part)
		}
		set.Add(m)
	}
	return set, nil
}

func encodeGeometry(g orb.Geometry) string {
	if g == nil {
		return ""
	}
	return wkt.MarshalString(g)
}

func decodeGeometry(s string) (orb.Geometry, error) {
	if s == "" {
		return nil, nil
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing geometry '%s'", s)
	}
	return g, nil
}

func decodePoint(s string) (orb.Point, error) {
	g, err := decodeGeometry(s)
	if err != nil {
		return orb.Point{}, err
	}
	p, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, errors.Errorf("expected point, got '%s'", s)
	}
	return p, nil
}

func validateZones(zones []*zone.Zone) error {
	seen := map[int]bool{}
	for _, z := range zones {
		if z.ID == 0 {
			return errors.Errorf("zone '%s' has no id", z.PrimaryID())
		}
		if seen[z.ID] {
			return errors.Errorf("duplicate zone id %d", z.ID)
		}
		seen[z.ID] = true
	}
	return nil
}

func cloneZone(z *zone.Zone) *zone.Zone {
	c := *z
	c.ExternalIDs = append([]string{}, z.ExternalIDs...)
	if z.Geometry != nil {
		c.Geometry = orb.Clone(z.Geometry)
	}
	c.Modes = mode.Set{}.Union(z.Modes)
	c.AccessPoints = make([]zone.AccessPoint, len(z.AccessPoints))
	for i, ap := range z.AccessPoints {
		c.AccessPoints[i] = zone.AccessPoint{
			NetworkRef: ap.NetworkRef,
			Location:   ap.Location,
			Modes:      mode.Set{}.Union(ap.Modes),
		}
	}
	return &c
}

func sortZones(zones []*zone.Zone) {
	sort.Slice(zones, func(i, j int) bool {
		return zones[i].ID < zones[j].ID
	})
}

