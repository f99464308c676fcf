package storage

import (
	"tidbyt.dev/gtfsgraph/zone"
)

// In memory implementation of ZoneStorage. Zones are copied on the
// way in and out.

type MemoryStorage struct {
	zones   []*zone.Zone
	mapping map[string]int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		mapping: map[string]int{},
	}
}

func (s *MemoryStorage) Zones() ([]*zone.Zone, error) {
	zones := make([]*zone.Zone, len(s.zones))
	for i, z := range s.zones {
		zones[i] = cloneZone(z)
	}
	return zones, nil
}

func (s *MemoryStorage) WriteZones(zones []*zone.Zone) error {
	if err := validateZones(zones); err != nil {
		return err
	}
	s.zones = make([]*zone.Zone, len(zones))
	for i, z := range zones {
		s.zones[i] = cloneZone(z)
	}
	sortZones(s.zones)
	return nil
}

func (s *MemoryStorage) WriteMapping(mapping *zone.Mapping) error {
	s.mapping = mapping.Rows()
	return nil
}

func (s *MemoryStorage) StopZones() (map[string]int, error) {
	stopZones := make(map[string]int, len(s.mapping))
	for stopID, zoneID := range s.mapping {
		stopZones[stopID] = zoneID
	}
	return stopZones, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
