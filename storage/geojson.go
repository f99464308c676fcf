package storage

import (
	"encoding/json"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/zone"
)

// GeoJSON file backed ZoneStorage. Each zone is a Feature. The stop
// to zone mapping is kept as a "stop_zones" member of the
// FeatureCollection.
type GeoJSONStorage struct {
	Path string
}

type zoneProperties struct {
	ID           int                     `json:"id"`
	ExternalIDs  []string                `json:"external_ids"`
	Name         string                  `json:"name"`
	PlatformCode string                  `json:"platform_code,omitempty"`
	Kind         string                  `json:"kind"`
	Modes        []string                `json:"modes"`
	AccessPoints []accessPointProperties `json:"access_points,omitempty"`
	Created      bool                    `json:"created,omitempty"`
}

type accessPointProperties struct {
	NetworkRef string     `json:"network_ref"`
	Location   [2]float64 `json:"location"`
	Modes      []string   `json:"modes"`
}

const stopZonesMember = "stop_zones"

func NewGeoJSONStorage(path string) *GeoJSONStorage {
	return &GeoJSONStorage{Path: path}
}

// LoadGeoJSONZones decodes a zone inventory. Features without an id
// property get id 0 and are assigned one when added to a Zoning.
func LoadGeoJSONZones(data []byte) ([]*zone.Zone, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing feature collection")
	}
	return featuresToZones(fc.Features)
}

func (s *GeoJSONStorage) read() (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return geojson.NewFeatureCollection(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.Path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", s.Path)
	}
	return fc, nil
}

func (s *GeoJSONStorage) write(fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encoding feature collection")
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, s.Path), "replacing %s", s.Path)
}

func (s *GeoJSONStorage) Zones() ([]*zone.Zone, error) {
	fc, err := s.read()
	if err != nil {
		return nil, err
	}
	zones, err := featuresToZones(fc.Features)
	if err != nil {
		return nil, err
	}
	sortZones(zones)
	return zones, nil
}

func (s *GeoJSONStorage) WriteZones(zones []*zone.Zone) error {
	if err := validateZones(zones); err != nil {
		return err
	}

	fc, err := s.read()
	if err != nil {
		return err
	}

	sorted := append([]*zone.Zone{}, zones...)
	sortZones(sorted)

	fc.Features = make([]*geojson.Feature, 0, len(sorted))
	for _, z := range sorted {
		f, err := zoneToFeature(z)
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, f)
	}

	return s.write(fc)
}

func (s *GeoJSONStorage) WriteMapping(mapping *zone.Mapping) error {
	fc, err := s.read()
	if err != nil {
		return err
	}
	if fc.ExtraMembers == nil {
		fc.ExtraMembers = geojson.Properties{}
	}
	fc.ExtraMembers[stopZonesMember] = mapping.Rows()
	return s.write(fc)
}

func (s *GeoJSONStorage) StopZones() (map[string]int, error) {
	fc, err := s.read()
	if err != nil {
		return nil, err
	}

	stopZones := map[string]int{}
	raw, found := fc.ExtraMembers[stopZonesMember]
	if !found {
		return stopZones, nil
	}
	if err := convert(raw, &stopZones); err != nil {
		return nil, errors.Wrap(err, "decoding stop_zones")
	}
	return stopZones, nil
}

func (s *GeoJSONStorage) Close() error {
	return nil
}

// Round trips through JSON to move between loosely typed geojson
// members and the property structs.
func convert(from interface{}, to interface{}) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, to)
}

func modeStrings(s mode.Set) []string {
	modes := s.Sorted()
	strs := make([]string, len(modes))
	for i, m := range modes {
		strs[i] = string(m)
	}
	return strs
}

func parseModes(strs []string) (mode.Set, error) {
	set := mode.Set{}
	for _, str := range strs {
		m, ok := mode.Parse(str)
		if !ok {
			return nil, errors.Errorf("unknown mode '%s'", str)
		}
		set.Add(m)
	}
	return set, nil
}

func zoneToFeature(z *zone.Zone) (*geojson.Feature, error) {
	props := zoneProperties{
		ID:           z.ID,
		ExternalIDs:  append([]string{}, z.ExternalIDs...),
		Name:         z.Name,
		PlatformCode: z.PlatformCode,
		Kind:         z.Kind.String(),
		Modes:        modeStrings(z.Modes),
		Created:      z.Created,
	}
	for _, ap := range z.AccessPoints {
		props.AccessPoints = append(props.AccessPoints, accessPointProperties{
			NetworkRef: ap.NetworkRef,
			Location:   [2]float64(ap.Location),
			Modes:      modeStrings(ap.Modes),
		})
	}

	var geometry orb.Geometry
	if z.Geometry != nil {
		geometry = orb.Clone(z.Geometry)
	}
	f := geojson.NewFeature(geometry)
	if err := convert(props, &f.Properties); err != nil {
		return nil, errors.Wrapf(err, "encoding zone %d", z.ID)
	}
	return f, nil
}

func featuresToZones(features []*geojson.Feature) ([]*zone.Zone, error) {
	zones := make([]*zone.Zone, 0, len(features))
	for i, f := range features {
		var props zoneProperties
		if err := convert(f.Properties, &props); err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}

		modes, err := parseModes(props.Modes)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}

		z := &zone.Zone{
			ID:           props.ID,
			ExternalIDs:  props.ExternalIDs,
			Name:         props.Name,
			PlatformCode: props.PlatformCode,
			Kind:         zone.ParseKind(props.Kind),
			Geometry:     f.Geometry,
			AccessPoints: []zone.AccessPoint{},
			Modes:        modes,
			Created:      props.Created,
		}
		if z.ExternalIDs == nil {
			z.ExternalIDs = []string{}
		}

		for _, ap := range props.AccessPoints {
			apModes, err := parseModes(ap.Modes)
			if err != nil {
				return nil, errors.Wrapf(err, "feature %d access point '%s'", i, ap.NetworkRef)
			}
			z.AccessPoints = append(z.AccessPoints, zone.AccessPoint{
				NetworkRef: ap.NetworkRef,
				Location:   orb.Point(ap.Location),
				Modes:      apModes,
			})
		}

		zones = append(zones, z)
	}
	return zones, nil
}
