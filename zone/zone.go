// Package zone reconciles feed stops against an inventory of physical
// platform zones.
package zone

import (
	"github.com/paulmach/orb"

	"tidbyt.dev/gtfsgraph/mode"
)

// Kind classifies a zone.
type Kind int

const (
	KindOther Kind = iota
	KindPole
	KindPlatform
)

func (k Kind) String() string {
	switch k {
	case KindPole:
		return "pole"
	case KindPlatform:
		return "platform"
	}
	return "other"
}

// ParseKind is the inverse of String. Unknown values map to KindOther.
func ParseKind(s string) Kind {
	switch s {
	case "pole":
		return KindPole
	case "platform":
		return KindPlatform
	}
	return KindOther
}

// A physical boarding area. Geometry is in WGS84 (lon, lat).
type Zone struct {
	ID           int
	ExternalIDs  []string
	Name         string
	PlatformCode string
	Kind         Kind
	Geometry     orb.Geometry
	AccessPoints []AccessPoint
	Modes        mode.Set

	// Created is set for zones created during reconciliation, as
	// opposed to zones loaded from an existing inventory.
	Created bool
}

// Binds a zone to a point of the physical network.
type AccessPoint struct {
	NetworkRef string
	Location   orb.Point
	Modes      mode.Set
}

// KnownModes is the union of the zone's own modes and those of its
// access points.
func (z *Zone) KnownModes() mode.Set {
	known := mode.Set{}
	known = known.Union(z.Modes)
	for _, ap := range z.AccessPoints {
		known = known.Union(ap.Modes)
	}
	return known
}

func (z *Zone) HasExternalID(id string) bool {
	for _, existing := range z.ExternalIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// AddExternalID appends id unless already present. Returns true if it
// was added.
func (z *Zone) AddExternalID(id string) bool {
	if z.HasExternalID(id) {
		return false
	}
	z.ExternalIDs = append(z.ExternalIDs, id)
	return true
}

// Primary external id, or "" if there is none.
func (z *Zone) PrimaryID() string {
	if len(z.ExternalIDs) == 0 {
		return ""
	}
	return z.ExternalIDs[0]
}

// Zoning is the zone collection. It hands out internal ids.
type Zoning struct {
	zones  []*Zone
	byID   map[int]*Zone
	nextID int
}

func NewZoning() *Zoning {
	return &Zoning{
		byID:   map[int]*Zone{},
		nextID: 1,
	}
}

// Add appends z. A zero ID is replaced with the next free id; a
// non-zero ID is kept and later ids are allocated above it.
func (zs *Zoning) Add(z *Zone) *Zone {
	if z.ID == 0 {
		z.ID = zs.nextID
	}
	if z.ID >= zs.nextID {
		zs.nextID = z.ID + 1
	}
	zs.zones = append(zs.zones, z)
	zs.byID[z.ID] = z
	return z
}

func (zs *Zoning) Get(id int) (*Zone, bool) {
	z, found := zs.byID[id]
	return z, found
}

// All zones, in insertion order.
func (zs *Zoning) All() []*Zone {
	return append([]*Zone{}, zs.zones...)
}

// Zones created during reconciliation.
func (zs *Zoning) Created() []*Zone {
	created := []*Zone{}
	for _, z := range zs.zones {
		if z.Created {
			created = append(created, z)
		}
	}
	return created
}

func (zs *Zoning) Len() int {
	return len(zs.zones)
}
