// Package mode maps feed route types onto the internal transport
// modes used to filter graph elements and platform zones.
package mode

import (
	"sort"

	"tidbyt.dev/gtfsgraph/model"
)

type Mode string

const (
	Bus        Mode = "bus"
	Coach      Mode = "coach"
	Trolleybus Mode = "trolleybus"
	Tram       Mode = "tram"
	LightRail  Mode = "lightrail"
	Subway     Mode = "subway"
	Rail       Mode = "rail"
	Monorail   Mode = "monorail"
	Ferry      Mode = "ferry"
	CableCar   Mode = "cablecar"
	Gondola    Mode = "gondola"
	Funicular  Mode = "funicular"
)

var all = []Mode{Bus, Coach, Trolleybus, Tram, LightRail, Subway, Rail, Monorail, Ferry, CableCar, Gondola, Funicular}

// Parse returns the Mode named s.
func Parse(s string) (Mode, bool) {
	for _, m := range all {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Road modes share kerbside poles rather than platforms.
func (m Mode) IsRoad() bool {
	return m == Bus || m == Coach || m == Trolleybus
}

// Classifier translates route types to modes. The zero value is not
// usable; see NewClassifier.
type Classifier struct {
	overrides   map[model.RouteType]Mode
	deactivated map[model.RouteType]bool
}

func NewClassifier() *Classifier {
	return &Classifier{
		overrides:   map[model.RouteType]Mode{},
		deactivated: map[model.RouteType]bool{},
	}
}

// Maps routeType to m regardless of the default table.
func (c *Classifier) Override(routeType model.RouteType, m Mode) {
	c.overrides[routeType] = m
	delete(c.deactivated, routeType)
}

// Routes of a deactivated type are left out of the graph.
func (c *Classifier) Deactivate(routeType model.RouteType) {
	c.deactivated[routeType] = true
}

// Classify returns the mode for routeType. The second return value is
// false for deactivated or unknown route types.
func (c *Classifier) Classify(routeType model.RouteType) (Mode, bool) {
	if c.deactivated[routeType] {
		return "", false
	}
	if m, found := c.overrides[routeType]; found {
		return m, true
	}
	return defaultMode(routeType)
}

func defaultMode(rt model.RouteType) (Mode, bool) {
	switch rt {
	case model.RouteTypeTram:
		return Tram, true
	case model.RouteTypeSubway:
		return Subway, true
	case model.RouteTypeRail:
		return Rail, true
	case model.RouteTypeBus:
		return Bus, true
	case model.RouteTypeFerry:
		return Ferry, true
	case model.RouteTypeCable:
		return CableCar, true
	case model.RouteTypeAerial:
		return Gondola, true
	case model.RouteTypeFunicular:
		return Funicular, true
	case model.RouteTypeTrolleybus:
		return Trolleybus, true
	case model.RouteTypeMonorail:
		return Monorail, true
	}

	// Extended route types, grouped per hundred.
	switch {
	case rt >= 100 && rt < 200:
		return Rail, true
	case rt >= 200 && rt < 300:
		return Coach, true
	case rt >= 300 && rt < 400:
		return Rail, true
	case rt >= 400 && rt < 500:
		switch rt {
		case 403, 404:
			return Rail, true
		case 405:
			return Monorail, true
		}
		return Subway, true
	case rt >= 500 && rt < 700:
		return Subway, true
	case rt >= 700 && rt < 800:
		return Bus, true
	case rt >= 800 && rt < 900:
		return Trolleybus, true
	case rt >= 900 && rt < 1000:
		if rt == 906 {
			return LightRail, true
		}
		return Tram, true
	case rt >= 1000 && rt < 1100, rt >= 1200 && rt < 1300:
		return Ferry, true
	case rt >= 1300 && rt < 1400:
		return Gondola, true
	case rt >= 1400 && rt < 1500:
		return Funicular, true
	}

	// Air, taxi, self drive and miscellaneous services have no mode.
	return "", false
}

// A set of modes.
type Set map[Mode]struct{}

func NewSet(modes ...Mode) Set {
	s := Set{}
	for _, m := range modes {
		s[m] = struct{}{}
	}
	return s
}

func (s Set) Add(m Mode) {
	s[m] = struct{}{}
}

func (s Set) Has(m Mode) bool {
	_, found := s[m]
	return found
}

func (s Set) Intersects(o Set) bool {
	for m := range s {
		if o.Has(m) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the members of s and o.
func (s Set) Union(o Set) Set {
	u := make(Set, len(s)+len(o))
	for m := range s {
		u[m] = struct{}{}
	}
	for m := range o {
		u[m] = struct{}{}
	}
	return u
}

// Sorted members, for stable output.
func (s Set) Sorted() []Mode {
	modes := make([]Mode, 0, len(s))
	for m := range s {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// IsRoadOnly is true for a non-empty set holding only road modes.
func (s Set) IsRoadOnly() bool {
	if len(s) == 0 {
		return false
	}
	for m := range s {
		if !m.IsRoad() {
			return false
		}
	}
	return true
}
