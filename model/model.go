package model

// Holds all external facing row types and constants. Rows are what
// the feed decoder hands to the graph assembler and zone reconciler.

type LocationType int

const (
	LocationTypePlatform LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

func (lt LocationType) String() string {
	switch lt {
	case LocationTypePlatform:
		return "platform"
	case LocationTypeStation:
		return "station"
	case LocationTypeEntranceExit:
		return "entrance"
	case LocationTypeGenericNode:
		return "generic_node"
	case LocationTypeBoardingArea:
		return "boarding_area"
	}
	return "unknown"
}

// Valid reports whether lt is one of the location types defined by
// GTFS.
func (lt LocationType) Valid() bool {
	return lt >= LocationTypePlatform && lt <= LocationTypeBoardingArea
}

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway     RouteType = 1
	RouteTypeRail       RouteType = 2
	RouteTypeBus        RouteType = 3
	RouteTypeFerry      RouteType = 4
	RouteTypeCable      RouteType = 5
	RouteTypeAerial     RouteType = 6
	RouteTypeFunicular  RouteType = 7
	RouteTypeTrolleybus RouteType = 11
	RouteTypeMonorail   RouteType = 12
)

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
}

// A stop record. Only platforms (location_type 0) take part in zone
// reconciliation.
type Stop struct {
	ID            string
	Code          string
	Name          string
	Lat           float64
	Lon           float64
	LocationType  LocationType
	ParentStation string
	PlatformCode  string
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	ShortName   string
	DirectionID int8
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      RouteType
}

// A stop_times row. Arrival and Departure hold the raw "HH:MM:SS"
// values from the feed, either of which may be blank.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Arrival      string
	Departure    string
}
