package schedule

import (
	"time"

	"tidbyt.dev/gtfsgraph/graph"
	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/model"
)

// A transit line, one per feed route. Owns the scheduled trips of
// that route.
type TransitLine struct {
	ID        string
	ShortName string
	LongName  string
	Mode      mode.Mode

	Trips []*ScheduledTrip

	tripsByID map[string]*ScheduledTrip
}

// Trip returns the scheduled trip with the given feed trip id, or nil.
func (l *TransitLine) Trip(tripID string) *ScheduledTrip {
	return l.tripsByID[tripID]
}

// Returns the scheduled trip for tripID, creating it the first time
// the id is seen.
func (l *TransitLine) GetOrCreateTrip(tripID string) *ScheduledTrip {
	if trip, found := l.tripsByID[tripID]; found {
		return trip
	}
	trip := &ScheduledTrip{
		ExternalID: tripID,
		Line:       l,
	}
	l.tripsByID[tripID] = trip
	l.Trips = append(l.Trips, trip)
	return trip
}

// A real-world trip: departure time anchors plus the ordered timing
// of each leg segment it traverses.
type ScheduledTrip struct {
	ExternalID string
	Line       *TransitLine
	Departures []Departure
	Timings    []TimingEntry
}

// An absolute start time of a scheduled trip, tagged with the
// stop_sequence of the row it came from.
type Departure struct {
	Time         model.TimeOfDay
	StopSequence uint32
}

// Travel time over a segment, and time spent at the segment's
// downstream stop.
type TimingEntry struct {
	Segment      *graph.LegSegment
	Duration     time.Duration
	Dwell        time.Duration
	StopSequence uint32
}

func (t *ScheduledTrip) AddDeparture(at model.TimeOfDay, stopSequence uint32) {
	t.Departures = append(t.Departures, Departure{Time: at, StopSequence: stopSequence})
}

func (t *ScheduledTrip) AppendTiming(segment *graph.LegSegment, duration, dwell time.Duration, stopSequence uint32) {
	t.Timings = append(t.Timings, TimingEntry{
		Segment:      segment,
		Duration:     duration,
		Dwell:        dwell,
		StopSequence: stopSequence,
	})
}

// Total travel plus dwell time over all timing entries.
func (t *ScheduledTrip) Duration() time.Duration {
	var total time.Duration
	for _, timing := range t.Timings {
		total += timing.Duration + timing.Dwell
	}
	return total
}

// Lines indexes transit lines by route id.
type Lines struct {
	lines map[string]*TransitLine
	order []*TransitLine
}

func NewLines() *Lines {
	return &Lines{
		lines: map[string]*TransitLine{},
	}
}

// Registers a line for route. Adding the same route twice returns the
// existing line.
func (ls *Lines) Add(route model.Route, m mode.Mode) *TransitLine {
	if line, found := ls.lines[route.ID]; found {
		return line
	}
	line := &TransitLine{
		ID:        route.ID,
		ShortName: route.ShortName,
		LongName:  route.LongName,
		Mode:      m,
		tripsByID: map[string]*ScheduledTrip{},
	}
	ls.lines[route.ID] = line
	ls.order = append(ls.order, line)
	return line
}

func (ls *Lines) Get(routeID string) (*TransitLine, bool) {
	line, found := ls.lines[routeID]
	return line, found
}

// All lines in registration order.
func (ls *Lines) All() []*TransitLine {
	return append([]*TransitLine{}, ls.order...)
}

func (ls *Lines) NumTrips() int {
	n := 0
	for _, line := range ls.order {
		n += len(line.Trips)
	}
	return n
}
