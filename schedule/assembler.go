// Package schedule assembles scheduled trips, and through them the
// service graph, from an ordered stream of stop_times rows.
package schedule

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tidbyt.dev/gtfsgraph/graph"
	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/model"
	"tidbyt.dev/gtfsgraph/stats"
)

// Reasons a row is skipped. None of these abort processing.
var (
	ErrUnknownTrip        = errors.New("unknown trip")
	ErrNoTransitLine      = errors.New("no transit line for trip")
	ErrMissingPredecessor = errors.New("intermediate stop time without predecessor")
	ErrTimeOverflow       = errors.New("duration out of range")
	ErrMalformedRow       = errors.New("malformed stop time")
	ErrTripIgnored        = errors.New("trip ignored")
)

// Assembler turns stop_times rows into service nodes, leg segments
// and scheduled trip timings.
//
// Rows of one trip must be contiguous and in increasing stop_sequence
// order. A trip reappearing later in the stream, or a row whose
// stop_sequence does not exceed the previous row's, shows up as
// ErrMissingPredecessor.
type Assembler struct {
	Graph *graph.Store
	Lines *Lines

	logger          zerolog.Logger
	stats           *stats.Collector
	departureFilter func(model.TimeOfDay) bool

	trips     map[string]model.Trip
	ignored   map[string]bool
	reported  map[string]bool
	stopModes map[string]mode.Set
}

func NewAssembler(g *graph.Store, lines *Lines, logger zerolog.Logger) *Assembler {
	return &Assembler{
		Graph:     g,
		Lines:     lines,
		logger:    logger.With().Str("component", "trip_assembler").Logger(),
		trips:     map[string]model.Trip{},
		ignored:   map[string]bool{},
		reported:  map[string]bool{},
		stopModes: map[string]mode.Set{},
	}
}

func (a *Assembler) WithStats(c *stats.Collector) *Assembler {
	a.stats = c
	return a
}

// Trips whose first departure is rejected by f are ignored.
func (a *Assembler) WithDepartureFilter(f func(model.TimeOfDay) bool) *Assembler {
	a.departureFilter = f
	return a
}

// Makes a trips.txt row known to the assembler.
func (a *Assembler) RegisterTrip(trip model.Trip) {
	a.trips[trip.ID] = trip
}

// Rows for an ignored trip are skipped without warnings.
func (a *Assembler) IgnoreTrip(tripID string) {
	a.ignored[tripID] = true
}

// StopModes returns, per stop id, the modes of all lines whose trips
// were successfully assembled through that stop.
func (a *Assembler) StopModes() map[string]mode.Set {
	return a.stopModes
}

// Process handles one stop_times row. The returned error describes why
// the row was skipped, if it was; it is never fatal to the stream.
func (a *Assembler) Process(cursor *TripCursor, st *model.StopTime) error {
	cursor.Advance(st.TripID)

	if a.ignored[st.TripID] {
		a.stats.RowSkipped(stats.ReasonTripIgnored)
		return ErrTripIgnored
	}

	trip, found := a.trips[st.TripID]
	if !found {
		if !a.reported[st.TripID] {
			a.reported[st.TripID] = true
			a.logger.Warn().
				Str("trip_id", st.TripID).
				Msg("stop time references unknown trip, skipping its rows")
		}
		a.stats.RowSkipped(stats.ReasonUnknownTrip)
		return errors.Wrapf(ErrUnknownTrip, "trip '%s'", st.TripID)
	}

	line, found := a.Lines.Get(trip.RouteID)
	if !found {
		a.logger.Warn().
			Str("trip_id", trip.ID).
			Str("route_id", trip.RouteID).
			Uint32("stop_sequence", st.StopSequence).
			Msg("no transit line for trip, skipping stop time")
		a.stats.RowSkipped(stats.ReasonNoTransitLine)
		return errors.Wrapf(ErrNoTransitLine, "trip '%s' route '%s'", trip.ID, trip.RouteID)
	}

	arrival, departure, err := resolveTimes(st)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("trip_id", st.TripID).
			Str("stop_id", st.StopID).
			Uint32("stop_sequence", st.StopSequence).
			Msg("malformed stop time, skipping")
		a.stats.RowSkipped(stats.ReasonMalformedRow)
		return err
	}

	scheduled := line.Trip(trip.ID)
	if scheduled == nil || len(scheduled.Departures) == 0 {
		return a.firstStop(cursor, line, trip, st, arrival, departure)
	}
	return a.intermediateStop(cursor, line, scheduled, st, arrival, departure)
}

func (a *Assembler) firstStop(
	cursor *TripCursor,
	line *TransitLine,
	trip model.Trip,
	st *model.StopTime,
	arrival, departure model.TimeOfDay,
) error {
	if a.departureFilter != nil && !a.departureFilter(departure) {
		a.logger.Debug().
			Str("trip_id", trip.ID).
			Stringer("departure", departure).
			Msg("trip departs outside time window, ignoring")
		a.ignored[trip.ID] = true
		a.stats.RowSkipped(stats.ReasonTripIgnored)
		return ErrTripIgnored
	}

	scheduled := line.GetOrCreateTrip(trip.ID)
	a.Graph.GetOrCreateServiceNode(st.StopID)
	scheduled.AddDeparture(departure, st.StopSequence)
	a.stats.DepartureAdded()

	a.addStopMode(st.StopID, line.Mode)
	cursor.remember(st, arrival, departure)
	return nil
}

func (a *Assembler) intermediateStop(
	cursor *TripCursor,
	line *TransitLine,
	scheduled *ScheduledTrip,
	st *model.StopTime,
	arrival, departure model.TimeOfDay,
) error {
	prev := cursor.Previous()
	if prev == nil {
		a.logger.Error().
			Str("trip_id", st.TripID).
			Str("stop_id", st.StopID).
			Uint32("stop_sequence", st.StopSequence).
			Str("cause", "rows not contiguous per trip").
			Msg("no preceding stop time, skipping")
		a.stats.RowSkipped(stats.ReasonMissingPredecessor)

		// The trip resumes from this row.
		cursor.remember(st, arrival, departure)
		return errors.Wrapf(ErrMissingPredecessor, "trip '%s' stop_sequence %d", st.TripID, st.StopSequence)
	}

	// The row is dropped and the cursor stays on prev, so timings keep
	// increasing stop_sequence.
	if st.StopSequence <= prev.StopSequence {
		a.logger.Error().
			Str("trip_id", st.TripID).
			Str("stop_id", st.StopID).
			Uint32("stop_sequence", st.StopSequence).
			Uint32("prev_stop_sequence", prev.StopSequence).
			Str("cause", "rows out of stop_sequence order").
			Msg("no preceding stop time, skipping")
		a.stats.RowSkipped(stats.ReasonMissingPredecessor)
		return errors.Wrapf(ErrMissingPredecessor, "trip '%s' stop_sequence %d after %d", st.TripID, st.StopSequence, prev.StopSequence)
	}

	duration := arrival.Sub(cursor.prevDeparture)
	dwell := departure.Sub(arrival)
	if duration < 0 || dwell < 0 || model.ExceedsDay(duration) || model.ExceedsDay(dwell) {
		a.logger.Warn().
			Str("trip_id", st.TripID).
			Str("from_stop_id", prev.StopID).
			Str("to_stop_id", st.StopID).
			Dur("duration", duration).
			Dur("dwell", dwell).
			Msg("duration or dwell time out of range, skipping timing")
		a.stats.RowSkipped(stats.ReasonTimeOverflow)
		return errors.Wrapf(ErrTimeOverflow, "%s -> %s: duration %s dwell %s", prev.StopID, st.StopID, duration, dwell)
	}

	from := a.Graph.GetOrCreateServiceNode(prev.StopID)
	to := a.Graph.GetOrCreateServiceNode(st.StopID)
	segment := a.Graph.GetOrCreateLegSegment(from, to)

	scheduled.AppendTiming(segment, duration, dwell, st.StopSequence)
	a.stats.TimingAdded()

	a.addStopMode(st.StopID, line.Mode)
	cursor.remember(st, arrival, departure)
	return nil
}

func (a *Assembler) addStopMode(stopID string, m mode.Mode) {
	modes, found := a.stopModes[stopID]
	if !found {
		modes = mode.Set{}
		a.stopModes[stopID] = modes
	}
	modes.Add(m)
}

// Arrival and departure for a row. A blank value takes the other, and
// a row with neither is malformed.
func resolveTimes(st *model.StopTime) (model.TimeOfDay, model.TimeOfDay, error) {
	if st.StopID == "" {
		return 0, 0, errors.Wrap(ErrMalformedRow, "missing stop_id")
	}

	arrivalStr, departureStr := st.Arrival, st.Departure
	if arrivalStr == "" {
		arrivalStr = departureStr
	}
	if departureStr == "" {
		departureStr = arrivalStr
	}
	if arrivalStr == "" {
		return 0, 0, errors.Wrap(ErrMalformedRow, "missing arrival_time and departure_time")
	}

	arrival, err := model.ParseTimeOfDay(arrivalStr)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMalformedRow, "arrival_time: %v", err)
	}
	departure, err := model.ParseTimeOfDay(departureStr)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMalformedRow, "departure_time: %v", err)
	}

	return arrival, departure, nil
}
