package schedule

import (
	"tidbyt.dev/gtfsgraph/model"
)

// TripCursor carries the "previous stop time" between rows of a
// stop_times stream. The assembler never keeps this state itself; the
// caller owns one cursor per stream.
type TripCursor struct {
	tripID   string
	previous *model.StopTime

	prevArrival   model.TimeOfDay
	prevDeparture model.TimeOfDay
}

// Advance moves the cursor to tripID. Returns true, and forgets the
// previous row, when tripID differs from the trip of the last row.
func (c *TripCursor) Advance(tripID string) bool {
	if c.tripID == tripID {
		return false
	}
	c.tripID = tripID
	c.previous = nil
	return true
}

// Previous returns the last successfully processed row of the current
// trip, or nil.
func (c *TripCursor) Previous() *model.StopTime {
	return c.previous
}

func (c *TripCursor) remember(st *model.StopTime, arrival, departure model.TimeOfDay) {
	stCopy := *st
	c.previous = &stCopy
	c.prevArrival = arrival
	c.prevDeparture = departure
}

// Reset forgets everything, as if no row had been seen.
func (c *TripCursor) Reset() {
	*c = TripCursor{}
}
