package parse

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/model"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

type numberedStopTime struct {
	row      int
	stopTime model.StopTime
}

// Streams stop_times.txt to the handler. Rows referencing trips not
// in trips.txt are still handed out; the handler decides what to do
// with them.
func (d *Decoder) decodeStopTimes(
	handler FeedHandler,
	data io.Reader,
	stops map[string]bool,
	summary *FeedSummary,
) error {
	buffered := []numberedStopTime{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		i += 1
		row := i + 1

		if st.TripID == "" {
			d.reject("stop_times.txt", row, summary, "missing trip_id")
			return nil
		}
		if st.StopID == "" {
			d.reject("stop_times.txt", row, summary, fmt.Sprintf("missing stop_id for trip_id '%s'", st.TripID))
			return nil
		}
		if !stops[st.StopID] {
			d.reject("stop_times.txt", row, summary, fmt.Sprintf("unknown stop_id '%s'", st.StopID))
			return nil
		}
		seq, err := strconv.ParseUint(strings.TrimSpace(st.StopSequence), 10, 32)
		if err != nil {
			d.reject("stop_times.txt", row, summary, fmt.Sprintf("invalid stop_sequence '%s'", st.StopSequence))
			return nil
		}

		stopTime := model.StopTime{
			TripID:       st.TripID,
			StopID:       st.StopID,
			StopSequence: uint32(seq),
			Arrival:      strings.TrimSpace(st.ArrivalTime),
			Departure:    strings.TrimSpace(st.DepartureTime),
		}

		if d.SortStopTimes {
			buffered = append(buffered, numberedStopTime{row: row, stopTime: stopTime})
			return nil
		}

		return d.dispatch("stop_times.txt", row, summary, func() error {
			return handler.HandleStopTime(&stopTime)
		})
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling stop_times csv")
	}

	if !d.SortStopTimes {
		return nil
	}

	sort.SliceStable(buffered, func(i, j int) bool {
		cmp := strings.Compare(
			buffered[i].stopTime.TripID,
			buffered[j].stopTime.TripID,
		)

		if cmp < 0 {
			return true
		}
		if cmp == 0 {
			return buffered[i].stopTime.StopSequence < buffered[j].stopTime.StopSequence
		}
		return false
	})

	for i := range buffered {
		st := &buffered[i]

		// stop_sequence must be unique within a trip
		if i > 0 {
			prev := &buffered[i-1].stopTime
			if prev.TripID == st.stopTime.TripID && prev.StopSequence == st.stopTime.StopSequence {
				d.reject("stop_times.txt", st.row, summary, fmt.Sprintf(
					"duplicate stop_sequence %d for trip_id '%s'",
					st.stopTime.StopSequence, st.stopTime.TripID,
				))
				continue
			}
		}

		err := d.dispatch("stop_times.txt", st.row, summary, func() error {
			return handler.HandleStopTime(&st.stopTime)
		})
		if err != nil {
			return err
		}
	}

	return nil
}
