package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/model"
)

type TripCSV struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	ShortName   string `csv:"trip_short_name"`
	DirectionID int8   `csv:"direction_id"`
}

func (d *Decoder) decodeTrips(
	handler FeedHandler,
	data io.Reader,
	routes map[string]bool,
	summary *FeedSummary,
) error {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return errors.Wrap(err, "unmarshaling trips csv")
	}

	trips := map[string]bool{}
	for i, t := range tripCsv {
		row := i + 1

		if t.ID == "" {
			d.reject("trips.txt", row, summary, "empty trip_id")
			continue
		}
		if trips[t.ID] {
			d.reject("trips.txt", row, summary, fmt.Sprintf("repeated trip_id '%s'", t.ID))
			continue
		}
		if t.RouteID == "" {
			d.reject("trips.txt", row, summary, fmt.Sprintf("trip_id '%s' has empty route_id", t.ID))
			continue
		}
		if !routes[t.RouteID] {
			d.reject("trips.txt", row, summary, fmt.Sprintf("trip_id '%s' has unknown route_id '%s'", t.ID, t.RouteID))
			continue
		}
		if t.DirectionID != 0 && t.DirectionID != 1 {
			d.reject("trips.txt", row, summary, fmt.Sprintf("trip_id '%s' has invalid direction_id %d", t.ID, t.DirectionID))
			continue
		}

		trips[t.ID] = true

		err := d.dispatch("trips.txt", row, summary, func() error {
			return handler.HandleTrip(&model.Trip{
				ID:          t.ID,
				RouteID:     t.RouteID,
				ServiceID:   t.ServiceID,
				Headsign:    t.Headsign,
				ShortName:   t.ShortName,
				DirectionID: t.DirectionID,
			})
		})
		if err != nil {
			return err
		}
	}

	return nil
}
