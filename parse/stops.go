package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/model"
)

type StopCSV struct {
	ID            string  `csv:"stop_id"`
	Code          string  `csv:"stop_code"`
	Name          string  `csv:"stop_name"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	LocationType  int8    `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
	PlatformCode  string  `csv:"platform_code"`
}

// Returns the set of stop ids decoded.
func (d *Decoder) decodeStops(handler FeedHandler, data io.Reader, summary *FeedSummary) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, errors.Wrap(err, "unmarshaling stops csv")
	}

	// parent_station may reference a stop further down the file
	allIDs := map[string]bool{}
	for _, st := range stopCsv {
		allIDs[st.ID] = true
	}

	stopIDs := map[string]bool{}
	for i, st := range stopCsv {
		row := i + 1

		if st.ID == "" {
			d.reject("stops.txt", row, summary, "empty stop_id")
			continue
		}
		if stopIDs[st.ID] {
			d.reject("stops.txt", row, summary, fmt.Sprintf("repeated stop_id '%s'", st.ID))
			continue
		}

		locationType := model.LocationType(st.LocationType)
		if !locationType.Valid() {
			d.reject("stops.txt", row, summary, fmt.Sprintf("stop_id '%s' has invalid location_type %d", st.ID, st.LocationType))
			continue
		}

		if locationType != model.LocationTypeGenericNode && locationType != model.LocationTypeBoardingArea {
			// stop_name, stop_lat and stop_lon are "[o]ptional
			// for locations which are generic nodes
			// (location_type=3) or boarding areas
			// (location_type=4)" and otherwise required.
			if st.Name == "" {
				d.reject("stops.txt", row, summary, fmt.Sprintf("empty stop_name for stop_id '%s'", st.ID))
				continue
			}
			if st.Lat == 0 || st.Lon == 0 {
				d.reject("stops.txt", row, summary, fmt.Sprintf("empty stop_lat or stop_lon for stop_id '%s'", st.ID))
				continue
			}
		}

		if st.ParentStation != "" && !allIDs[st.ParentStation] {
			d.logger.Warn().
				Str("stop_id", st.ID).
				Str("parent_station", st.ParentStation).
				Msg("stop references unknown parent_station")
		}

		stopIDs[st.ID] = true

		err := d.dispatch("stops.txt", row, summary, func() error {
			return handler.HandleStop(&model.Stop{
				ID:            st.ID,
				Code:          st.Code,
				Name:          st.Name,
				Lat:           st.Lat,
				Lon:           st.Lon,
				LocationType:  locationType,
				ParentStation: st.ParentStation,
				PlatformCode:  st.PlatformCode,
			})
		})
		if err != nil {
			return nil, err
		}
	}

	return stopIDs, nil
}
