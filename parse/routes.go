package parse

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
}

// Returns the set of route ids decoded.
func (d *Decoder) decodeRoutes(
	handler FeedHandler,
	data io.Reader,
	agency map[string]bool,
	summary *FeedSummary,
) (map[string]bool, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, errors.Wrap(err, "unmarshaling routes csv")
	}

	routes := map[string]bool{}
	for i, r := range routeCsv {
		row := i + 1

		if r.ID == "" {
			d.reject("routes.txt", row, summary, "route has no route_id")
			continue
		}
		if routes[r.ID] {
			d.reject("routes.txt", row, summary, fmt.Sprintf("repeated route_id '%s'", r.ID))
			continue
		}

		// If multiple agencies, agency_id is required
		if len(agency) > 1 && r.AgencyID == "" {
			d.reject("routes.txt", row, summary, fmt.Sprintf("route_id '%s' has no agency_id", r.ID))
			continue
		}

		// Agency (if set) must be known from agency.txt
		if r.AgencyID != "" && !agency[r.AgencyID] {
			d.reject("routes.txt", row, summary, fmt.Sprintf("route_id '%s' has unknown agency_id '%s'", r.ID, r.AgencyID))
			continue
		}

		if r.ShortName == "" && r.LongName == "" {
			d.reject("routes.txt", row, summary, fmt.Sprintf("route_id '%s' has no short_name or long_name", r.ID))
			continue
		}

		// Basic and extended types are accepted here. Whether a
		// type maps to a mode is up to the handler.
		routeType, err := strconv.Atoi(r.Type)
		if err != nil || routeType < 0 {
			d.reject("routes.txt", row, summary, fmt.Sprintf("route_id '%s' has invalid route_type '%s'", r.ID, r.Type))
			continue
		}

		routes[r.ID] = true

		err = d.dispatch("routes.txt", row, summary, func() error {
			return handler.HandleRoute(&model.Route{
				ID:        r.ID,
				AgencyID:  r.AgencyID,
				ShortName: r.ShortName,
				LongName:  r.LongName,
				Type:      model.RouteType(routeType),
			})
		})
		if err != nil {
			return nil, err
		}
	}

	return routes, nil
}
