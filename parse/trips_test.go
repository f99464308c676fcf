package parse

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/model"
)

func TestDecodeTrips(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		routes  map[string]bool
		trips   []*model.Trip
		skipped int
	}{
		{
			"minimal",
			`
trip_id,route_id,service_id
t,r,s`,
			map[string]bool{"r": true},
			[]*model.Trip{{ID: "t", RouteID: "r", ServiceID: "s"}},
			0,
		},

		{
			"all_fields_set",
			`
trip_id,route_id,service_id,trip_headsign,trip_short_name,direction_id
t1,r,s,Downtown,T1,0
t2,r,s,Uptown,T2,1`,
			map[string]bool{"r": true},
			[]*model.Trip{
				{ID: "t1", RouteID: "r", ServiceID: "s", Headsign: "Downtown", ShortName: "T1", DirectionID: 0},
				{ID: "t2", RouteID: "r", ServiceID: "s", Headsign: "Uptown", ShortName: "T2", DirectionID: 1},
			},
			0,
		},

		{
			"service_id not checked",
			`
trip_id,route_id,service_id
t,r,`,
			map[string]bool{"r": true},
			[]*model.Trip{{ID: "t", RouteID: "r"}},
			0,
		},

		{
			"invalid rows are skipped",
			`
trip_id,route_id,service_id,direction_id
t,r,s,0
t,r,s,1
,r,s,0
no_route,,s,0
unknown_route,x,s,0
bad_direction,r,s,2`,
			map[string]bool{"r": true},
			[]*model.Trip{{ID: "t", RouteID: "r", ServiceID: "s"}},
			5,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			summary := newSummary()
			d := NewDecoder(zerolog.Nop())

			err := d.decodeTrips(r, bytes.NewBufferString(tc.content), tc.routes, summary)
			require.NoError(t, err)

			assert.Equal(t, tc.trips, r.trips)
			assert.Equal(t, tc.skipped, summary.Skipped["trips.txt"])
		})
	}
}
