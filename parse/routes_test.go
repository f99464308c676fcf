package parse

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/model"
)

func TestDecodeRoutes(t *testing.T) {
	for _, tc := range []struct {
		name     string
		content  string
		agency   map[string]bool
		routeIDs map[string]bool
		routes   []*model.Route
		skipped  int
	}{
		{
			"minimal",
			`
route_id,route_short_name,route_type
r,R,3`,
			map[string]bool{"": true},
			map[string]bool{"r": true},
			[]*model.Route{{ID: "r", ShortName: "R", Type: model.RouteTypeBus}},
			0,
		},

		{
			"all fields and extended route types",
			`
route_id,agency_id,route_short_name,route_long_name,route_type
r1,a,R1,Route One,2
r2,a,,Route Two,109
r3,a,R3,,715`,
			map[string]bool{"a": true},
			map[string]bool{"r1": true, "r2": true, "r3": true},
			[]*model.Route{
				{ID: "r1", AgencyID: "a", ShortName: "R1", LongName: "Route One", Type: model.RouteTypeRail},
				{ID: "r2", AgencyID: "a", LongName: "Route Two", Type: 109},
				{ID: "r3", AgencyID: "a", ShortName: "R3", Type: 715},
			},
			0,
		},

		{
			"invalid rows are skipped",
			`
route_id,agency_id,route_short_name,route_long_name,route_type
ok,a,OK,,3
ok,a,Duplicate,,3
,a,Anonymous,,3
nameless,a,,,3
wrong_agency,b,W,,3
no_agency,,N,,3
no_type,a,T,,
bad_type,a,T,,tram
negative_type,a,T,,-1`,
			map[string]bool{"a": true, "c": true},
			map[string]bool{"ok": true},
			[]*model.Route{{ID: "ok", AgencyID: "a", ShortName: "OK", Type: model.RouteTypeBus}},
			8,
		},

		{
			"agency_id optional with a single agency",
			`
route_id,route_short_name,route_type
r,R,0`,
			map[string]bool{"only": true},
			map[string]bool{"r": true},
			[]*model.Route{{ID: "r", ShortName: "R", Type: model.RouteTypeTram}},
			0,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			summary := newSummary()
			d := NewDecoder(zerolog.Nop())

			routeIDs, err := d.decodeRoutes(r, bytes.NewBufferString(tc.content), tc.agency, summary)
			require.NoError(t, err)

			assert.Equal(t, tc.routeIDs, routeIDs)
			assert.Equal(t, tc.routes, r.routes)
			assert.Equal(t, tc.skipped, summary.Skipped["routes.txt"])
			assert.Equal(t, len(tc.routes), summary.Rows["routes.txt"])
		})
	}
}
