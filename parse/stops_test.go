package parse

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/model"
)

func TestDecodeStops(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		stops   []*model.Stop
		skipped int
	}{
		{
			"minimal_stop",
			`
stop_id,stop_name,stop_lat,stop_lon
s,name,1.1,2.2`,
			[]*model.Stop{{
				ID:   "s",
				Name: "name",
				Lat:  1.1,
				Lon:  2.2,
			}},
			0,
		},

		{
			"maximal_stop",
			`
location_type,stop_id,stop_code,stop_name,stop_lat,stop_lon,parent_station,platform_code
0,s,code_s,Stop,1.1,2.2,ps,platform
1,ps,code_ps,Station,3.3,4.4,,
2,e,code_e,Entrance,5.5,6.6,ps,
3,g,code_g,Generic,,,ps,
4,b,code_b,Boarding,,,ps,
`,
			[]*model.Stop{
				{
					ID:            "s",
					Code:          "code_s",
					Name:          "Stop",
					Lat:           1.1,
					Lon:           2.2,
					LocationType:  model.LocationTypePlatform,
					ParentStation: "ps",
					PlatformCode:  "platform",
				},
				{
					ID:           "ps",
					Code:         "code_ps",
					Name:         "Station",
					Lat:          3.3,
					Lon:          4.4,
					LocationType: model.LocationTypeStation,
				},
				{
					ID:            "e",
					Code:          "code_e",
					Name:          "Entrance",
					Lat:           5.5,
					Lon:           6.6,
					LocationType:  model.LocationTypeEntranceExit,
					ParentStation: "ps",
				},
				{
					ID:            "g",
					Code:          "code_g",
					Name:          "Generic",
					LocationType:  model.LocationTypeGenericNode,
					ParentStation: "ps",
				},
				{
					ID:            "b",
					Code:          "code_b",
					Name:          "Boarding",
					LocationType:  model.LocationTypeBoardingArea,
					ParentStation: "ps",
				},
			},
			0,
		},

		{
			"unknown parent_station is kept",
			`
stop_id,stop_name,stop_lat,stop_lon,parent_station
s,S,1.1,2.2,nope`,
			[]*model.Stop{{
				ID:            "s",
				Name:          "S",
				Lat:           1.1,
				Lon:           2.2,
				ParentStation: "nope",
			}},
			0,
		},

		{
			"invalid rows are skipped",
			`
stop_id,stop_name,stop_lat,stop_lon,location_type
s,S,1.1,2.2,0
s,Again,1.1,2.2,0
,Anonymous,1.1,2.2,0
nameless,,1.1,2.2,0
nowhere,Nowhere,,,0
station_nowhere,Station,,,1
weird,Weird,1.1,2.2,7`,
			[]*model.Stop{{
				ID:   "s",
				Name: "S",
				Lat:  1.1,
				Lon:  2.2,
			}},
			6,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			summary := newSummary()
			d := NewDecoder(zerolog.Nop())

			stopIDs, err := d.decodeStops(r, bytes.NewBufferString(tc.content), summary)
			require.NoError(t, err)

			assert.Equal(t, tc.stops, r.stops)
			assert.Equal(t, tc.skipped, summary.Skipped["stops.txt"])

			expectedIDs := map[string]bool{}
			for _, s := range tc.stops {
				expectedIDs[s.ID] = true
			}
			assert.Equal(t, expectedIDs, stopIDs)
		})
	}
}
