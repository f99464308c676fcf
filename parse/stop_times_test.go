package parse

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/model"
)

func TestDecodeStopTimes(t *testing.T) {
	for _, tc := range []struct {
		name      string
		content   string
		stops     map[string]bool
		sort      bool
		stopTimes []*model.StopTime
		skipped   int
	}{
		{
			"minimal",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
t,10:00:00,10:00:01,s,1`,
			map[string]bool{"s": true},
			false,
			[]*model.StopTime{
				{TripID: "t", StopID: "s", StopSequence: 1, Arrival: "10:00:00", Departure: "10:00:01"},
			},
			0,
		},

		{
			"times are passed through untouched",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
t,,25:00:01,s1,1
t, 25:10:00 ,,s2,2
t,garbage,,s1,3`,
			map[string]bool{"s1": true, "s2": true},
			false,
			[]*model.StopTime{
				{TripID: "t", StopID: "s1", StopSequence: 1, Departure: "25:00:01"},
				{TripID: "t", StopID: "s2", StopSequence: 2, Arrival: "25:10:00"},
				{TripID: "t", StopID: "s1", StopSequence: 3, Arrival: "garbage"},
			},
			0,
		},

		{
			"file order is kept when streaming",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
b,10:00:00,10:00:00,s,2
a,10:00:00,10:00:00,s,1
b,09:00:00,09:00:00,s,1`,
			map[string]bool{"s": true},
			false,
			[]*model.StopTime{
				{TripID: "b", StopID: "s", StopSequence: 2, Arrival: "10:00:00", Departure: "10:00:00"},
				{TripID: "a", StopID: "s", StopSequence: 1, Arrival: "10:00:00", Departure: "10:00:00"},
				{TripID: "b", StopID: "s", StopSequence: 1, Arrival: "09:00:00", Departure: "09:00:00"},
			},
			0,
		},

		{
			"sorted by trip and stop_sequence",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
b,10:00:00,10:00:00,s,20
a,10:00:00,10:00:00,s,1
b,09:00:00,09:00:00,s,3
b,09:30:00,09:30:00,s,3`,
			map[string]bool{"s": true},
			true,
			[]*model.StopTime{
				{TripID: "a", StopID: "s", StopSequence: 1, Arrival: "10:00:00", Departure: "10:00:00"},
				{TripID: "b", StopID: "s", StopSequence: 3, Arrival: "09:00:00", Departure: "09:00:00"},
				{TripID: "b", StopID: "s", StopSequence: 20, Arrival: "10:00:00", Departure: "10:00:00"},
			},
			1,
		},

		{
			"invalid rows are skipped",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
t,10:00:00,10:00:00,s,1
,10:00:00,10:00:00,s,2
t,10:00:00,10:00:00,,3
t,10:00:00,10:00:00,unknown,4
t,10:00:00,10:00:00,s,four
t,10:00:00,10:00:00,s,-5`,
			map[string]bool{"s": true},
			false,
			[]*model.StopTime{
				{TripID: "t", StopID: "s", StopSequence: 1, Arrival: "10:00:00", Departure: "10:00:00"},
			},
			5,
		},

		{
			"unknown trips are handed out",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
ghost,10:00:00,10:00:00,s,1`,
			map[string]bool{"s": true},
			false,
			[]*model.StopTime{
				{TripID: "ghost", StopID: "s", StopSequence: 1, Arrival: "10:00:00", Departure: "10:00:00"},
			},
			0,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			summary := newSummary()
			d := NewDecoder(zerolog.Nop())
			d.SortStopTimes = tc.sort

			err := d.decodeStopTimes(r, bytes.NewBufferString(tc.content), tc.stops, summary)
			require.NoError(t, err)

			assert.Equal(t, tc.stopTimes, r.stopTimes)
			assert.Equal(t, tc.skipped, summary.Skipped["stop_times.txt"])
			assert.Equal(t, len(tc.stopTimes), summary.Rows["stop_times.txt"])
		})
	}
}
