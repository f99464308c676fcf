package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/stats"
)

func TestGetOrCreateServiceNode(t *testing.T) {
	s := NewStore()

	a := s.GetOrCreateServiceNode("A")
	require.NotNil(t, a)
	assert.Equal(t, "A", a.ExternalID)
	assert.Equal(t, "", a.NetworkRef)

	assert.Same(t, a, s.GetOrCreateServiceNode("A"))

	b := s.GetOrCreateServiceNode("B")
	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID, b.ID)

	found, ok := s.Node("B")
	assert.True(t, ok)
	assert.Same(t, b, found)

	_, ok = s.Node("C")
	assert.False(t, ok)

	assert.Equal(t, 2, s.NumNodes())
	assert.Equal(t, []string{"A", "B"}, s.NodeIDs())
}

func TestLegSegmentReuse(t *testing.T) {
	s := NewStore()
	a := s.GetOrCreateServiceNode("A")
	b := s.GetOrCreateServiceNode("B")

	assert.Nil(t, s.LegSegment(a, b))

	ab := s.GetOrCreateLegSegment(a, b)
	require.NotNil(t, ab)
	assert.Equal(t, "A_B", ab.ExternalID)
	assert.Equal(t, "A_B", ab.Leg.ExternalID)
	assert.Same(t, a, ab.Up)
	assert.Same(t, b, ab.Down)
	assert.Same(t, ab, s.LegSegment(a, b))
	assert.Same(t, ab, s.GetOrCreateLegSegment(a, b))

	// Reverse direction gets a new segment on the same leg
	ba := s.GetOrCreateLegSegment(b, a)
	require.NotNil(t, ba)
	assert.NotSame(t, ab, ba)
	assert.Same(t, ab.Leg, ba.Leg)
	assert.Equal(t, "B_A", ba.ExternalID)
	assert.Equal(t, "A_B", ba.Leg.ExternalID)
	assert.Same(t, b, ba.Up)
	assert.Same(t, a, ba.Down)

	assert.Equal(t, 1, s.NumLegs())
	assert.Equal(t, 2, s.NumSegments())
	assert.Same(t, ab.Leg, s.LegBetween(b, a))
	assert.Same(t, ab.Leg, s.LegByExternalID("A_B"))
	assert.Nil(t, s.LegByExternalID("B_A"))
	assert.Same(t, ba, s.SegmentByExternalID("B_A"))
	assert.True(t, ab.Leg.Spans(b, a))
}

func TestNoDuplicateLegs(t *testing.T) {
	s := NewStore()
	ids := []string{"A", "B", "C", "D"}

	// Every ordered pair, several times over
	for round := 0; round < 3; round++ {
		for _, x := range ids {
			for _, y := range ids {
				if x == y {
					continue
				}
				s.GetOrCreateLegSegment(s.GetOrCreateServiceNode(x), s.GetOrCreateServiceNode(y))
			}
		}
	}

	assert.Equal(t, 6, s.NumLegs())
	assert.Equal(t, 12, s.NumSegments())

	for _, leg := range s.Legs() {
		count := 0
		for _, other := range s.Legs() {
			if other.Spans(leg.A, leg.B) {
				count++
			}
		}
		assert.Equal(t, 1, count, "leg %s", leg.ExternalID)
	}
}

func TestConcurrentLookupOrCreate(t *testing.T) {
	s := NewStore()

	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				from := s.GetOrCreateServiceNode(fmt.Sprintf("s%d", j))
				to := s.GetOrCreateServiceNode(fmt.Sprintf("s%d", j+1))
				if i%2 == 0 {
					s.GetOrCreateLegSegment(from, to)
				} else {
					s.GetOrCreateLegSegment(to, from)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 51, s.NumNodes())
	assert.Equal(t, 50, s.NumLegs())
	assert.Equal(t, 100, s.NumSegments())
}

func TestStoreStats(t *testing.T) {
	c := stats.New()
	s := NewStore().WithStats(c)

	a := s.GetOrCreateServiceNode("A")
	b := s.GetOrCreateServiceNode("B")
	s.GetOrCreateServiceNode("A")
	s.GetOrCreateLegSegment(a, b)
	s.GetOrCreateLegSegment(b, a)
	s.GetOrCreateLegSegment(a, b)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ServiceNodesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LegsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.LegSegmentsCreated))
}
