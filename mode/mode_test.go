package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tidbyt.dev/gtfsgraph/model"
)

func TestClassifyDefaults(t *testing.T) {
	c := NewClassifier()

	for _, tc := range []struct {
		routeType model.RouteType
		mode      Mode
		ok        bool
	}{
		{model.RouteTypeTram, Tram, true},
		{model.RouteTypeSubway, Subway, true},
		{model.RouteTypeRail, Rail, true},
		{model.RouteTypeBus, Bus, true},
		{model.RouteTypeFerry, Ferry, true},
		{model.RouteTypeCable, CableCar, true},
		{model.RouteTypeAerial, Gondola, true},
		{model.RouteTypeFunicular, Funicular, true},
		{model.RouteTypeTrolleybus, Trolleybus, true},
		{model.RouteTypeMonorail, Monorail, true},
		{109, Rail, true},
		{200, Coach, true},
		{300, Rail, true},
		{401, Subway, true},
		{403, Rail, true},
		{405, Monorail, true},
		{500, Subway, true},
		{600, Subway, true},
		{700, Bus, true},
		{800, Trolleybus, true},
		{900, Tram, true},
		{906, LightRail, true},
		{1000, Ferry, true},
		{1300, Gondola, true},
		{1400, Funicular, true},
		{8, "", false},
		{1100, "", false},
		{1500, "", false},
		{1700, "", false},
	} {
		m, ok := c.Classify(tc.routeType)
		assert.Equal(t, tc.ok, ok, "route type %d", tc.routeType)
		assert.Equal(t, tc.mode, m, "route type %d", tc.routeType)
	}
}

func TestClassifyOverrideAndDeactivate(t *testing.T) {
	c := NewClassifier()

	c.Override(model.RouteTypeTram, LightRail)
	m, ok := c.Classify(model.RouteTypeTram)
	assert.True(t, ok)
	assert.Equal(t, LightRail, m)

	c.Deactivate(model.RouteTypeTram)
	_, ok = c.Classify(model.RouteTypeTram)
	assert.False(t, ok)

	// Overriding again reactivates
	c.Override(model.RouteTypeTram, Tram)
	m, ok = c.Classify(model.RouteTypeTram)
	assert.True(t, ok)
	assert.Equal(t, Tram, m)

	c.Deactivate(1700)
	_, ok = c.Classify(1700)
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	bus := NewSet(Bus)
	rail := NewSet(Rail, Subway)

	assert.False(t, bus.Intersects(rail))
	assert.True(t, rail.Intersects(NewSet(Subway)))
	assert.False(t, Set{}.Intersects(rail))

	u := bus.Union(rail)
	assert.Equal(t, []Mode{Bus, Rail, Subway}, u.Sorted())
	assert.Len(t, bus, 1)

	assert.True(t, NewSet(Bus, Coach).IsRoadOnly())
	assert.False(t, NewSet(Bus, Tram).IsRoadOnly())
	assert.False(t, Set{}.IsRoadOnly())

	m, ok := Parse("ferry")
	assert.True(t, ok)
	assert.Equal(t, Ferry, m)
	_, ok = Parse("hovercraft")
	assert.False(t, ok)
}
