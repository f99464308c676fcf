package gtfsgraph

import (
	"context"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tidbyt.dev/gtfsgraph/config"
	"tidbyt.dev/gtfsgraph/graph"
	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/model"
	"tidbyt.dev/gtfsgraph/parse"
	"tidbyt.dev/gtfsgraph/schedule"
	"tidbyt.dev/gtfsgraph/stats"
	"tidbyt.dev/gtfsgraph/zone"
)

// Context cancellation is checked once per this many rows.
const cancelCheckInterval = 10000

// Builder runs a feed through the trip assembler and the zone
// reconciler.
type Builder struct {
	Config *config.Config
	Logger zerolog.Logger
	Stats  *stats.Collector
}

func NewBuilder(cfg *config.Config, logger zerolog.Logger) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Builder{
		Config: cfg,
		Logger: logger,
	}
}

// Result of a build.
type Result struct {
	Graph   *graph.Store
	Lines   *schedule.Lines
	Zoning  *zone.Zoning
	Mapping *zone.Mapping

	// All stops of the feed, in file order.
	Stops []*model.Stop

	Feed    *parse.FeedSummary
	Summary Summary
}

// Summary counts what a build produced and what it skipped.
type Summary struct {
	Nodes    int
	Legs     int
	Segments int
	Lines    int
	Trips    int

	Zones map[zone.Outcome]int

	// Skipped stop_times rows, by reason.
	SkippedStopTimes map[string]int
	SkippedStops     int
}

// Assignment of a stop to its zone.
type Assignment struct {
	StopID string
	ZoneID int
	Zone   string

	// Metres from the stop to the centre of the zone's geometry.
	Distance float64
}

// Build decodes feed and assembles the service graph, then reconciles
// the feed's stops against zones. zones are modified in place: fused
// stops are appended to their external ids.
func (b *Builder) Build(ctx context.Context, feed []byte, zones []*zone.Zone) (*Result, error) {
	return b.BuildWithMapping(ctx, feed, zones, nil)
}

// BuildWithMapping is Build, with stopZones (stop id to zone id) from
// an earlier run. A zone holding a stop there is not fused with a
// different stop.
func (b *Builder) BuildWithMapping(
	ctx context.Context,
	feed []byte,
	zones []*zone.Zone,
	stopZones map[string]int,
) (*Result, error) {
	logger := b.Logger.With().Str("component", "builder").Logger()

	lines := schedule.NewLines()
	store := graph.NewStore().WithStats(b.Stats)
	assembler := schedule.NewAssembler(store, lines, b.Logger).
		WithStats(b.Stats).
		WithDepartureFilter(b.Config.DepartureFilter())

	h := &buildHandler{
		ctx:           ctx,
		config:        b.Config,
		logger:        logger,
		classifier:    b.Config.Classifier(),
		lines:         lines,
		assembler:     assembler,
		ignoredRoutes: map[string]bool{},
		skipped:       map[string]int{},
	}

	decoder := parse.NewDecoder(b.Logger)
	decoder.SortStopTimes = b.Config.SortStopTimes

	feedSummary, err := decoder.Decode(h, feed)
	if err != nil {
		if h.err != nil {
			return nil, h.err
		}
		return nil, errors.Wrap(err, "decoding feed")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reconciler := zone.NewReconciler(zones, b.Config.SearchRadiusMeters, b.Logger).
		WithStats(b.Stats).
		WithPreviousMapping(stopZones)
	stopModes := assembler.StopModes()

	outcomes := map[zone.Outcome]int{}
	skippedStops := 0
	for i, stop := range h.stops {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		outcome, err := reconciler.HandleStop(stop, stopModes[stop.ID])
		if err != nil {
			skippedStops++
			continue
		}
		outcomes[outcome]++
	}

	result := &Result{
		Graph:   store,
		Lines:   lines,
		Zoning:  reconciler.Zoning,
		Mapping: reconciler.Mapping,
		Stops:   h.stops,
		Feed:    feedSummary,
		Summary: Summary{
			Nodes:            store.NumNodes(),
			Legs:             store.NumLegs(),
			Segments:         store.NumSegments(),
			Lines:            len(lines.All()),
			Trips:            lines.NumTrips(),
			Zones:            outcomes,
			SkippedStopTimes: h.skipped,
			SkippedStops:     skippedStops,
		},
	}

	logger.Info().
		Int("nodes", result.Summary.Nodes).
		Int("legs", result.Summary.Legs).
		Int("segments", result.Summary.Segments).
		Int("lines", result.Summary.Lines).
		Int("trips", result.Summary.Trips).
		Int("zones", result.Zoning.Len()).
		Int("mapped_stops", result.Mapping.Len()).
		Msg("built graph")

	return result, nil
}

// Assignments lists every mapped stop with its zone, ordered by stop
// id.
func (r *Result) Assignments() []Assignment {
	stops := map[string]*model.Stop{}
	for _, stop := range r.Stops {
		stops[stop.ID] = stop
	}

	assignments := []Assignment{}
	for _, stopID := range r.Mapping.StopIDs() {
		z := r.Mapping.ZoneFor(stopID)
		a := Assignment{
			StopID: stopID,
			ZoneID: z.ID,
			Zone:   z.PrimaryID(),
		}
		if stop, found := stops[stopID]; found && z.Geometry != nil {
			a.Distance = geo.Distance(orb.Point{stop.Lon, stop.Lat}, z.Geometry.Bound().Center())
		}
		assignments = append(assignments, a)
	}

	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].StopID < assignments[j].StopID
	})

	return assignments
}

// buildHandler receives decoded rows. Routes become lines, trips are
// registered with the assembler, stops are buffered for reconciliation
// and stop times are assembled as they stream in.
type buildHandler struct {
	ctx        context.Context
	config     *config.Config
	logger     zerolog.Logger
	classifier *mode.Classifier
	lines      *schedule.Lines
	assembler  *schedule.Assembler

	cursor        schedule.TripCursor
	ignoredRoutes map[string]bool
	stops         []*model.Stop
	skipped       map[string]int
	rows          int

	// Set when decoding was aborted by cancellation.
	err error
}

func (h *buildHandler) HandleAgency(agency *model.Agency) error {
	return nil
}

func (h *buildHandler) HandleRoute(route *model.Route) error {
	if !h.config.IncludeRoute(route.ID) {
		h.ignoredRoutes[route.ID] = true
		h.logger.Debug().Str("route_id", route.ID).Msg("route filtered out")
		return nil
	}

	m, ok := h.classifier.Classify(route.Type)
	if !ok {
		h.ignoredRoutes[route.ID] = true
		h.logger.Debug().
			Str("route_id", route.ID).
			Int("route_type", int(route.Type)).
			Msg("route type has no mode, ignoring route")
		return nil
	}

	h.lines.Add(*route, m)
	return nil
}

func (h *buildHandler) HandleTrip(trip *model.Trip) error {
	if h.ignoredRoutes[trip.RouteID] {
		h.assembler.IgnoreTrip(trip.ID)
		return nil
	}
	h.assembler.RegisterTrip(*trip)
	return nil
}

func (h *buildHandler) HandleStop(stop *model.Stop) error {
	stopCopy := *stop
	h.stops = append(h.stops, &stopCopy)
	return nil
}

func (h *buildHandler) HandleStopTime(stopTime *model.StopTime) error {
	h.rows++
	if h.rows%cancelCheckInterval == 0 {
		if err := h.ctx.Err(); err != nil {
			h.err = err
			return errors.Wrap(parse.ErrAbort, err.Error())
		}
	}

	err := h.assembler.Process(&h.cursor, stopTime)
	if err != nil {
		h.skipped[skipReason(err)]++
	}
	return err
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, schedule.ErrUnknownTrip):
		return stats.ReasonUnknownTrip
	case errors.Is(err, schedule.ErrNoTransitLine):
		return stats.ReasonNoTransitLine
	case errors.Is(err, schedule.ErrMissingPredecessor):
		return stats.ReasonMissingPredecessor
	case errors.Is(err, schedule.ErrTimeOverflow):
		return stats.ReasonTimeOverflow
	case errors.Is(err, schedule.ErrTripIgnored):
		return stats.ReasonTripIgnored
	}
	return stats.ReasonMalformedRow
}
