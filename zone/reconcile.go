package zone

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/model"
	"tidbyt.dev/gtfsgraph/stats"
)

const DefaultRadius = 20.0

// Distances closer than this are considered equal.
const tieEpsilon = 1e-9

var ErrMalformedStop = errors.New("malformed stop")

// Outcome of reconciling one stop.
type Outcome string

const (
	OutcomeCreated  Outcome = stats.OutcomeCreated
	OutcomeFused    Outcome = stats.OutcomeFused
	OutcomeConflict Outcome = stats.OutcomeConflict
	OutcomeIgnored  Outcome = stats.OutcomeIgnored
)

// Reconciler matches platform stops to the nearest compatible zone of
// an existing inventory, creating zones where none fits.
type Reconciler struct {
	Zoning  *Zoning
	Mapping *Mapping

	index  *Index
	radius float64
	logger zerolog.Logger
	stats  *stats.Collector
}

// NewReconciler indexes existing and adds them to a new Zoning.
// Zones created later by HandleStop are not indexed, so stops only
// ever fuse into pre-existing zones.
func NewReconciler(existing []*Zone, radius float64, logger zerolog.Logger) *Reconciler {
	if radius <= 0 {
		radius = DefaultRadius
	}

	logger = logger.With().Str("component", "zone_reconciler").Logger()

	zoning := NewZoning()
	index := NewIndex()
	for _, z := range existing {
		zoning.Add(z)
		if !index.Insert(z) {
			logger.Warn().Int("zone_id", z.ID).Str("zone", z.PrimaryID()).Msg("zone has no geometry, not indexed")
		}
	}

	return &Reconciler{
		Zoning:  zoning,
		Mapping: NewMapping(logger),
		index:   index,
		radius:  radius,
		logger:  logger,
	}
}

func (r *Reconciler) WithStats(c *stats.Collector) *Reconciler {
	r.stats = c
	return r
}

// WithPreviousMapping restores a stop id to zone id mapping written by
// an earlier run, so zones keep the stops they already hold.
func (r *Reconciler) WithPreviousMapping(stopZones map[string]int) *Reconciler {
	for stopID, zoneID := range stopZones {
		z, found := r.Zoning.Get(zoneID)
		if !found {
			r.logger.Debug().
				Str("stop_id", stopID).
				Int("zone_id", zoneID).
				Msg("previously mapped zone is gone, dropping stop")
			continue
		}
		r.Mapping.Restore(stopID, z)
	}
	return r
}

// HandleStop reconciles one stop record. modes are the modes of the
// lines serving the stop, possibly empty.
func (r *Reconciler) HandleStop(stop *model.Stop, modes mode.Set) (Outcome, error) {
	switch stop.LocationType {
	case model.LocationTypePlatform:
		return r.handlePlatform(stop, modes)
	case model.LocationTypeStation:
		return r.ignore(stop)
	case model.LocationTypeEntranceExit:
		return r.ignore(stop)
	case model.LocationTypeGenericNode:
		return r.ignore(stop)
	case model.LocationTypeBoardingArea:
		return r.ignore(stop)
	default:
		r.logger.Warn().
			Str("stop_id", stop.ID).
			Int("location_type", int(stop.LocationType)).
			Msg("unknown location type, skipping stop")
		r.stats.RowSkipped(stats.ReasonMalformedStop)
		return "", errors.Wrapf(ErrMalformedStop, "stop '%s' location_type %d", stop.ID, stop.LocationType)
	}
}

func (r *Reconciler) ignore(stop *model.Stop) (Outcome, error) {
	r.logger.Debug().
		Str("stop_id", stop.ID).
		Stringer("location_type", stop.LocationType).
		Msg("not a platform, skipping reconciliation")
	r.stats.ZoneOutcome(string(OutcomeIgnored))
	return OutcomeIgnored, nil
}

func (r *Reconciler) handlePlatform(stop *model.Stop, modes mode.Set) (Outcome, error) {
	if err := validateLocation(stop); err != nil {
		r.logger.Warn().Err(err).Str("stop_id", stop.ID).Msg("malformed platform stop, skipping")
		r.stats.RowSkipped(stats.ReasonMalformedStop)
		return "", err
	}

	if z := r.Mapping.ZoneFor(stop.ID); z != nil {
		r.logger.Debug().Str("stop_id", stop.ID).Int("zone_id", z.ID).Msg("stop already reconciled")
		r.stats.ZoneOutcome(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	location := orb.Point{stop.Lon, stop.Lat}
	candidates := r.filter(stop, modes, r.index.Within(location, r.radius))
	if len(candidates) == 0 {
		return r.create(stop, modes, OutcomeCreated)
	}

	nearest := Nearest(location, candidates)

	if other, conflict := r.Mapping.ConflictingStop(nearest, stop.ID); conflict {
		r.logger.Warn().
			Str("stop_id", stop.ID).
			Str("other_stop_id", other).
			Int("zone_id", nearest.ID).
			Str("zone", nearest.PrimaryID()).
			Msg("nearest zone already holds another stop, creating a new zone")
		return r.create(stop, modes, OutcomeConflict)
	}

	nearest.AddExternalID(stop.ID)
	if err := r.Mapping.Register(stop.ID, nearest); err != nil {
		return "", err
	}

	r.logger.Debug().
		Str("stop_id", stop.ID).
		Int("zone_id", nearest.ID).
		Str("zone", nearest.PrimaryID()).
		Msg("fused stop into zone")
	r.stats.ZoneOutcome(string(OutcomeFused))
	return OutcomeFused, nil
}

// Drops candidates serving none of the stop's modes, and poles when
// the stop has a platform code.
func (r *Reconciler) filter(stop *model.Stop, modes mode.Set, candidates []*Zone) []*Zone {
	kept := candidates[:0]
	for _, z := range candidates {
		if len(modes) > 0 {
			known := z.KnownModes()
			if len(known) > 0 && !known.Intersects(modes) {
				continue
			}
		}
		if stop.PlatformCode != "" && z.Kind == KindPole {
			continue
		}
		kept = append(kept, z)
	}
	return kept
}

func (r *Reconciler) create(stop *model.Stop, modes mode.Set, outcome Outcome) (Outcome, error) {
	z := r.Zoning.Add(&Zone{
		ExternalIDs:  []string{stop.ID},
		Name:         stop.Name,
		PlatformCode: stop.PlatformCode,
		Kind:         kindFor(stop, modes),
		Geometry:     orb.Point{stop.Lon, stop.Lat},
		Modes:        mode.Set{}.Union(modes),
		Created:      true,
	})
	if err := r.Mapping.Register(stop.ID, z); err != nil {
		return "", err
	}

	r.logger.Debug().
		Str("stop_id", stop.ID).
		Int("zone_id", z.ID).
		Stringer("kind", z.Kind).
		Msg("created zone")
	r.stats.ZoneOutcome(string(outcome))
	return outcome, nil
}

func kindFor(stop *model.Stop, modes mode.Set) Kind {
	if stop.PlatformCode != "" {
		return KindPlatform
	}
	if len(modes) == 0 {
		return KindOther
	}
	if modes.IsRoadOnly() {
		return KindPole
	}
	return KindPlatform
}

// Nearest returns the candidate whose projected envelope center is
// closest to p. Ties go to the lowest primary external id, then the
// lowest internal id.
func Nearest(p orb.Point, candidates []*Zone) *Zone {
	origin := project.Point(p, project.WGS84.ToMercator)

	var best *Zone
	bestDistance := math.Inf(1)
	for _, z := range candidates {
		d := planar.Distance(origin, Envelope(z).Center())
		switch {
		case best == nil, d < bestDistance-tieEpsilon:
			best, bestDistance = z, d
		case math.Abs(d-bestDistance) <= tieEpsilon && before(z, best):
			best, bestDistance = z, d
		}
	}
	return best
}

func before(a, b *Zone) bool {
	if a.PrimaryID() != b.PrimaryID() {
		return a.PrimaryID() < b.PrimaryID()
	}
	return a.ID < b.ID
}

func validateLocation(stop *model.Stop) error {
	if stop.ID == "" {
		return errors.Wrap(ErrMalformedStop, "missing stop_id")
	}
	if math.IsNaN(stop.Lat) || math.IsNaN(stop.Lon) ||
		stop.Lat < -90 || stop.Lat > 90 ||
		stop.Lon < -180 || stop.Lon > 180 {
		return errors.Wrapf(ErrMalformedStop, "stop '%s' coordinates out of range", stop.ID)
	}
	if stop.Lat == 0 && stop.Lon == 0 {
		return errors.Wrapf(ErrMalformedStop, "stop '%s' has placeholder coordinates", stop.ID)
	}
	// Mercator is undefined at the poles
	if math.Abs(stop.Lat) > 85 {
		return errors.Wrapf(ErrMalformedStop, "stop '%s' latitude outside mercator range", stop.ID)
	}
	return nil
}
