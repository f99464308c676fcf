// Package stats provides Prometheus counters for graph assembly and
// zone reconciliation.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reasons a row is skipped.
const (
	ReasonUnknownTrip        = "unknown_trip"
	ReasonNoTransitLine      = "no_transit_line"
	ReasonMissingPredecessor = "missing_predecessor"
	ReasonTimeOverflow       = "time_overflow"
	ReasonMalformedRow       = "malformed_row"
	ReasonTripIgnored        = "trip_ignored"
	ReasonMalformedStop      = "malformed_stop"
)

// Zone reconciliation outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeFused    = "fused"
	OutcomeConflict = "conflict"
	OutcomeIgnored  = "ignored"
)

// Collector holds all counters. A nil *Collector is valid and records
// nothing.
type Collector struct {
	// Registry is the Prometheus registry for this collector
	Registry *prometheus.Registry

	ServiceNodesCreated prometheus.Counter
	LegsCreated         prometheus.Counter
	LegSegmentsCreated  prometheus.Counter
	Departures          prometheus.Counter
	TimingEntries       prometheus.Counter
	RowsSkipped         *prometheus.CounterVec
	Zones               *prometheus.CounterVec
}

// New creates and registers all counters with a new registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		Registry: registry,
		ServiceNodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfsgraph_service_nodes_created_total",
			Help: "Total number of service nodes created",
		}),
		LegsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfsgraph_legs_created_total",
			Help: "Total number of legs created",
		}),
		LegSegmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfsgraph_leg_segments_created_total",
			Help: "Total number of directed leg segments created",
		}),
		Departures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfsgraph_departures_total",
			Help: "Total number of departures registered on scheduled trips",
		}),
		TimingEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfsgraph_timing_entries_total",
			Help: "Total number of timing entries appended to scheduled trips",
		}),
		RowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfsgraph_rows_skipped_total",
				Help: "Total number of feed rows skipped, by reason",
			},
			[]string{"reason"},
		),
		Zones: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfsgraph_zones_total",
				Help: "Total number of stops reconciled against platform zones, by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		c.ServiceNodesCreated,
		c.LegsCreated,
		c.LegSegmentsCreated,
		c.Departures,
		c.TimingEntries,
		c.RowsSkipped,
		c.Zones,
	)

	return c
}

func (c *Collector) NodeCreated() {
	if c != nil {
		c.ServiceNodesCreated.Inc()
	}
}

func (c *Collector) LegCreated() {
	if c != nil {
		c.LegsCreated.Inc()
	}
}

func (c *Collector) SegmentCreated() {
	if c != nil {
		c.LegSegmentsCreated.Inc()
	}
}

func (c *Collector) DepartureAdded() {
	if c != nil {
		c.Departures.Inc()
	}
}

func (c *Collector) TimingAdded() {
	if c != nil {
		c.TimingEntries.Inc()
	}
}

func (c *Collector) RowSkipped(reason string) {
	if c != nil {
		c.RowsSkipped.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) ZoneOutcome(outcome string) {
	if c != nil {
		c.Zones.WithLabelValues(outcome).Inc()
	}
}
