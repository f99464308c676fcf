// Package graph holds the service graph: one node per distinct stop,
// undirected legs between pairs of nodes, and directed leg segments
// traversing those legs.
package graph

import (
	"sort"
	"sync"

	"tidbyt.dev/gtfsgraph/stats"
)

// A graph vertex representing one distinct stop.
type ServiceNode struct {
	ID         int
	ExternalID string

	// Optional binding to a node of the physical network. Left blank
	// by the assembler.
	NetworkRef string
}

// An undirected connection between two service nodes. A is the
// upstream node of the direction the leg was first created for.
type Leg struct {
	ID         int
	ExternalID string
	A          *ServiceNode
	B          *ServiceNode
}

// Reports whether the leg spans the unordered pair {x, y}.
func (l *Leg) Spans(x, y *ServiceNode) bool {
	return (l.A == x && l.B == y) || (l.A == y && l.B == x)
}

// A directed traversal of a Leg.
type LegSegment struct {
	ID         int
	ExternalID string
	Leg        *Leg
	Up         *ServiceNode
	Down       *ServiceNode
}

type segmentKey struct {
	from string
	to   string
}

// Store holds service nodes, legs and segments keyed by external stop
// id and node pair. Lookup-or-create operations are atomic.
type Store struct {
	mutex sync.Mutex

	nodes    map[string]*ServiceNode
	legs     []*Leg
	segments map[segmentKey]*LegSegment

	// Creation order, for stable iteration
	nodeOrder    []*ServiceNode
	segmentOrder []*LegSegment

	stats *stats.Collector
}

func NewStore() *Store {
	return &Store{
		nodes:    map[string]*ServiceNode{},
		segments: map[segmentKey]*LegSegment{},
	}
}

// Records element creation in c.
func (s *Store) WithStats(c *stats.Collector) *Store {
	s.stats = c
	return s
}

// Returns the service node for stopID, creating it on first use.
func (s *Store) GetOrCreateServiceNode(stopID string) *ServiceNode {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.getOrCreateServiceNode(stopID)
}

func (s *Store) getOrCreateServiceNode(stopID string) *ServiceNode {
	if node, found := s.nodes[stopID]; found {
		return node
	}

	node := &ServiceNode{
		ID:         len(s.nodeOrder),
		ExternalID: stopID,
	}
	s.nodes[stopID] = node
	s.nodeOrder = append(s.nodeOrder, node)
	s.stats.NodeCreated()

	return node
}

// Node returns the service node for stopID, if any.
func (s *Store) Node(stopID string) (*ServiceNode, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	node, found := s.nodes[stopID]
	return node, found
}

// LegSegment returns the segment from -> to, or nil.
func (s *Store) LegSegment(from, to *ServiceNode) *LegSegment {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.segments[segmentKey{from.ExternalID, to.ExternalID}]
}

// Returns the segment from -> to, creating it if needed. When the
// opposite segment exists its Leg is reused, so both directions share
// one Leg. Otherwise a new Leg anchored at from -> to is created.
func (s *Store) GetOrCreateLegSegment(from, to *ServiceNode) *LegSegment {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := segmentKey{from.ExternalID, to.ExternalID}
	if segment, found := s.segments[key]; found {
		return segment
	}

	var leg *Leg
	if opposite, found := s.segments[segmentKey{to.ExternalID, from.ExternalID}]; found {
		leg = opposite.Leg
	} else {
		leg = &Leg{
			ID:         len(s.legs),
			ExternalID: from.ExternalID + "_" + to.ExternalID,
			A:          from,
			B:          to,
		}
		s.legs = append(s.legs, leg)
		s.stats.LegCreated()
	}

	segment := &LegSegment{
		ID:         len(s.segmentOrder),
		ExternalID: from.ExternalID + "_" + to.ExternalID,
		Leg:        leg,
		Up:         from,
		Down:       to,
	}
	s.segments[key] = segment
	s.segmentOrder = append(s.segmentOrder, segment)
	s.stats.SegmentCreated()

	return segment
}

// LegBetween returns the leg spanning {a, b} in either direction.
func (s *Store) LegBetween(a, b *ServiceNode) *Leg {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if segment, found := s.segments[segmentKey{a.ExternalID, b.ExternalID}]; found {
		return segment.Leg
	}
	if segment, found := s.segments[segmentKey{b.ExternalID, a.ExternalID}]; found {
		return segment.Leg
	}
	return nil
}

func (s *Store) SegmentByExternalID(externalID string) *LegSegment {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, segment := range s.segmentOrder {
		if segment.ExternalID == externalID {
			return segment
		}
	}
	return nil
}

func (s *Store) LegByExternalID(externalID string) *Leg {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, leg := range s.legs {
		if leg.ExternalID == externalID {
			return leg
		}
	}
	return nil
}

// Nodes in creation order.
func (s *Store) Nodes() []*ServiceNode {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]*ServiceNode{}, s.nodeOrder...)
}

// Legs in creation order.
func (s *Store) Legs() []*Leg {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]*Leg{}, s.legs...)
}

// Segments in creation order.
func (s *Store) Segments() []*LegSegment {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]*LegSegment{}, s.segmentOrder...)
}

// Sorted external ids of all nodes.
func (s *Store) NodeIDs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) NumNodes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.nodeOrder)
}

func (s *Store) NumLegs() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.legs)
}

func (s *Store) NumSegments() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.segmentOrder)
}
