// Package node implements the NodeBase metadata and arbitration layer of
// spec.md §4.6: per-node interval and data-range request queues with
// priority selection, standby override negotiation, and cascading
// propagation through upstream nodes.
//
// Grounded line-for-line in original_source/sensord/nodebase.cpp, with Qt
// signals/slots re-expressed as an explicit observer list guarded by the
// same mutex as the state it describes (spec.md §9's note on
// object-identity signals).
package node

import (
	"sync"

	"go.uber.org/zap"
)

// Arbitrable is the capability spec.md §9 names: the full NodeBase
// contract a chain or channel drives.
type Arbitrable interface {
	RangeSource
	IntervalSource
	Description() string
}

// StandbySetter is the concrete hook a device-specific node implements to
// actually apply a standby-override decision.
type StandbySetter func(override bool) bool

// RangeSetter is the concrete hook a device-specific node implements to
// actually apply a data-range decision.
type RangeSetter func(r DataRange, sessionID int) bool

// IntervalSetter is the concrete hook a device-specific node implements to
// actually apply an interval decision.
type IntervalSetter func(intervalMs uint32, sessionID int) bool

// NodeBase is the non-leaf participant exposing range/interval/standby
// metadata and arbitration (spec.md §3/§4.6). Every request queue and the
// standby set are guarded by a single per-node mutex, held only for the
// duration of a queue manipulation and the synchronous concrete setter
// call (spec.md §5).
type NodeBase struct {
	mu sync.Mutex

	description string

	rangeList   []DataRange
	rangeQueue  []DataRangeRequest
	rangeSource RangeSource

	intervalQueue  []IntervalRequest
	intervalSource IntervalSource

	standbyRequests map[int]struct{}
	standbySources  []StandbySetterSource

	setDataRange RangeSetter
	setInterval  IntervalSetter
	setStandby   StandbySetter

	observers []func(property string)

	log *zap.SugaredLogger
}

// New builds a NodeBase with the given description and concrete setter
// hooks. Any hook may be nil for a node that only aggregates upstream
// sources and never owns state locally.
func New(description string, setDataRange RangeSetter, setInterval IntervalSetter, setStandby StandbySetter, log *zap.SugaredLogger) *NodeBase {
	return &NodeBase{
		description:     description,
		standbyRequests: make(map[int]struct{}),
		setDataRange:    setDataRange,
		setInterval:     setInterval,
		setStandby:      setStandby,
		log:             log,
	}
}

// Description returns the node's description string.
func (n *NodeBase) Description() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.description
}

// SetDescription updates the node's description string.
func (n *NodeBase) SetDescription(description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.description = description
}

// OnPropertyChanged registers an observer invoked whenever this node emits
// a propertyChanged signal. A single edge may coalesce multiple state
// transitions (spec.md §9).
func (n *NodeBase) OnPropertyChanged(fn func(property string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, fn)
}

// emitPropertyChanged is called with n.mu held by the arbitration methods
// in this package. Observers must not call back into the same node.
func (n *NodeBase) emitPropertyChanged(property string) {
	for _, fn := range n.observers {
		fn(property)
	}
}
