package node

// DataRange is the datatype for sensor data range and resolution,
// grounded in original_source/datatypes/datarange.h.
type DataRange struct {
	Min        float64
	Max        float64
	Resolution float64
}

// DataRangeRequest pairs a requesting session with the range it asked for.
type DataRangeRequest struct {
	SessionID int
	Range     DataRange
}

// RangeSource is the contract a node's available-data-range arbitration
// exposes to callers, and the contract an upstream delegate must satisfy
// (spec.md §4.6).
type RangeSource interface {
	AvailableDataRanges() []DataRange
	CurrentDataRange() DataRangeRequest
	RequestDataRange(sessionID int, r DataRange) error
	RemoveDataRangeRequest(sessionID int) error
}

// AddAvailableDataRange appends a locally-owned data range. Invalid once an
// upstream range source has been set — a node has either local range
// ownership or delegates entirely to one upstream source, never partial
// (spec.md §3).
func (n *NodeBase) AddAvailableDataRange(r DataRange) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.rangeSource != nil {
		panic("node: AddAvailableDataRange called on a node with an upstream range source")
	}
	for _, existing := range n.rangeList {
		if existing == r {
			return
		}
	}
	n.rangeList = append(n.rangeList, r)
}

// SetRangeSource delegates all range arbitration to an upstream node.
// Invalid once a local range has been added.
func (n *NodeBase) SetRangeSource(source RangeSource) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.rangeList) > 0 {
		panic("node: SetRangeSource called on a node with locally-owned ranges")
	}
	n.rangeSource = source
}

func (n *NodeBase) hasLocalRange() bool {
	return n.rangeSource == nil
}

// AvailableDataRanges returns the configured list if local, otherwise
// delegates to the upstream range source.
func (n *NodeBase) AvailableDataRanges() []DataRange {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hasLocalRange() {
		out := make([]DataRange, len(n.rangeList))
		copy(out, n.rangeList)
		return out
	}
	return n.rangeSource.AvailableDataRanges()
}

// CurrentDataRange returns the queue head, or { -1, available[0] } if the
// queue is empty, or delegates upstream (spec.md §4.6).
func (n *NodeBase) CurrentDataRange() DataRangeRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentDataRangeLocked()
}

func (n *NodeBase) currentDataRangeLocked() DataRangeRequest {
	if n.hasLocalRange() {
		if len(n.rangeQueue) == 0 {
			var def DataRange
			if len(n.rangeList) > 0 {
				def = n.rangeList[0]
			}
			return DataRangeRequest{SessionID: -1, Range: def}
		}
		return n.rangeQueue[0]
	}
	return n.rangeSource.CurrentDataRange()
}

// RequestDataRange implements the full replace-or-append, re-evaluate-head,
// call-concrete-setter semantics of spec.md §4.6. A range outside the
// available list is silently ignored (spec.md §9 open question, resolved in
// DESIGN.md per the original source's observed behavior).
func (n *NodeBase) RequestDataRange(sessionID int, r DataRange) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.hasLocalRange() {
		return n.rangeSource.RequestDataRange(sessionID, r)
	}

	if !containsRange(n.rangeList, r) {
		return nil
	}

	previousHead := n.currentDataRangeLocked()

	replaced := false
	for i := range n.rangeQueue {
		if n.rangeQueue[i].SessionID == sessionID {
			n.rangeQueue[i].Range = r
			replaced = true
			break
		}
	}
	if !replaced {
		n.rangeQueue = append(n.rangeQueue, DataRangeRequest{SessionID: sessionID, Range: r})
	}

	newHead := n.currentDataRangeLocked()
	if newHead != previousHead {
		n.applyDataRangeLocked(newHead)
	}
	return nil
}

// RemoveDataRangeRequest removes the first entry matching sessionID,
// re-evaluating the head if it was removed.
func (n *NodeBase) RemoveDataRangeRequest(sessionID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.hasLocalRange() {
		return n.rangeSource.RemoveDataRangeRequest(sessionID)
	}

	index := -1
	for i, req := range n.rangeQueue {
		if req.SessionID == sessionID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil
	}

	previousHead := n.currentDataRangeLocked()
	n.rangeQueue = append(n.rangeQueue[:index], n.rangeQueue[index+1:]...)
	newHead := n.currentDataRangeLocked()

	if newHead != previousHead {
		n.applyDataRangeLocked(newHead)
	}
	return nil
}

func (n *NodeBase) applyDataRangeLocked(req DataRangeRequest) {
	if n.setDataRange != nil {
		if !n.setDataRange(req.Range, req.SessionID) {
			n.log.Warnw("failed to set data range", "node", n.description, "session", req.SessionID)
		}
	}
	n.emitPropertyChanged("datarange")
}

func containsRange(list []DataRange, r DataRange) bool {
	for _, existing := range list {
		if existing == r {
			return true
		}
	}
	return false
}
