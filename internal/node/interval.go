package node

// IntervalRequest pairs a requesting session with the interval (in
// milliseconds) it asked for.
type IntervalRequest struct {
	SessionID  int
	IntervalMs uint32
}

// IntervalSource is the contract a node's interval arbitration exposes,
// and the contract an upstream delegate must satisfy.
type IntervalSource interface {
	CurrentInterval() IntervalRequest
	RequestInterval(sessionID int, intervalMs uint32) error
	RemoveIntervalRequest(sessionID int) error
}

// SetIntervalSource delegates all interval arbitration to an upstream
// node. Invalid once a local interval request has been made.
func (n *NodeBase) SetIntervalSource(source IntervalSource) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.intervalQueue) > 0 {
		panic("node: SetIntervalSource called on a node with pending local interval requests")
	}
	n.intervalSource = source
}

func (n *NodeBase) hasLocalInterval() bool {
	return n.intervalSource == nil
}

// CurrentInterval returns the fastest (minimum) requested interval — ties
// broken by insertion order — or delegates upstream. Returns
// { SessionID: -1 } if no request is pending (spec.md §4.6).
func (n *NodeBase) CurrentInterval() IntervalRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentIntervalLocked()
}

func (n *NodeBase) currentIntervalLocked() IntervalRequest {
	if !n.hasLocalInterval() {
		return n.intervalSource.CurrentInterval()
	}
	if len(n.intervalQueue) == 0 {
		return IntervalRequest{SessionID: -1}
	}
	head := n.intervalQueue[0]
	for _, req := range n.intervalQueue[1:] {
		if req.IntervalMs < head.IntervalMs {
			head = req
		}
	}
	return head
}

// RequestInterval replaces-in-place or appends sessionID's request, then
// re-evaluates the effective (minimum) interval and calls the concrete
// setter if it changed. Interval selection is minimum-wins: the fastest
// requested interval governs (spec.md §4.6, scenario S2).
func (n *NodeBase) RequestInterval(sessionID int, intervalMs uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.hasLocalInterval() {
		return n.intervalSource.RequestInterval(sessionID, intervalMs)
	}

	previousHead := n.currentIntervalLocked()

	replaced := false
	for i := range n.intervalQueue {
		if n.intervalQueue[i].SessionID == sessionID {
			n.intervalQueue[i].IntervalMs = intervalMs
			replaced = true
			break
		}
	}
	if !replaced {
		n.intervalQueue = append(n.intervalQueue, IntervalRequest{SessionID: sessionID, IntervalMs: intervalMs})
	}

	newHead := n.currentIntervalLocked()
	if newHead != previousHead {
		n.applyIntervalLocked(newHead)
	}
	return nil
}

// RemoveIntervalRequest removes sessionID's entry and re-evaluates the
// effective interval if it changed.
func (n *NodeBase) RemoveIntervalRequest(sessionID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.hasLocalInterval() {
		return n.intervalSource.RemoveIntervalRequest(sessionID)
	}

	index := -1
	for i, req := range n.intervalQueue {
		if req.SessionID == sessionID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil
	}

	previousHead := n.currentIntervalLocked()
	n.intervalQueue = append(n.intervalQueue[:index], n.intervalQueue[index+1:]...)
	newHead := n.currentIntervalLocked()

	if newHead != previousHead {
		n.applyIntervalLocked(newHead)
	}
	return nil
}

func (n *NodeBase) applyIntervalLocked(req IntervalRequest) {
	if n.setInterval != nil {
		if !n.setInterval(req.IntervalMs, req.SessionID) {
			n.log.Warnw("failed to set interval", "node", n.description, "session", req.SessionID)
		}
	}
	n.emitPropertyChanged("interval")
}
