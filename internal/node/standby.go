package node

// StandbySetterSource is the upstream standby-override contract a node
// cascades to (original_source/sensord/nodebase.cpp's m_standbySourceList).
// Unlike range/interval sources, standby cascades to zero, one, or many
// upstream sources at once.
type StandbySetterSource interface {
	SetStandbyOverrideRequest(sessionID int, override bool) bool
}

// AddStandbyOverrideSource registers an upstream node this node cascades
// standby requests to.
func (n *NodeBase) AddStandbyOverrideSource(source StandbySetterSource) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.standbySources = append(n.standbySources, source)
}

// StandbyOverride reports whether standby override is currently active:
// true iff at least one session has requested it locally, or — when this
// node has upstream sources instead of (or in addition to) local state —
// every upstream source reports active (spec.md §4.6).
func (n *NodeBase) StandbyOverride() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.standbyRequests) > 0 {
		return true
	}
	if len(n.standbySources) == 0 {
		return false
	}

	for _, source := range n.standbySources {
		if !standbyActive(source) {
			return false
		}
	}
	return true
}

func standbyActive(source StandbySetterSource) bool {
	type reporter interface {
		StandbyOverride() bool
	}
	if r, ok := source.(reporter); ok {
		return r.StandbyOverride()
	}
	return false
}

// SetStandbyOverrideRequest implements the full local-set mutation,
// concrete-setter call, and upstream cascade-with-revert-on-partial-failure
// semantics of spec.md §4.6 / scenario S6.
func (n *NodeBase) SetStandbyOverrideRequest(sessionID int, override bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if override {
		n.standbyRequests[sessionID] = struct{}{}
	} else {
		delete(n.standbyRequests, sessionID)
	}

	if len(n.standbySources) == 0 {
		if n.setStandby == nil {
			return true
		}
		return n.setStandby(len(n.standbyRequests) > 0)
	}

	ok := true
	for _, source := range n.standbySources {
		if !source.SetStandbyOverrideRequest(sessionID, override) {
			ok = false
		}
	}

	if override && !ok {
		for _, source := range n.standbySources {
			source.SetStandbyOverrideRequest(sessionID, false)
		}
	}

	return ok
}
