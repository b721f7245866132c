package chain

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sensord-project/sensord/internal/node"
	"github.com/sensord-project/sensord/internal/xerror"
)

// SensorChannel composes one or more chains and exposes them to sessions
// as a single controllable unit (spec.md §4.7 AbstractSensorChannel): it
// reference-counts per-session start/stop independently of the chains'
// own component-level ref counting, and routes per-session control calls
// into the channel's NodeBase.
type SensorChannel struct {
	Name string
	Node *node.NodeBase

	log *zap.SugaredLogger

	mu       sync.Mutex
	chains   []*Chain
	sessions map[int]struct{}
}

// NewSensorChannel builds a channel over the given node (the arbitration
// surface sessions address) and the chains that must be running while any
// session has the channel open.
func NewSensorChannel(name string, n *node.NodeBase, log *zap.SugaredLogger, chains ...*Chain) *SensorChannel {
	return &SensorChannel{
		Name:     name,
		Node:     n,
		log:      log.With("channel", name),
		chains:   chains,
		sessions: make(map[int]struct{}),
	}
}

// Start subscribes sessionID to the channel. Only the 0→1 session
// transition starts the underlying chains (spec.md §4.7).
func (s *SensorChannel) Start(sessionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, already := s.sessions[sessionID]; already {
		return nil
	}

	wasEmpty := len(s.sessions) == 0
	s.sessions[sessionID] = struct{}{}

	if !wasEmpty {
		return nil
	}

	for i, c := range s.chains {
		if err := c.Start(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = s.chains[j].Stop()
			}
			delete(s.sessions, sessionID)
			return xerror.Wrap(xerror.DeviceOpen, err, "failed to start channel %q", s.Name)
		}
	}
	return nil
}

// Stop unsubscribes sessionID. Only the last session leaving stops the
// underlying chains.
func (s *SensorChannel) Stop(sessionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, present := s.sessions[sessionID]; !present {
		return nil
	}
	delete(s.sessions, sessionID)
	if len(s.sessions) > 0 {
		return nil
	}

	var firstErr error
	for i := len(s.chains) - 1; i >= 0; i-- {
		if err := s.chains[i].Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RequestInterval routes a per-session interval preference into the
// channel's NodeBase arbitration.
func (s *SensorChannel) RequestInterval(sessionID int, intervalMs uint32) error {
	return s.Node.RequestInterval(sessionID, intervalMs)
}

// RequestDataRange routes a per-session range preference into the
// channel's NodeBase arbitration.
func (s *SensorChannel) RequestDataRange(sessionID int, r node.DataRange) error {
	return s.Node.RequestDataRange(sessionID, r)
}

// SetStandbyOverrideRequest routes a per-session standby preference into
// the channel's NodeBase arbitration.
func (s *SensorChannel) SetStandbyOverrideRequest(sessionID int, override bool) bool {
	return s.Node.SetStandbyOverrideRequest(sessionID, override)
}

// Teardown removes every request entry sessionID holds on this channel's
// node and unsubscribes it, for use by the session registry's teardown
// sweep (spec.md §5 "A session's teardown must eventually remove every
// request entry keyed by its id from every node in every chain it
// touched").
func (s *SensorChannel) Teardown(sessionID int) {
	_ = s.Node.RemoveIntervalRequest(sessionID)
	_ = s.Node.RemoveDataRangeRequest(sessionID)
	s.Node.SetStandbyOverrideRequest(sessionID, false)
	_ = s.Stop(sessionID)
}
