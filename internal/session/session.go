// Package session implements the session registry of spec.md §5/§8: a
// record of which channels each client session has touched, so tearing a
// session down removes every request entry it left behind, across every
// chain and node it reached.
//
// Grounded in modules/balancer/agent/go/manager.go's mutex-guarded,
// name-indexed registry pattern, generalized from "one manager per
// balancer name" to "one teardown target set per session id".
package session

import (
	"sync"

	"go.uber.org/zap"
)

// Teardownable is anything a session can touch and must be released from
// at session teardown — satisfied by *chain.SensorChannel.
type Teardownable interface {
	Teardown(sessionID int)
}

// Registry tracks, per session id, every Teardownable the session has
// started or issued a request against.
type Registry struct {
	log *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[int]map[Teardownable]struct{}
}

// New builds an empty session registry.
func New(log *zap.SugaredLogger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[int]map[Teardownable]struct{}),
	}
}

// Touch records that sessionID has interacted with target, so a later
// Teardown(sessionID) will reach it.
func (r *Registry) Touch(sessionID int, target Teardownable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, ok := r.sessions[sessionID]
	if !ok {
		targets = make(map[Teardownable]struct{})
		r.sessions[sessionID] = targets
	}
	targets[target] = struct{}{}
}

// Active reports whether sessionID has any recorded targets.
func (r *Registry) Active(sessionID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// Teardown tears sessionID down from every target it has touched and
// forgets the session (spec.md §5: "A session's teardown must eventually
// remove every request entry keyed by its id from every node in every
// chain it touched", and §8 property 4).
func (r *Registry) Teardown(sessionID int) {
	r.mu.Lock()
	targets := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	for target := range targets {
		target.Teardown(sessionID)
	}
	r.log.Debugw("session torn down", "session_id", sessionID, "targets", len(targets))
}

// Count returns the number of sessions currently tracked, for
// diagnostics/tests.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
