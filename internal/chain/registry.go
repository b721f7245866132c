package chain

import (
	"fmt"
	"sync"

	"github.com/sensord-project/sensord/internal/node"
)

// NodeRegistry owns every NodeBase a sensor channel's chains reference, by
// name, so upstream range/standby wiring can be expressed and validated as
// name lookups instead of owning pointers (spec.md §9: "represent these
// relations as indices into a node registry owned by the channel, not as
// owning references").
type NodeRegistry struct {
	mu    sync.Mutex
	nodes map[string]*node.NodeBase
}

// NewNodeRegistry builds an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: make(map[string]*node.NodeBase)}
}

// Register adds n under name. Registering the same name twice overwrites
// the previous entry.
func (r *NodeRegistry) Register(name string, n *node.NodeBase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[name] = n
}

// Lookup returns the node registered under name, if any.
func (r *NodeRegistry) Lookup(name string) (*node.NodeBase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[name]
	return n, ok
}

// ValidateAcyclic checks that the upstream edges named in edges (child
// name -> the upstream names it delegates or cascades to) form a DAG, as
// required before SetRangeSource/AddStandbyOverrideSource wiring is
// applied to the real nodes (spec.md §4.6 invariant: "Upstream cascade is
// loop-free: a range source graph must be a DAG"). Returns an error naming
// the first cycle found.
func ValidateAcyclic(edges map[string][]string) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(edges))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cyclic node dependency: %v -> %s", path, name)
		}
		state[name] = visiting
		for _, upstream := range edges[name] {
			if err := visit(upstream, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range edges {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
