// Package chain implements the composite Chain and AbstractSensorChannel
// layer of spec.md §4.7: reusable subgraphs of bins and producers, wired
// together and exposed to sessions as one controllable unit.
//
// Grounded in modules/balancer/agent/go/manager.go's mutex-guarded,
// ref-counted manager pattern, generalized from a single FFI handle to a
// chain of bins/adaptors plus a NodeBase describing its control surface.
package chain

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sensord-project/sensord/internal/node"
	"github.com/sensord-project/sensord/internal/xerror"
)

// Startable is anything with idempotent, reference-counted start/stop —
// satisfied by *bin.Bin without that package importing chain.
// *adaptor.SysfsAdaptor does not satisfy it (its methods are
// StartAdaptor/StopAdaptor); an adaptor is driven through the bin that
// opens it as a bin.Producer.
type Startable interface {
	Start() error
	Stop() error
}

// Chain composes one or more Startables (bins feeding off adaptors) with
// the NodeBase that describes the chain's effective interval/range/standby
// surface. A Chain is the reusable unit spec.md's GLOSSARY calls out —
// e.g. "the accelerometer chain reused by many sensor channels" — and is
// itself reference-counted so sharing a chain across channels starts its
// underlying bins exactly once.
type Chain struct {
	Name string
	Node *node.NodeBase

	log *zap.SugaredLogger

	mu         sync.Mutex
	components []Startable
	startCount int
}

// New builds a Chain. n may be nil for chains with no arbitrable surface
// of their own (e.g. a pass-through chain that only forwards to upstream
// nodes via delegation).
func New(name string, n *node.NodeBase, log *zap.SugaredLogger) *Chain {
	return &Chain{
		Name: name,
		Node: n,
		log:  log.With("chain", name),
	}
}

// AddComponent registers a Startable (e.g. a bin) that Start/Stop will
// drive in registration order. Must be called before the chain is first
// started.
func (c *Chain) AddComponent(s Startable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, s)
}

// Start reference-counts the chain's activation: only the 0→1 transition
// starts the underlying components, in registration order. On partial
// failure, already-started components are stopped and the count is rolled
// back (spec.md §4.3's start/stop idempotence, generalized to a chain of
// components).
func (c *Chain) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startCount++
	if c.startCount > 1 {
		return nil
	}

	for i, comp := range c.components {
		if err := comp.Start(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.components[j].Stop()
			}
			c.startCount--
			return xerror.Wrap(xerror.DeviceOpen, err, "failed to start chain %q", c.Name)
		}
	}
	return nil
}

// Stop reference-counts the chain's deactivation: only the 1→0 transition
// stops components, in reverse registration order.
func (c *Chain) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.startCount == 0 {
		return nil
	}
	c.startCount--
	if c.startCount > 0 {
		return nil
	}

	var firstErr error
	for i := len(c.components) - 1; i >= 0; i-- {
		if err := c.components[i].Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("chain %q: %w", c.Name, firstErr)
	}
	return nil
}

// Running reports whether this chain has any active start reference.
func (c *Chain) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startCount > 0
}
