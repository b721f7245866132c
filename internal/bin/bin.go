// Package bin implements the Bin container of spec.md §4.4: a named
// registry of producers, filters, and buffers in a single thread domain,
// driving one propagation cycle at a time.
//
// The per-worker drain loop this package generalizes is grounded in
// modules/pdump/controlplane/ring.go's runReaders: there, one goroutine per
// worker drains a byte ring into a protobuf channel, woken by a notifier
// and joined via errgroup. Bin generalizes "one worker's bytes" to "one
// bin's arbitrary stage graph" and "one protobuf channel" to "the fixed
// point of a topological propagation cycle".
package bin

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sensord-project/sensord/internal/pipeline"
	"github.com/sensord-project/sensord/internal/sample"
	"github.com/sensord-project/sensord/internal/xerror"
)

// Stage is the capability a Bin drives once per propagation pass: drain
// everything currently available on this node's input, running its
// transform and enqueuing outputs downstream. pipeline.BufferReader[T]
// satisfies this for any payload type T; pipeline.DataEmitter[T] does not
// (it exposes PushNewData instead of Drain).
type Stage interface {
	Drain() (int, error)
	HasAvailable() (bool, error)
}

// Producer is a component a Bin opens on Start and closes on Stop — e.g. a
// SysfsAdaptor. Open/Close must be idempotent from the adaptor's own
// reference counting; Bin only calls them on the 0→1 / 1→0 edges of its own
// count.
type Producer interface {
	Open() error
	Close() error
}

// Bin is a named, acyclic registry of producers, filters, and buffers
// scheduled as a unit.
type Bin struct {
	Name string

	mu         sync.Mutex
	components map[string]any
	stages     []Stage
	producers  []Producer
	running    bool
	startCount int
}

// New builds an empty Bin.
func New(name string) *Bin {
	return &Bin{Name: name, components: make(map[string]any)}
}

// Register names a component so it can later be wired by name via Connect.
// Must happen before Start; registering twice under the same name replaces
// the previous registration.
func (b *Bin) Register(name string, component any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.components[name] = component
}

// Lookup returns a previously registered component.
func (b *Bin) Lookup(name string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.components[name]
	return c, ok
}

// AddStage appends a Stage to the cycle's dependency order. Stages must be
// added in the order a topological sort of the wiring graph would visit
// them — the bin itself does not compute the sort, matching spec.md §4.4's
// "visited in dependency order seeded from the producer" without requiring
// callers to express the graph edges twice.
func (b *Bin) AddStage(stage Stage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stages = append(b.stages, stage)
}

// AddProducer registers a component this bin opens/closes on start/stop.
func (b *Bin) AddProducer(p Producer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.producers = append(b.producers, p)
}

// Connect wires a named Source[T] to a named Sink[T]. Both must already be
// registered via Register. Connection, per spec.md §4.2, should only be
// established while the bin is stopped.
func Connect[T sample.Payload](b *Bin, sourceName, sinkName string) error {
	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if running {
		return xerror.New(xerror.ArbitrationFailure, "cannot connect %s -> %s while bin %q is running", sourceName, sinkName, b.Name)
	}

	srcAny, ok := b.Lookup(sourceName)
	if !ok {
		return xerror.New(xerror.ArbitrationFailure, "no such source %q in bin %q", sourceName, b.Name)
	}
	sinkAny, ok := b.Lookup(sinkName)
	if !ok {
		return xerror.New(xerror.ArbitrationFailure, "no such sink %q in bin %q", sinkName, b.Name)
	}

	src, ok := srcAny.(*pipeline.Source[T])
	if !ok {
		return xerror.New(xerror.ArbitrationFailure, "component %q is not a Source of the requested type", sourceName)
	}
	sink, ok := sinkAny.(pipeline.Sink[T])
	if !ok {
		return xerror.New(xerror.ArbitrationFailure, "component %q is not a Sink of the requested type", sinkName)
	}

	src.Connect(sink)
	return nil
}

// Start opens producers. It does not attach readers: each stage's reader is
// attached when that stage (e.g. a pipeline.BufferReader) is constructed.
// Idempotent and reference counted: only the 0→1 transition has any
// effect, so multiple sensor channels sharing a bin start it exactly once
// (spec.md §4.4).
func (b *Bin) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.startCount++
	if b.startCount > 1 {
		return nil
	}

	for _, p := range b.producers {
		if err := p.Open(); err != nil {
			b.startCount--
			return xerror.Wrap(xerror.DeviceOpen, err, "failed to open producer in bin %q", b.Name)
		}
	}
	b.running = true
	return nil
}

// Stop decrements the reference count. Only the 1→0 transition stops
// producers, drains one final cycle, and marks the bin not running.
func (b *Bin) Stop() error {
	b.mu.Lock()
	if b.startCount == 0 {
		b.mu.Unlock()
		return nil
	}
	b.startCount--
	if b.startCount > 0 {
		b.mu.Unlock()
		return nil
	}
	producers := append([]Producer(nil), b.producers...)
	b.mu.Unlock()

	var firstErr error
	for _, p := range producers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if _, err := b.Cycle(); err != nil && firstErr == nil {
		firstErr = err
	}

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()

	return firstErr
}

// Cycle runs one propagation cycle: visits stages in dependency order,
// draining all currently available input, until a fixed point where no
// stage reports unread samples (spec.md §4.4).
func (b *Bin) Cycle() (int, error) {
	b.mu.Lock()
	stages := append([]Stage(nil), b.stages...)
	b.mu.Unlock()

	total := 0
	for {
		progressed := false
		for _, s := range stages {
			n, err := s.Drain()
			if err != nil {
				return total, err
			}
			total += n
			if n > 0 {
				progressed = true
			}
		}
		if !progressed {
			return total, nil
		}
	}
}

// Notify is the readiness edge a producer signals to this bin's
// consumer/dispatch thread (spec.md §5): it runs one cycle synchronously.
// Callers that want the dispatch thread to run independently of the
// producer's own goroutine should call Notify from their own goroutine.
func (b *Bin) Notify() (int, error) {
	return b.Cycle()
}

// RunReaders drives a set of independently-ready stages concurrently,
// joining on the first error — grounded in
// modules/pdump/controlplane/ring.go's runReaders/errgroup pattern, used
// when multiple producer-fed bins must be serviced by a shared dispatch
// pool instead of Bin's own synchronous Notify.
func RunReaders(ready <-chan *Bin, done <-chan struct{}) error {
	g := new(errgroup.Group)
	g.Go(func() error {
		for {
			select {
			case <-done:
				return nil
			case b, ok := <-ready:
				if !ok {
					return nil
				}
				if _, err := b.Cycle(); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
