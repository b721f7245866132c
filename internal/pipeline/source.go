// Package pipeline implements the L0/L1 typed connection layer of
// spec.md §4.2/§4.3: Source/Sink endpoints and the Filter contract, plus
// the BufferReader/DataEmitter adapters that bridge a ring buffer to a
// filter input or an external delivery callback.
package pipeline

import (
	"reflect"
	"sync"

	"github.com/sensord-project/sensord/internal/sample"
)

// connection wraps a connected Sink in the connection slice. Membership is
// decided by sinkEqual, never by comparing Sink[T] interface values with ==
// directly: most sinks in this codebase are SinkFunc values (e.g.
// engine.go's filter wiring), and func values are not comparable —
// comparing two of them with == panics at runtime.
type connection[T sample.Payload] struct {
	sink Sink[T]
}

// Source emits samples to every connected Sink, in connection order.
// Connection is established only while the containing bin is stopped
// (spec.md §4.2); Source itself does not enforce that — the owning Bin
// does, since only it knows whether it is running.
type Source[T sample.Payload] struct {
	mu    sync.Mutex
	conns []*connection[T]
}

// sinkEqual reports whether a and b are the same sink. Uncomparable
// dynamic types (funcs, and anything holding one) never compare equal
// here instead of panicking. As a result, Connect does not de-duplicate
// such sinks and Disconnect cannot remove them.
func sinkEqual[T sample.Payload](a, b Sink[T]) bool {
	t := reflect.TypeOf(a)
	if t == nil || !t.Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// Connect attaches sink if it is not already connected. Idempotent for
// sinks of a comparable type; an uncomparable sink (e.g. a SinkFunc) is
// appended again on every call.
func (s *Source[T]) Connect(sink Sink[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conns {
		if sinkEqual(c.sink, sink) {
			return
		}
	}
	s.conns = append(s.conns, &connection[T]{sink: sink})
}

// Disconnect removes sink. Idempotent. Sinks of an uncomparable type (e.g.
// a SinkFunc) never match and stay connected. Per spec.md §4.2, disconnection
// drains the sink of any queued sample before returning; since Emit is
// synchronous and Sinks do not internally queue in this implementation,
// there is nothing left in flight once Disconnect is called under the
// same quiescent discipline Bin.Stop observes.
func (s *Source[T]) Disconnect(sink Sink[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.conns {
		if sinkEqual(c.sink, sink) {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

// Emit pushes samples to every connected sink, in connection order.
func (s *Source[T]) Emit(samples []sample.Sample[T]) {
	s.mu.Lock()
	conns := make([]*connection[T], len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()

	for _, c := range conns {
		c.sink.Accept(samples)
	}
}
