package pipeline

import "github.com/sensord-project/sensord/internal/sample"

// Sink is a named endpoint that accepts samples pushed by a connected
// Source, in the order the Source emits them (spec.md §4.2).
type Sink[T sample.Payload] interface {
	Accept(samples []sample.Sample[T])
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc[T sample.Payload] func(samples []sample.Sample[T])

func (f SinkFunc[T]) Accept(samples []sample.Sample[T]) {
	f(samples)
}
