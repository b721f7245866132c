package pipeline

import "github.com/sensord-project/sensord/internal/sample"

// Filter is the single entry point a Bin drives during a propagation cycle
// (spec.md §4.3): consume inputs, push zero or more outputs onto Output().
// Implementations must be pure with respect to their internal state (same
// state + same input sequence yields the same output sequence), must never
// block, and may drop or coalesce samples.
type Filter[In, Out sample.Payload] interface {
	Process(inputs []sample.Sample[In])
	Output() *Source[Out]
}

// Producer is the capability of owning an output Source (spec.md §9).
type Producer[T sample.Payload] interface {
	Output() *Source[T]
}

// Consumer is the capability of owning an input Sink (spec.md §9).
type Consumer[T sample.Payload] interface {
	Sink[T]
}
