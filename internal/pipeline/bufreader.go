package pipeline

import (
	"github.com/sensord-project/sensord/internal/ring"
	"github.com/sensord-project/sensord/internal/sample"
)

// BufferReader bridges a RingBuffer[T] to a consumer — a Filter's input or
// a Sink — by draining all currently available samples in fixed-size
// chunks. It is driven by a Bin during one propagation cycle; it never
// blocks.
type BufferReader[T sample.Payload] struct {
	buf       *ring.RingBuffer[T]
	reader    *ring.Reader[T]
	chunk     []sample.Sample[T]
	onSamples func([]sample.Sample[T])
}

// NewBufferReader attaches a reader to buf and wires its drained output to
// onSamples, chunkSize samples at a time.
func NewBufferReader[T sample.Payload](buf *ring.RingBuffer[T], chunkSize int, onSamples func([]sample.Sample[T])) *BufferReader[T] {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &BufferReader[T]{
		buf:       buf,
		reader:    buf.Attach(),
		chunk:     make([]sample.Sample[T], chunkSize),
		onSamples: onSamples,
	}
}

// Drain reads all currently available samples and hands each chunk to the
// wired callback, returning the total number of samples drained. It is the
// building block a Bin cycle calls once per node per pass.
func (b *BufferReader[T]) Drain() (int, error) {
	total := 0
	for {
		n, err := b.buf.Read(b.reader, len(b.chunk), b.chunk)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		b.onSamples(b.chunk[:n])
		total += n
	}
}

// HasAvailable reports whether the underlying reader has any unread
// samples. Bin.Cycle does not call it; a cycle ends after a pass in which
// no stage's Drain returned any samples.
func (b *BufferReader[T]) HasAvailable() (bool, error) {
	n, err := b.buf.Available(b.reader)
	return n > 0, err
}

// Close detaches the underlying reader.
func (b *BufferReader[T]) Close() {
	b.buf.Detach(b.reader)
}
