package pipeline

import (
	"github.com/sensord-project/sensord/internal/ring"
	"github.com/sensord-project/sensord/internal/sample"
)

// DataEmitter adapts a RingBuffer[T] to an external delivery callback,
// grounded in original_source/core/dataemitter.h's DataEmitter<TYPE>: a
// chunked read-and-push loop sitting at the consumer edge of the pipeline,
// past the last filter, delivering samples over the (out of scope) client
// boundary.
type DataEmitter[T sample.Payload] struct {
	reader   *BufferReader[T]
	onDelete func(sample.Sample[T])
}

// NewDataEmitter attaches to buf and calls emit once per drained sample.
func NewDataEmitter[T sample.Payload](buf *ring.RingBuffer[T], chunkSize int, emit func(sample.Sample[T])) *DataEmitter[T] {
	e := &DataEmitter[T]{onDelete: emit}
	e.reader = NewBufferReader(buf, chunkSize, func(samples []sample.Sample[T]) {
		for _, s := range samples {
			e.onDelete(s)
		}
	})
	return e
}

// PushNewData drains everything currently available and emits each sample
// through the delivery callback.
func (e *DataEmitter[T]) PushNewData() (int, error) {
	return e.reader.Drain()
}

// Close detaches the emitter's underlying reader.
func (e *DataEmitter[T]) Close() {
	e.reader.Close()
}
