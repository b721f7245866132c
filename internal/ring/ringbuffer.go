// Package ring implements the lock-free single-producer/multi-consumer
// typed ring buffer of spec.md §4.1: a fixed-capacity (power-of-two)
// circular array of samples, one writer, independent reader cursors.
//
// The overrun-accounting technique (atomic write/read indices, lazily
// correcting a reader's cursor to the oldest still-valid slot when the
// writer has lapped it) is grounded in
// modules/pdump/controlplane/ring.go's workerArea, adapted from a cgo
// shared-memory byte ring to an in-process generic Sample[T] ring.
package ring

import (
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/c2h5oh/datasize"

	"github.com/sensord-project/sensord/internal/sample"
	"github.com/sensord-project/sensord/internal/xerror"
)

// Reader is an attached read cursor. The zero value is not usable; obtain
// one from RingBuffer.Attach.
type Reader[T sample.Payload] struct {
	ring     *RingBuffer[T]
	readIdx  atomic.Uint64
	dropped  atomic.Uint64
	detached atomic.Bool
}

// Dropped returns the number of samples this reader has lost to overrun
// since it was attached.
func (r *Reader[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// RingBuffer is a fixed-capacity circular array of Sample[T].
type RingBuffer[T sample.Payload] struct {
	buf  []sample.Sample[T]
	mask uint64

	writeIdx atomic.Uint64

	mu      sync.Mutex // guards readers; held only around attach/detach
	readers []*Reader[T]
}

// capacityFromSize rounds a byte budget down to the number of Sample[T]
// slots it affords, then up to the next power of two, with a floor of 2.
func capacityFromSize[T sample.Payload](size datasize.ByteSize) int {
	var zero sample.Sample[T]
	elemSize := uint64(unsafe.Sizeof(zero))
	if elemSize == 0 {
		elemSize = 1
	}
	n := uint64(size.Bytes()) / elemSize
	if n < 2 {
		n = 2
	}
	return 1 << bits.Len64(n-1)
}

// New builds a RingBuffer sized to hold the given byte budget's worth of
// Sample[T] values, rounded to the next power of two.
func New[T sample.Payload](size datasize.ByteSize) *RingBuffer[T] {
	return NewWithCapacity[T](capacityFromSize[T](size))
}

// NewWithCapacity builds a RingBuffer with an explicit power-of-two
// capacity (rounded up if the given value is not already one).
func NewWithCapacity[T sample.Payload](capacity int) *RingBuffer[T] {
	if capacity < 2 {
		capacity = 2
	}
	capacity = 1 << bits.Len64(uint64(capacity-1))
	return &RingBuffer[T]{
		buf:  make([]sample.Sample[T], capacity),
		mask: uint64(capacity - 1),
	}
}

// Capacity returns the number of slots in the ring.
func (rb *RingBuffer[T]) Capacity() int {
	return len(rb.buf)
}

// Attach registers a new read cursor starting at the current write
// position, so the reader only observes samples written from this point
// forward. Must happen before the writer starts producing, or under an
// agreed quiescent window (spec.md §4.1).
func (rb *RingBuffer[T]) Attach() *Reader[T] {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	r := &Reader[T]{ring: rb}
	r.readIdx.Store(rb.writeIdx.Load())
	rb.readers = append(rb.readers, r)
	return r
}

// Detach unregisters a read cursor. Subsequent reads against it fail with
// InvalidCursor.
func (rb *RingBuffer[T]) Detach(r *Reader[T]) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i, rr := range rb.readers {
		if rr == r {
			rb.readers = append(rb.readers[:i], rb.readers[i+1:]...)
			break
		}
	}
	r.detached.Store(true)
}

// Write appends n samples. Writer-only. If the writer laps the slowest
// reader, those readers observe the lap lazily on their next Read/Available
// call rather than being pushed forward here — the write path never blocks
// and never inspects reader state.
func (rb *RingBuffer[T]) Write(samples []sample.Sample[T]) int {
	start := rb.writeIdx.Load()
	for i, s := range samples {
		rb.buf[(start+uint64(i))&rb.mask] = s
	}
	rb.writeIdx.Add(uint64(len(samples)))
	return len(samples)
}

// oldestValid returns the logical index of the oldest sample still present
// in the buffer given the current write position.
func (rb *RingBuffer[T]) oldestValid() uint64 {
	w := rb.writeIdx.Load()
	cap64 := uint64(len(rb.buf))
	if w > cap64 {
		return w - cap64
	}
	return 0
}

// Available returns the count of samples not yet read by r.
func (rb *RingBuffer[T]) Available(r *Reader[T]) (int, error) {
	if r.detached.Load() {
		return 0, xerror.New(xerror.InvalidCursor, "reader is detached")
	}
	w := rb.writeIdx.Load()
	effective := r.readIdx.Load()
	if oldest := rb.oldestValid(); effective < oldest {
		effective = oldest
	}
	if w <= effective {
		return 0, nil
	}
	return int(w - effective), nil
}

// Read copies up to max available samples into out (which must have
// capacity >= max) and advances r's cursor. Returns the count copied (0 if
// empty). Non-blocking, reader-only.
func (rb *RingBuffer[T]) Read(r *Reader[T], max int, out []sample.Sample[T]) (int, error) {
	if r.detached.Load() {
		return 0, xerror.New(xerror.InvalidCursor, "reader is detached")
	}

	w := rb.writeIdx.Load()
	cur := r.readIdx.Load()
	if oldest := rb.oldestValid(); cur < oldest {
		r.dropped.Add(oldest - cur)
		cur = oldest
	}
	if w <= cur {
		return 0, nil
	}

	n := w - cur
	if n > uint64(max) {
		n = uint64(max)
	}

	for i := uint64(0); i < n; i++ {
		out[i] = rb.buf[(cur+i)&rb.mask]
	}

	// The writer may have lapped us again while we were copying; detect
	// and account for it rather than returning stale/overwritten data.
	newOldest := rb.oldestValid()
	if newOldest > cur {
		lost := newOldest - cur
		if lost > n {
			lost = n
		}
		r.dropped.Add(lost)
		r.readIdx.Store(newOldest)
		return 0, nil
	}

	r.readIdx.Store(cur + n)
	return int(n), nil
}
