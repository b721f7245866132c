package ring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sensord-project/sensord/internal/sample"
)

func scalarSample(ts int64, v uint32) sample.Sample[sample.Scalar] {
	return sample.New(ts, sample.Scalar{Value: v})
}

// S1: single producer writes [1,2,3,4,5] at capacity 4 with one slow
// reader; the reader sees either the full sequence or a dropped-prefix
// suffix, never out of order, never duplicated.
func TestRingBufferOverrunScenarioS1(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](4)
	r := rb.Attach()

	for i := uint32(1); i <= 5; i++ {
		rb.Write([]sample.Sample[sample.Scalar]{scalarSample(int64(i), i)})
	}

	out := make([]sample.Sample[sample.Scalar], 8)
	n, err := rb.Read(r, 8, out)
	require.NoError(t, err)
	require.NotZero(t, n)

	got := make([]uint32, n)
	for i := 0; i < n; i++ {
		got[i] = out[i].Value.Value
	}

	// Whatever suffix survives must be contiguous and increasing, ending
	// in 5, and never contain a gap (e.g. [1,3,5] is forbidden).
	require.Equal(t, uint32(5), got[len(got)-1])
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1]+1, got[i])
	}
	if n < 5 {
		require.GreaterOrEqual(t, r.Dropped(), uint64(1))
	}
}

func TestRingBufferFastAndSlowReadersAreIndependent(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](8)
	fast := rb.Attach()
	slow := rb.Attach()

	for i := uint32(0); i < 4; i++ {
		rb.Write([]sample.Sample[sample.Scalar]{scalarSample(int64(i), i)})
	}

	out := make([]sample.Sample[sample.Scalar], 8)
	n, err := rb.Read(fast, 8, out)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	avail, err := rb.Available(slow)
	require.NoError(t, err)
	require.Equal(t, 4, avail)

	n, err = rb.Read(slow, 8, out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestRingBufferReadEmptyReturnsZero(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](4)
	r := rb.Attach()

	out := make([]sample.Sample[sample.Scalar], 4)
	n, err := rb.Read(r, 4, out)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRingBufferDetachedReaderFailsWithInvalidCursor(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](4)
	r := rb.Attach()
	rb.Detach(r)

	out := make([]sample.Sample[sample.Scalar], 4)
	_, err := rb.Read(r, 4, out)
	require.Error(t, err)

	_, err = rb.Available(r)
	require.Error(t, err)
}

func TestRingBufferOrderPreservedAcrossManyWrites(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](16)
	r := rb.Attach()

	const total = 100
	for i := uint32(0); i < total; i++ {
		rb.Write([]sample.Sample[sample.Scalar]{scalarSample(int64(i), i)})

		out := make([]sample.Sample[sample.Scalar], 16)
		n, err := rb.Read(r, 16, out)
		require.NoError(t, err)
		if n > 0 {
			require.Equal(t, i, out[n-1].Value.Value)
		}
	}
}

func TestRingBufferCapacityRoundsToPowerOfTwo(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](5)
	require.Equal(t, 8, rb.Capacity())
}

func TestRingBufferReadReturnsExactWrittenSequence(t *testing.T) {
	rb := NewWithCapacity[sample.Scalar](8)
	r := rb.Attach()

	want := []sample.Sample[sample.Scalar]{
		scalarSample(1, 10),
		scalarSample(2, 20),
		scalarSample(3, 30),
	}
	rb.Write(want)

	out := make([]sample.Sample[sample.Scalar], 8)
	n, err := rb.Read(r, 8, out)
	require.NoError(t, err)

	if diff := cmp.Diff(want, out[:n]); diff != "" {
		t.Errorf("read sequence mismatch (-want +got):\n%s", diff)
	}
}
