package bin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sensord-project/sensord/internal/pipeline"
	"github.com/sensord-project/sensord/internal/ring"
	"github.com/sensord-project/sensord/internal/sample"
)

// doublingFilter doubles a Scalar reading, pushing the result onto its
// Output source — a minimal stand-in for a concrete Filter implementation.
type doublingFilter struct {
	out pipeline.Source[sample.Scalar]
}

func (f *doublingFilter) Process(inputs []sample.Sample[sample.Scalar]) {
	doubled := make([]sample.Sample[sample.Scalar], len(inputs))
	for i, in := range inputs {
		doubled[i] = sample.New(in.Timestamp, sample.Scalar{Value: in.Value.Value * 2})
	}
	f.out.Emit(doubled)
}

func (f *doublingFilter) Output() *pipeline.Source[sample.Scalar] {
	return &f.out
}

func TestBinPropagatesThroughOneCycle(t *testing.T) {
	inputBuf := ring.NewWithCapacity[sample.Scalar](8)
	outputBuf := ring.NewWithCapacity[sample.Scalar](8)

	filter := &doublingFilter{}
	filter.Output().Connect(pipeline.SinkFunc[sample.Scalar](func(samples []sample.Sample[sample.Scalar]) {
		outputBuf.Write(samples)
	}))

	b := New("test")
	stage := pipeline.NewBufferReader(inputBuf, 4, filter.Process)
	b.AddStage(stage)

	require.NoError(t, b.Start())

	outReader := outputBuf.Attach()

	inputBuf.Write([]sample.Sample[sample.Scalar]{
		sample.New(1, sample.Scalar{Value: 2}),
		sample.New(2, sample.Scalar{Value: 3}),
	})

	n, err := b.Cycle()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	out := make([]sample.Sample[sample.Scalar], 4)
	count, err := outputBuf.Read(outReader, 4, out)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, uint32(4), out[0].Value.Value)
	require.Equal(t, uint32(6), out[1].Value.Value)
}

func TestBinStartStopIsRefCountedAndIdempotent(t *testing.T) {
	opened, closed := 0, 0
	b := New("refcounted")
	b.AddProducer(fakeProducer{
		open:  func() error { opened++; return nil },
		close: func() error { closed++; return nil },
	})

	require.NoError(t, b.Start())
	require.NoError(t, b.Start())
	require.Equal(t, 1, opened)

	require.NoError(t, b.Stop())
	require.Equal(t, 0, closed)

	require.NoError(t, b.Stop())
	require.Equal(t, 1, closed)
}

func TestBinConnectRejectsWrongType(t *testing.T) {
	b := New("wiring")
	var src pipeline.Source[sample.Scalar]
	b.Register("src", &src)
	b.Register("sink", pipeline.SinkFunc[sample.Xyz](func([]sample.Sample[sample.Xyz]) {}))

	err := bindConnectXyz(b)
	require.Error(t, err)
}

func bindConnectXyz(b *Bin) error {
	return Connect[sample.Xyz](b, "src", "sink")
}

type fakeProducer struct {
	open  func() error
	close func() error
}

func (f fakeProducer) Open() error  { return f.open() }
func (f fakeProducer) Close() error { return f.close() }
