// Package coordalign implements a coordinate-alignment filter: it remaps a
// raw accelerometer reading's axes through a fixed 3x3 matrix before
// downstream interpretation, the way a device's mounting orientation is
// normalized before sensor fusion. Grounded in
// original_source/sensors/orientationsensor/orientationsensor.h's static
// aconv_[3][3] alignment matrix; the specific coefficients are a
// placeholder since spec.md §1 places the numerical filter algorithms
// themselves out of scope.
package coordalign

import (
	"github.com/sensord-project/sensord/internal/pipeline"
	"github.com/sensord-project/sensord/internal/sample"
)

// Matrix is a row-major 3x3 transform applied to each incoming reading.
type Matrix [3][3]int32

// Identity is the no-op alignment matrix.
var Identity = Matrix{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Filter aligns Sample[Xyz] readings through a fixed matrix. It satisfies
// pipeline.Filter[sample.Xyz, sample.Xyz].
type Filter struct {
	matrix Matrix
	out    pipeline.Source[sample.Xyz]
}

// New builds a coordinate-alignment filter using the given matrix.
func New(matrix Matrix) *Filter {
	return &Filter{matrix: matrix}
}

// Output returns the filter's output source.
func (f *Filter) Output() *pipeline.Source[sample.Xyz] {
	return &f.out
}

// Process applies the alignment matrix to every input and pushes the
// result unchanged in cardinality — one output per input, same timestamp —
// matching original_source/sensors/contextplugin/screeninterpreterfilter.h's
// "pushes data forward unchanged" shape.
func (f *Filter) Process(inputs []sample.Sample[sample.Xyz]) {
	outputs := make([]sample.Sample[sample.Xyz], len(inputs))
	for i, in := range inputs {
		m := f.matrix
		x, y, z := in.Value.X, in.Value.Y, in.Value.Z
		outputs[i] = sample.New(in.Timestamp, sample.Xyz{
			X: m[0][0]*x + m[0][1]*y + m[0][2]*z,
			Y: m[1][0]*x + m[1][1]*y + m[1][2]*z,
			Z: m[2][0]*x + m[2][1]*y + m[2][2]*z,
		})
	}
	f.out.Emit(outputs)
}
