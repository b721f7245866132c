// Package orientation implements an orientation-interpreter filter: it
// consumes aligned accelerometer readings and emits a discrete Pose only
// when the interpreted orientation changes, coalescing everything else.
// Grounded in original_source/sensors/orientationsensor/orientationsensor.h
// (OrientationInterpreter feeding a RingBuffer[PoseData] only on state
// change) and original_source/sensors/contextplugin/screeninterpreterfilter.h's
// threshold/hysteresis shape. The specific thresholding algorithm is a
// simplified placeholder per spec.md §1's "specific numerical algorithms
// inside individual filters" non-goal — what this filter demonstrates is
// the coalesce-on-state-change contract of spec.md §4.3.
package orientation

import (
	"github.com/sensord-project/sensord/internal/pipeline"
	"github.com/sensord-project/sensord/internal/sample"
)

// Filter interprets Sample[Xyz] into Sample[Pose], emitting only on
// change. It satisfies pipeline.Filter[sample.Xyz, sample.Pose].
type Filter struct {
	threshold int32 // mG; minimum dominant-axis magnitude for a defined orientation
	have      bool
	current   sample.Orientation
	out       pipeline.Source[sample.Pose]
}

// New builds an orientation interpreter with the given threshold, in mG,
// matching the OrientationSensorChannel.threshold property of the original
// source.
func New(threshold int32) *Filter {
	return &Filter{threshold: threshold}
}

// Output returns the filter's output source.
func (f *Filter) Output() *pipeline.Source[sample.Pose] {
	return &f.out
}

// Process classifies each input by dominant axis and pushes a Pose sample
// only when the classification differs from the filter's current state —
// the internal state f.current/f.have makes this filter stateful and pure
// (same state + same inputs ⇒ same outputs), per spec.md §4.3.
func (f *Filter) Process(inputs []sample.Sample[sample.Xyz]) {
	var outputs []sample.Sample[sample.Pose]
	for _, in := range inputs {
		next := classify(in.Value, f.threshold)
		if f.have && next == f.current {
			continue
		}
		f.have = true
		f.current = next
		outputs = append(outputs, sample.New(in.Timestamp, sample.Pose{Orientation: next}))
	}
	if len(outputs) > 0 {
		f.out.Emit(outputs)
	}
}

// classify picks the axis with the largest magnitude at or beyond threshold
// and maps its sign to a discrete orientation. Ties between axes resolve in
// favor of Z, then X; readings with no axis at or beyond threshold fall
// back to OrientationUndefined.
func classify(v sample.Xyz, threshold int32) sample.Orientation {
	ax, ay, az := abs32(v.X), abs32(v.Y), abs32(v.Z)

	switch {
	case az >= ax && az >= ay && az >= threshold:
		if v.Z > 0 {
			return sample.OrientationFaceUp
		}
		return sample.OrientationFaceDown
	case ax >= ay && ax >= threshold:
		if v.X > 0 {
			return sample.OrientationRightUp
		}
		return sample.OrientationLeftUp
	case ay >= threshold:
		if v.Y > 0 {
			return sample.OrientationTopUp
		}
		return sample.OrientationBottomUp
	default:
		return sample.OrientationUndefined
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
