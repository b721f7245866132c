package sample

// Payload is the marker interface satisfied by the closed set of sample
// payload types (spec.md §3, §9): scalar (unsigned, signed), vector, pose,
// and tap event types.
type Payload interface {
	Scalar | Signed | Xyz | Pose | Tap
}

// Scalar is an unsigned scalar reading (e.g. ambient light, proximity).
type Scalar struct {
	Value uint32
}

// Signed is a signed scalar reading (e.g. a single rotation axis).
type Signed struct {
	Value int32
}

// Xyz is a three-axis vector reading (accelerometer, magnetometer, gyro).
type Xyz struct {
	X, Y, Z int32
}

// Orientation is the discrete device-orientation enum emitted by the
// orientation interpreter filter.
type Orientation int

const (
	OrientationUndefined Orientation = iota
	OrientationTopUp
	OrientationBottomUp
	OrientationLeftUp
	OrientationRightUp
	OrientationFaceUp
	OrientationFaceDown
)

// Pose carries a discrete orientation value.
type Pose struct {
	Orientation Orientation
}

// TapDirection identifies which axis and sense a tap event was detected on.
type TapDirection int

const (
	TapDirectionX TapDirection = iota
	TapDirectionY
	TapDirectionZ
)

// Tap is a discrete tap-event reading.
type Tap struct {
	Direction TapDirection
	DoubleTap bool
}
