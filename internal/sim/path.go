package sim

import (
	"math"

	"myohub/internal/band"
	"myohub/internal/mat3"
)

// myohw accelerometer unit, g/2048.
const gravityScale = 2048

var quatIdentity = [4]float64{0, 0, 0, 1}

// shapePath returns the trail point (x, y) and wrist roll a gesture shape
// passes through at progress p in [0, 1]. Trail coordinates are the
// angles the pipeline recovers downstream; roll is radians about the
// forearm axis, negative for clockwise.
func shapePath(shape string, extent, p float64) (x, y, roll float64) {
	switch shape {
	case ShapeRight:
		return extent * p, 0, 0
	case ShapeLeft:
		return -extent * p, 0, 0
	case ShapeUp:
		return 0, extent * p, 0
	case ShapeDown:
		return 0, -extent * p, 0
	case ShapeCircleCW:
		r := extent / 2
		th := 2 * math.Pi * p
		return r * math.Sin(th), r*math.Cos(th) - r, 0
	case ShapeCircleCCW:
		r := extent / 2
		th := 2 * math.Pi * p
		return -r * math.Sin(th), r*math.Cos(th) - r, 0
	case ShapeRotateCW:
		return 0, 0, -extent * p
	case ShapeRotateCCW:
		return 0, 0, extent * p
	}
	return 0, 0, 0
}

// gestureQuat converts a path sample into the band orientation that
// reproduces it, relative to the rebased reference.
//
// The trail x coordinate is recovered from a rotation about the X axis
// directly; the y coordinate solves sin(y) = -cos(a)*sin(b) for the Y
// axis angle b; roll rides on the forearm (Z) axis.
func gestureQuat(seg *segment, p float64) [4]float64 {
	x, y, roll := shapePath(seg.shape, seg.extent, p)

	a := x
	b := 0.0
	if c := math.Cos(a); c != 0 {
		sb := math.Sin(y) / c
		if sb > 1 {
			sb = 1
		} else if sb < -1 {
			sb = -1
		}
		b = -math.Asin(sb)
	}
	return quatMul(axisQuat(0, a), quatMul(axisQuat(1, b), axisQuat(2, roll)))
}

// quatMul is the Hamilton product a*b; composing rotations this way
// matches multiplying their matrices in the same order.
func quatMul(a, b [4]float64) [4]float64 {
	return [4]float64{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

// axisQuat rotates by angle about a coordinate axis (0=X, 1=Y, 2=Z).
func axisQuat(axis int, angle float64) [4]float64 {
	q := [4]float64{0, 0, 0, math.Cos(angle / 2)}
	q[axis] = math.Sin(angle / 2)
	return q
}

// imuFrameFor quantizes a unit quaternion to the wire orientation and
// fills the accelerometer with the body-frame gravity vector it implies.
// Gyro stays zero; nothing downstream models angular rate.
func imuFrameFor(q [4]float64) band.IMUFrame {
	var f band.IMUFrame
	for i, v := range q {
		f.Orientation[i] = int16(math.Round(v * band.OrientationScale))
	}
	r := mat3.FromQuaternion(q[0], q[1], q[2], q[3])
	for i := 0; i < 3; i++ {
		f.Accel[i] = int16(math.Round(r[2][i] * gravityScale))
	}
	return f
}
