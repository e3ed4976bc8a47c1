// Package mat3 is the small fixed-size linear algebra kernel used by the
// gesture engine: 3x3 rotation matrices and unit-quaternion conversion.
package mat3

import "math"

// Matrix is a 3x3 matrix in row-major order.
type Matrix [3][3]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Mul returns m*o.
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// MulVec returns m*v.
func (m Matrix) MulVec(v [3]float64) [3]float64 {
	var r [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i] += m[i][j] * v[j]
		}
	}
	return r
}

// Inverse returns the inverse of m, computed by the closed-form cofactor
// expansion. Callers pass rotation matrices, which are never singular; a
// singular input yields Inf/NaN entries rather than an error.
func (m Matrix) Inverse() Matrix {
	det := m[0][0]*(m[1][1]*m[2][2]-m[2][1]*m[1][2]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	inv := 1 / det

	var r Matrix
	r[0][0] = (m[1][1]*m[2][2] - m[2][1]*m[1][2]) * inv
	r[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv
	r[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv
	r[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv
	r[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv
	r[1][2] = (m[1][0]*m[0][2] - m[0][0]*m[1][2]) * inv
	r[2][0] = (m[1][0]*m[2][1] - m[2][0]*m[1][1]) * inv
	r[2][1] = (m[2][0]*m[0][1] - m[0][0]*m[2][1]) * inv
	r[2][2] = (m[0][0]*m[1][1] - m[1][0]*m[0][1]) * inv
	return r
}

// FromQuaternion converts a unit quaternion to a rotation matrix. Components
// are clipped to (-0.999999, 0.999999) first; the asin extraction downstream
// requires matrix entries to stay inside the open interval.
func FromQuaternion(x, y, z, w float64) Matrix {
	x = clip(x, -0.999999, 0.999999)
	y = clip(y, -0.999999, 0.999999)
	z = clip(z, -0.999999, 0.999999)
	w = clip(w, -0.999999, 0.999999)

	return Matrix{
		{1 - 2*y*y - 2*z*z, 2*x*y - 2*w*z, 2*x*z + 2*w*y},
		{2*x*y + 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z - 2*w*x},
		{2*x*z - 2*w*y, 2*y*z + 2*w*x, 1 - 2*x*x - 2*y*y},
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
