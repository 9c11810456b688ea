package transform

import "math"

// Quaternion is a rotation in (x, y, z, w) component order, Hamilton
// convention. Unit length is assumed, never enforced: a non-unit input
// produces a non-unit output, which is accepted behavior.
type Quaternion struct {
	X, Y, Z, W float64
}

// Identity returns the no-rotation quaternion
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// FromEulerXYZ builds a quaternion from Euler angles (radians) using
// intrinsic X->Y->Z composition via the standard half-angle products.
func FromEulerXYZ(x, y, z float64) Quaternion {
	cx, sx := math.Cos(x/2), math.Sin(x/2)
	cy, sy := math.Cos(y/2), math.Sin(y/2)
	cz, sz := math.Cos(z/2), math.Sin(z/2)

	return Quaternion{
		X: sx*cy*cz + cx*sy*sz,
		Y: cx*sy*cz - sx*cy*sz,
		Z: cx*cy*sz + sx*sy*cz,
		W: cx*cy*cz - sx*sy*sz,
	}
}

// Conjugate returns the quaternion inverse for unit input
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Mul returns the Hamilton product q ⊗ r
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Rotate applies the rotation to a vector using
// v' = v + 2w(q_xyz × v) + 2(q_xyz × (q_xyz × v)).
func (q Quaternion) Rotate(vx, vy, vz float64) (float64, float64, float64) {
	// t = q_xyz × v
	tx := q.Y*vz - q.Z*vy
	ty := q.Z*vx - q.X*vz
	tz := q.X*vy - q.Y*vx

	// u = q_xyz × t
	ux := q.Y*tz - q.Z*ty
	uy := q.Z*tx - q.X*tz
	uz := q.X*ty - q.Y*tx

	return vx + 2*q.W*tx + 2*ux,
		vy + 2*q.W*ty + 2*uy,
		vz + 2*q.W*tz + 2*uz
}

// ToEulerXYZ extracts intrinsic X->Y->Z Euler angles (radians). At the
// gimbal-lock boundary (|sin(pitch)| >= 1) the pitch is clamped to
// ±π/2 via copysign instead of raising.
func (q Quaternion) ToEulerXYZ() (x, y, z float64) {
	sinPitch := 2 * (q.X*q.Z + q.Y*q.W)
	if math.Abs(sinPitch) >= 1 {
		y = math.Copysign(math.Pi/2, sinPitch)
	} else {
		y = math.Asin(sinPitch)
	}

	x = math.Atan2(2*(q.X*q.W-q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	z = math.Atan2(2*(q.Z*q.W-q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return x, y, z
}
