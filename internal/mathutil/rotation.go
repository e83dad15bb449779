package mathutil

import "math"

// AxisAngle returns the rotation of angle a (radians) about axis (Rodrigues).
// A zero axis yields the identity.
func AxisAngle(axis Vec3, a float64) Mat3 {
	k := axis.Normalize()
	if k.IsZero() {
		return Mat3Identity()
	}
	c, s := math.Cos(a), math.Sin(a)
	t := 1 - c
	x, y, z := k[0], k[1], k[2]
	return Mat3{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c,
	}
}

// RotX returns a rotation around the X axis. Angle in radians.
func RotX(a float64) Mat3 { return AxisAngle(Vec3{1, 0, 0}, a) }

// RotY returns a rotation around the Y axis.
func RotY(a float64) Mat3 { return AxisAngle(Vec3{0, 1, 0}, a) }

// RotZ returns a rotation around the Z axis.
func RotZ(a float64) Mat3 { return AxisAngle(Vec3{0, 0, 1}, a) }

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}
