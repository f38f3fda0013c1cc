// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package math32

import cmath32 "github.com/chewxy/math32"

// Quat is a rotation quaternion, stored as (X, Y, Z, W), matching the
// layout expected by instance-table upload buffers.
type Quat struct {
	X, Y, Z, W float32
}

// QIdentity returns the identity rotation.
func QIdentity() Quat { return Quat{0, 0, 0, 1} }

// NewQuatAxisAngle returns the quaternion representing a rotation of
// angle radians about axis (which need not be normalized).
func NewQuatAxisAngle(axis Vector3, angle float32) Quat {
	n := axis.Normal()
	s, c := cmath32.Sincos(angle / 2)
	return Quat{n.X * s, n.Y * s, n.Z * s, c}
}

// Normal returns q scaled to unit length.
func (q Quat) Normal() Quat {
	l := cmath32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return QIdentity()
	}
	inv := 1 / l
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Mul returns the Hamilton product q*other: the rotation that applies other first, then q.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// RotateVector3 rotates v by q.
func (q Quat) RotateVector3(v Vector3) Vector3 {
	u := Vec3(q.X, q.Y, q.Z)
	uv := u.Cross(v)
	uuv := u.Cross(uv)
	return v.Add(uv.MulScalar(2 * q.W)).Add(uuv.MulScalar(2))
}
