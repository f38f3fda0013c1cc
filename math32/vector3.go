// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package math32

import cmath32 "github.com/chewxy/math32"

// Vector3 is a 3D vector/point with X, Y and Z float32 components.
type Vector3 struct {
	X, Y, Z float32
}

// Vec3 returns a new Vector3 with given x, y, z components.
func Vec3(x, y, z float32) Vector3 { return Vector3{x, y, z} }

// Add returns the vector sum of v and other.
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns the vector difference of v and other.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// MulScalar returns v scaled by s.
func (v Vector3) MulScalar(s float32) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

// Mul returns the component-wise product of v and other.
func (v Vector3) Mul(other Vector3) Vector3 {
	return Vector3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

// Dot returns the dot product of v and other.
func (v Vector3) Dot(other Vector3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product of v and other.
func (v Vector3) Cross(other Vector3) Vector3 {
	return Vector3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Min returns the component-wise minimum of v and other.
func (v Vector3) Min(other Vector3) Vector3 {
	return Vector3{Min(v.X, other.X), Min(v.Y, other.Y), Min(v.Z, other.Z)}
}

// Max returns the component-wise maximum of v and other.
func (v Vector3) Max(other Vector3) Vector3 {
	return Vector3{Max(v.X, other.X), Max(v.Y, other.Y), Max(v.Z, other.Z)}
}

// Length returns the Euclidean length of v.
func (v Vector3) Length() float32 {
	return cmath32.Sqrt(v.Dot(v))
}

// Normal returns v scaled to unit length; the zero vector is returned unchanged.
func (v Vector3) Normal() Vector3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}

// SetDim sets the value along the given axis (0=X, 1=Y, 2=Z).
func (v *Vector3) SetDim(dim int, val float32) {
	switch dim {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	case 2:
		v.Z = val
	}
}

// Dim returns the value along the given axis (0=X, 1=Y, 2=Z).
func (v Vector3) Dim(dim int) float32 {
	switch dim {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	return 0
}

// MaxDim returns the axis (0=X, 1=Y, 2=Z) along which v is largest.
func (v Vector3) MaxDim() int {
	d := 0
	m := v.X
	if v.Y > m {
		d, m = 1, v.Y
	}
	if v.Z > m {
		d = 2
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Abs returns the absolute value of a.
func Abs(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}
