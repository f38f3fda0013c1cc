// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package math32

import cmath32 "github.com/chewxy/math32"

// Plane is a half-space boundary: a point p is on or inside the plane when
// Normal.Dot(p)+D >= 0. Used as one face of a Frustum.
type Plane struct {
	Normal Vector3
	D      float32
}

// SignedDistance returns the signed distance from p to the plane; negative
// means p is outside the half-space the plane bounds.
func (p Plane) SignedDistance(pt Vector3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frame is an orthonormal view-to-world transform: a camera position plus
// a right/up/forward basis. It is the Go stand-in for the original's
// float4x4a view-to-world matrix (math32 has no general 4x4 matrix type;
// a camera's view-to-world transform is always rigid, so an orthonormal
// frame carries exactly the information a view-space Frustum needs to be
// moved into world space without needing full matrix machinery).
type Frame struct {
	Position Vector3
	Right    Vector3
	Up       Vector3
	Forward  Vector3
}

// Frustum is a 6-plane convex view volume (§4.6 "SIMD 6-plane formulation").
// Plane order is left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// NewFrustum builds a Frustum in view space (camera at the origin looking
// down +Z, Y up) from a vertical field of view (radians), aspect ratio
// (width/height), and near/far depths.
func NewFrustum(vFov, aspect, near, far float32) Frustum {
	halfV := vFov / 2
	halfH := cmath32.Atan(cmath32.Tan(halfV) * aspect)

	sv, cv := sincos(halfV)
	sh, ch := sincos(halfH)

	return Frustum{Planes: [6]Plane{
		{Normal: Vec3(ch, 0, sh), D: 0},  // left
		{Normal: Vec3(-ch, 0, sh), D: 0}, // right
		{Normal: Vec3(0, cv, sv), D: 0},  // bottom
		{Normal: Vec3(0, -cv, sv), D: 0}, // top
		{Normal: Vec3(0, 0, 1), D: -near},
		{Normal: Vec3(0, 0, -1), D: far},
	}}
}

func sincos(a float32) (float32, float32) {
	return cmath32.Sincos(a)
}

// Transform maps f (view-space) into world space via the rigid transform
// vToW, per-plane: n' = vToW.Right*n.x + vToW.Up*n.y + vToW.Forward*n.z,
// d' = d - n'.Dot(vToW.Position).
func (f Frustum) Transform(vToW Frame) Frustum {
	var out Frustum
	for i, p := range f.Planes {
		n := vToW.Right.MulScalar(p.Normal.X).
			Add(vToW.Up.MulScalar(p.Normal.Y)).
			Add(vToW.Forward.MulScalar(p.Normal.Z))
		out.Planes[i] = Plane{Normal: n, D: p.D - n.Dot(vToW.Position)}
	}
	return out
}

// IntersectsAABB reports whether box is at least partially inside f, using
// the standard positive-vertex (p-vertex) conservative SAT test: box is
// rejected only if some plane's positive vertex lies entirely outside it.
func (f Frustum) IntersectsAABB(box Box3) bool {
	for _, p := range f.Planes {
		pv := Vec3(
			pvComponent(p.Normal.X, box.Min.X, box.Max.X),
			pvComponent(p.Normal.Y, box.Min.Y, box.Max.Y),
			pvComponent(p.Normal.Z, box.Min.Z, box.Max.Z),
		)
		if p.SignedDistance(pv) < 0 {
			return false
		}
	}
	return true
}

func pvComponent(n, lo, hi float32) float32 {
	if n >= 0 {
		return hi
	}
	return lo
}

// Ray is a world-space ray used for picking (§4.6 "Query — ray pick").
type Ray struct {
	Origin Vector3
	Dir    Vector3
}

// RcpDir and DirIsNeg are precomputed once per ray and reused across every
// slab test in a traversal (§4.6 "reciprocal-direction and sign precomputation").
func (r Ray) RcpDir() Vector3 {
	return Vec3(1/r.Dir.X, 1/r.Dir.Y, 1/r.Dir.Z)
}

func (r Ray) DirIsNeg() [3]bool {
	return [3]bool{r.Dir.X < 0, r.Dir.Y < 0, r.Dir.Z < 0}
}

// IntersectAABB performs the slab-method ray/AABB test, returning the
// near intersection distance and whether the ray hits box at all within
// [0, tMax].
func (r Ray) IntersectAABB(box Box3, rcpDir Vector3, dirIsNeg [3]bool, tMax float32) (float32, bool) {
	bounds := [2]Vector3{box.Min, box.Max}

	tMin := (bounds[boolToInt(dirIsNeg[0])].X - r.Origin.X) * rcpDir.X
	tmax := (bounds[1-boolToInt(dirIsNeg[0])].X - r.Origin.X) * rcpDir.X

	tyMin := (bounds[boolToInt(dirIsNeg[1])].Y - r.Origin.Y) * rcpDir.Y
	tyMax := (bounds[1-boolToInt(dirIsNeg[1])].Y - r.Origin.Y) * rcpDir.Y
	if tMin > tyMax || tyMin > tmax {
		return 0, false
	}
	if tyMin > tMin {
		tMin = tyMin
	}
	if tyMax < tmax {
		tmax = tyMax
	}

	tzMin := (bounds[boolToInt(dirIsNeg[2])].Z - r.Origin.Z) * rcpDir.Z
	tzMax := (bounds[1-boolToInt(dirIsNeg[2])].Z - r.Origin.Z) * rcpDir.Z
	if tMin > tzMax || tzMin > tmax {
		return 0, false
	}
	if tzMin > tMin {
		tMin = tzMin
	}
	if tzMax < tmax {
		tmax = tzMax
	}

	if tmax < 0 || tMin > tMax {
		return 0, false
	}
	if tMin < 0 {
		return tmax, true
	}
	return tMin, true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
