// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package math32

// Box3 represents an axis-aligned bounding box (AABB) defined by
// its minimum and maximum corners. The zero value is a degenerate box at
// the origin; [EmptyBox3] returns an empty (inverted) box, with Min at
// 1e30 and Max at -1e30 on every axis, that is not valid until grown to
// contain at least one point.
type Box3 struct {
	Min Vector3
	Max Vector3
}

// EmptyBox3 returns a Box3 initialized to an empty (inverted) extent,
// ready to be grown by repeated calls to ExpandByPoint / Union.
func EmptyBox3() Box3 {
	const inf = float32(1e30)
	return Box3{Min: Vec3(inf, inf, inf), Max: Vec3(-inf, -inf, -inf)}
}

// Set sets the box from given min and max points.
func (b *Box3) Set(min, max *Vector3) {
	b.Min = *min
	b.Max = *max
}

// IsEmpty returns true if the box has not been grown to contain any point.
func (b Box3) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the center point of the box.
func (b Box3) Center() Vector3 {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Size returns the (non-negative) extent of the box along each axis.
func (b Box3) Size() Vector3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the surface area of the box, used by the SAH cost model.
// An empty box has zero surface area.
func (b Box3) SurfaceArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	sz := b.Size()
	return 2 * (sz.X*sz.Y + sz.Y*sz.Z + sz.Z*sz.X)
}

// ExpandByPoint grows the box, if necessary, to contain p.
func (b *Box3) ExpandByPoint(p Vector3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Union returns the smallest box containing both b and other.
func (b Box3) Union(other Box3) Box3 {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return Box3{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Contains returns true if other is fully contained within b.
func (b Box3) Contains(other Box3) bool {
	return other.Min.X >= b.Min.X && other.Min.Y >= b.Min.Y && other.Min.Z >= b.Min.Z &&
		other.Max.X <= b.Max.X && other.Max.Y <= b.Max.Y && other.Max.Z <= b.Max.Z
}

// ContainsPoint returns true if p lies within b (inclusive of the boundary).
func (b Box3) ContainsPoint(p Vector3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectsBox returns true if b and other overlap (touching counts as overlap).
func (b Box3) IntersectsBox(other Box3) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}
