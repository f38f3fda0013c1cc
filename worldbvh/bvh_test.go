// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worldbvh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetacore.dev/engine/math32"
)

func box(cx, cy, cz, half float32) math32.Box3 {
	c := math32.Vec3(cx, cy, cz)
	h := math32.Vec3(half, half, half)
	return math32.Box3{Min: c.Sub(h), Max: c.Add(h)}
}

func gridInstances(n int) []Instance {
	insts := make([]Instance, n)
	for i := 0; i < n; i++ {
		insts[i] = Instance{ID: uint64(i + 1), Box: box(float32(i)*10, 0, 0, 1)}
	}
	return insts
}

func bruteFrustumCull(insts []Instance, f math32.Frustum) map[uint64]bool {
	out := map[uint64]bool{}
	for _, in := range insts {
		if f.IntersectsAABB(in.Box) {
			out[in.ID] = true
		}
	}
	return out
}

func TestBuildSingleLeafForSmallInput(t *testing.T) {
	b := New()
	insts := gridInstances(maxInstancesPerLeaf)
	b.Build(insts)
	require.Len(t, b.nodes, 1)
	assert.True(t, b.nodes[0].isLeaf())
	assert.Equal(t, int32(len(insts)), b.nodes[0].Count)
}

func TestBuildEveryInstanceReachableFromLeaves(t *testing.T) {
	b := New()
	insts := gridInstances(200)
	b.Build(insts)

	seen := map[uint64]bool{}
	for _, n := range b.nodes {
		if n.isLeaf() {
			for i := n.Base; i < n.Base+n.Count; i++ {
				seen[b.instances[i].ID] = true
			}
		}
	}
	assert.Len(t, seen, len(insts))
	for _, in := range insts {
		assert.True(t, seen[in.ID], "instance %d missing from any leaf", in.ID)
	}
}

func TestBuildOrderInvariantToInputShuffle(t *testing.T) {
	insts := gridInstances(120)
	shuffled := make([]Instance, len(insts))
	copy(shuffled, insts)
	for i, j := 0, len(shuffled)-1; i < j; i, j = i+1, j-1 {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	a, c := New(), New()
	a.Build(insts)
	c.Build(shuffled)

	assert.Equal(t, len(a.instances), len(c.instances))
	// Root box must be identical regardless of input order.
	assert.Equal(t, a.nodes[0].Box, c.nodes[0].Box)
}

func TestNodeBoxesContainTheirSubtreeInstances(t *testing.T) {
	b := New()
	b.Build(gridInstances(300))

	var check func(idx int32)
	check = func(idx int32) {
		n := b.nodes[idx]
		if n.isLeaf() {
			for i := n.Base; i < n.Base+n.Count; i++ {
				assert.True(t, n.Box.Contains(b.instances[i].Box))
			}
			return
		}
		assert.True(t, n.Box.Contains(b.nodes[idx+1].Box))
		assert.True(t, n.Box.Contains(b.nodes[n.RightChild].Box))
		check(idx + 1)
		check(n.RightChild)
	}
	check(0)
}

func TestFrustumCullMatchesBruteForce(t *testing.T) {
	b := New()
	insts := gridInstances(500)
	b.Build(insts)

	f := math32.NewFrustum(1.0, 16.0/9.0, 0.1, 200).Transform(math32.Frame{
		Position: math32.Vec3(0, 0, 0),
		Right:    math32.Vec3(1, 0, 0),
		Up:       math32.Vec3(0, 1, 0),
		Forward:  math32.Vec3(0, 0, 1),
	})

	got := map[uint64]bool{}
	for _, id := range b.FrustumCull(f) {
		got[id] = true
	}
	want := bruteFrustumCull(insts, f)
	assert.Equal(t, want, got)
}

func TestCastRayFindsNearestInstance(t *testing.T) {
	b := New()
	insts := []Instance{
		{ID: 1, Box: box(10, 0, 0, 1)},
		{ID: 2, Box: box(20, 0, 0, 1)},
		{ID: 3, Box: box(30, 0, 0, 1)},
	}
	b.Build(insts)

	ray := math32.Ray{Origin: math32.Vec3(0, 0, 0), Dir: math32.Vec3(1, 0, 0)}
	id, dist, hit := b.CastRay(ray)
	require.True(t, hit)
	assert.Equal(t, uint64(1), id)
	assert.InDelta(t, 9, dist, 1e-3)
}

func TestCastRayMissesWhenNothingAhead(t *testing.T) {
	b := New()
	b.Build([]Instance{{ID: 1, Box: box(10, 0, 0, 1)}})
	ray := math32.Ray{Origin: math32.Vec3(0, 0, 0), Dir: math32.Vec3(-1, 0, 0)}
	_, _, hit := b.CastRay(ray)
	assert.False(t, hit)
}

func TestUpdateWidensAncestorsUntilContained(t *testing.T) {
	b := New()
	insts := gridInstances(300)
	b.Build(insts)

	old := insts[0].Box
	newBox := box(0, 500, 0, 1)
	b.Update([]UpdateInput{{ID: insts[0].ID, Old: old, New: newBox}})

	assert.True(t, b.nodes[0].Box.Contains(newBox))

	var found bool
	for _, n := range b.nodes {
		if n.isLeaf() {
			for i := n.Base; i < n.Base+n.Count; i++ {
				if b.instances[i].ID == insts[0].ID {
					found = true
					assert.Equal(t, newBox, b.instances[i].Box)
				}
			}
		}
	}
	assert.True(t, found)
}

func TestRemoveDropsInstanceAndShrinksLeaf(t *testing.T) {
	b := New()
	insts := gridInstances(5)
	b.Build(insts)

	ok := b.Remove(insts[2].ID, insts[2].Box)
	require.True(t, ok)
	assert.Equal(t, 4, int(b.nodes[0].Count))

	for i := b.nodes[0].Base; i < b.nodes[0].Base+b.nodes[0].Count; i++ {
		assert.NotEqual(t, insts[2].ID, b.instances[i].ID)
	}
}

func TestRemoveUnknownIDReturnsFalse(t *testing.T) {
	b := New()
	b.Build(gridInstances(5))
	assert.False(t, b.Remove(9999, box(0, 0, 0, 1)))
}
