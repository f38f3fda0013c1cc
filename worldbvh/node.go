// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package worldbvh maintains a top-down SAH bounding volume hierarchy over
// every instance in the world, rebuilt on demand and refit in place
// between rebuilds (§4.6). It is a Go port of
// original_source/ZetaRay/Math/BVH and ZetaCore/Math/BVH.cpp, generalized
// to take arbitrary caller-supplied instance IDs instead of model-pool
// indices.
package worldbvh

import "zetacore.dev/engine/math32"

// Construction tunables (§4.6 "Build").
const (
	maxInstancesPerLeaf = 8
	minInstancesForSAH  = 10
	numSAHBins          = 6
)

// Instance is one leaf's worth of input: a stable ID plus its world AABB.
type Instance struct {
	ID  uint64
	Box math32.Box3
}

// UpdateInput describes one instance moving from Old to New since the last
// Build/Update (§4.6 "Update").
type UpdateInput struct {
	ID  uint64
	Old math32.Box3
	New math32.Box3
}

// node is one BVH node. Leaves reference a contiguous run of the instance
// array [Base, Base+Count); internal nodes reference their right child by
// index (the left child is always node index+1, the classic implicit
// layout) and have Count == 0.
type node struct {
	Box        math32.Box3
	Base       int32
	Count      int32
	RightChild int32
	Parent     int32
}

func (n *node) isLeaf() bool { return n.Count > 0 }

const invalidIdx int32 = -1
