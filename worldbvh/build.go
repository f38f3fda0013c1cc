// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worldbvh

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"zetacore.dev/engine/math32"
)

// BVH is a world-space instance hierarchy, rebuilt from scratch on demand
// via Build and refit between rebuilds via Update (§4.6).
type BVH struct {
	nodes     []node
	instances []Instance
}

// New returns an empty BVH.
func New() *BVH {
	return &BVH{}
}

// Len returns the number of instances currently held.
func (b *BVH) Len() int { return len(b.instances) }

// Clear drops every node and instance.
func (b *BVH) Clear() {
	b.nodes = b.nodes[:0]
	b.instances = b.instances[:0]
}

// Build discards the current hierarchy and constructs a fresh one over
// instances top-down (§4.6 "Build"). Instances are copied and reordered
// internally; the caller's slice is left untouched.
func (b *BVH) Build(instances []Instance) {
	b.instances = append(b.instances[:0], instances...)
	n := len(b.instances)
	if n == 0 {
		b.nodes = b.nodes[:0]
		return
	}

	// Matches BVH::Build's single-leaf special case and its worst-case
	// node-count bound (4*(n/maxPerLeaf+1) + 1) used to preallocate.
	maxNodes := 4*(n/maxInstancesPerLeaf+1) + 1
	b.nodes = make([]node, 0, maxNodes)

	if n <= maxInstancesPerLeaf {
		b.nodes = append(b.nodes, node{
			Box:        unionRange(b.instances, 0, n),
			Base:       0,
			Count:      int32(n),
			RightChild: invalidIdx,
			Parent:     invalidIdx,
		})
		return
	}

	b.buildSubtree(0, n, invalidIdx)
}

// buildSubtree builds the node covering instances[base:base+count] with
// the given parent index, appends it (and its children, recursively) to
// b.nodes, and returns its index.
func (b *BVH) buildSubtree(base, count int, parent int32) int32 {
	box := unionRange(b.instances, base, base+count)

	if count <= maxInstancesPerLeaf {
		idx := int32(len(b.nodes))
		b.nodes = append(b.nodes, node{
			Box: box, Base: int32(base), Count: int32(count),
			RightChild: invalidIdx, Parent: parent,
		})
		return idx
	}

	centroidBox := math32.EmptyBox3()
	for i := base; i < base+count; i++ {
		centroidBox.ExpandByPoint(b.instances[i].Box.Center())
	}
	ext := centroidBox.Size()
	axis := ext.MaxDim()

	// Degenerate extent on the chosen axis: every centroid coincides, so
	// no split can separate them. Fall back to a leaf (BVH.cpp's epsilon
	// check before SAH binning).
	const epsilon = 1e-6
	if ext.Dim(axis) < epsilon {
		idx := int32(len(b.nodes))
		b.nodes = append(b.nodes, node{
			Box: box, Base: int32(base), Count: int32(count),
			RightChild: invalidIdx, Parent: parent,
		})
		return idx
	}

	var splitAt int
	ok := false
	if count >= minInstancesForSAH {
		splitAt, ok = b.sahSplit(base, count, axis, centroidBox)
	}
	if !ok {
		splitAt = medianSplit(b.instances[base:base+count], axis, centroidBox)
	}
	if splitAt <= 0 || splitAt >= count {
		splitAt = count / 2
	}

	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{Box: box, RightChild: invalidIdx, Parent: parent, Count: 0})

	b.buildSubtree(base, splitAt, idx) // left child always idx+1
	right := b.buildSubtree(base+splitAt, count-splitAt, idx)
	b.nodes[idx].RightChild = right
	return idx
}

// sahSplit bins instances[base:base+count] into numSAHBins buckets along
// axis by centroid position, evaluates the surface-area-heuristic cost of
// every one of the numSAHBins-1 internal split planes via prefix/suffix
// bin-box reductions, and partitions in place on the cheapest plane that
// beats the no-split cost (§4.6 "6 bins").
func (b *BVH) sahSplit(base, count, axis int, centroidBox math32.Box3) (int, bool) {
	lo := centroidBox.Min.Dim(axis)
	extent := centroidBox.Max.Dim(axis) - lo
	if extent <= 0 {
		return 0, false
	}
	scale := float32(numSAHBins) / extent

	binBox := make([]math32.Box3, numSAHBins)
	binCount := make([]int, numSAHBins)
	for i := range binBox {
		binBox[i] = math32.EmptyBox3()
	}
	binOf := make([]int, count)
	for i := 0; i < count; i++ {
		inst := b.instances[base+i]
		bi := int((inst.Box.Center().Dim(axis) - lo) * scale)
		if bi < 0 {
			bi = 0
		}
		if bi >= numSAHBins {
			bi = numSAHBins - 1
		}
		binOf[i] = bi
		binBox[bi] = binBox[bi].Union(inst.Box)
		binCount[bi]++
	}

	leftBox := make([]math32.Box3, numSAHBins)
	leftCount := make([]int, numSAHBins)
	acc := math32.EmptyBox3()
	accN := 0
	for i := 0; i < numSAHBins; i++ {
		acc = acc.Union(binBox[i])
		accN += binCount[i]
		leftBox[i] = acc
		leftCount[i] = accN
	}

	rightBox := make([]math32.Box3, numSAHBins)
	rightCount := make([]int, numSAHBins)
	acc = math32.EmptyBox3()
	accN = 0
	for i := numSAHBins - 1; i >= 0; i-- {
		acc = acc.Union(binBox[i])
		accN += binCount[i]
		rightBox[i] = acc
		rightCount[i] = accN
	}

	parentSA := centroidBoxSA(b.instances, base, count)
	if parentSA == 0 {
		return 0, false
	}

	costs := make([]float64, numSAHBins-1)
	for plane := 0; plane < numSAHBins-1; plane++ {
		lc, rc := leftCount[plane], rightCount[plane+1]
		if lc == 0 || rc == 0 {
			costs[plane] = float64(count) // never chosen: matches no-split cost
			continue
		}
		cost := float32(lc)*leftBox[plane].SurfaceArea() + float32(rc)*rightBox[plane+1].SurfaceArea()
		costs[plane] = float64(cost / parentSA)
	}

	bestPlane := floats.MinIdx(costs)
	noSplitCost := float64(count)
	if costs[bestPlane] >= noSplitCost {
		return 0, false
	}

	// Partition instances[base:base+count] by bin membership relative to
	// bestPlane (bin <= bestPlane goes left).
	left := 0
	items := b.instances[base : base+count]
	binOfItem := binOf
	for i := 0; i < len(items); i++ {
		if binOfItem[i] <= bestPlane {
			items[i], items[left] = items[left], items[i]
			binOfItem[i], binOfItem[left] = binOfItem[left], binOfItem[i]
			left++
		}
	}
	if left == 0 || left == count {
		return 0, false
	}
	return left, true
}

// medianSplit partitions instances (in place) on the median centroid along
// axis, used for ranges too small for SAH binning to pay off (§4.6
// "median fallback for ranges below the SAH threshold") and for larger
// ranges where no SAH plane beats the no-split cost.
func medianSplit(items []Instance, axis int, centroidBox math32.Box3) int {
	_ = centroidBox
	sort.Slice(items, func(i, j int) bool {
		return items[i].Box.Center().Dim(axis) < items[j].Box.Center().Dim(axis)
	})
	return len(items) / 2
}

func unionRange(items []Instance, lo, hi int) math32.Box3 {
	box := math32.EmptyBox3()
	for i := lo; i < hi; i++ {
		box = box.Union(items[i].Box)
	}
	return box
}

func centroidBoxSA(items []Instance, base, count int) float32 {
	box := unionRange(items, base, base+count)
	return box.SurfaceArea()
}
