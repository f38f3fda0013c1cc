// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worldbvh

import "zetacore.dev/engine/math32"

// findLeaf descends from the root by centroid containment, the "narrow
// stack descent" §4.6 describes for Update: at each internal node, follow
// whichever child's box contains point; if that's ambiguous at a shared
// boundary, explore both. Returns invalidIdx if id isn't present.
func (b *BVH) findLeaf(id uint64, point math32.Vector3) int32 {
	if len(b.nodes) == 0 {
		return invalidIdx
	}
	stack := []int32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &b.nodes[idx]
		if n.isLeaf() {
			for i := n.Base; i < n.Base+n.Count; i++ {
				if b.instances[i].ID == id {
					return idx
				}
			}
			continue
		}
		left, right := idx+1, n.RightChild
		leftHas := b.nodes[left].Box.ContainsPoint(point)
		rightHas := b.nodes[right].Box.ContainsPoint(point)
		switch {
		case leftHas && !rightHas:
			stack = append(stack, left)
		case rightHas && !leftHas:
			stack = append(stack, right)
		default:
			stack = append(stack, left, right)
		}
	}
	return invalidIdx
}

// Update refits every instance named in updates in place: it relocates the
// instance within its leaf and then widens ancestor boxes up the parent
// chain, stopping at the first ancestor whose box already contains the new
// extent (§4.6 "Update"). Instances not found are ignored.
func (b *BVH) Update(updates []UpdateInput) {
	for _, u := range updates {
		leaf := b.findLeaf(u.ID, u.Old.Center())
		if leaf == invalidIdx {
			continue
		}
		n := &b.nodes[leaf]
		for i := n.Base; i < n.Base+n.Count; i++ {
			if b.instances[i].ID == u.ID {
				b.instances[i].Box = u.New
				break
			}
		}
		b.widenUpward(leaf, u.New)
	}
}

func (b *BVH) widenUpward(idx int32, box math32.Box3) {
	for idx != invalidIdx {
		n := &b.nodes[idx]
		if n.Box.Contains(box) {
			return
		}
		n.Box = n.Box.Union(box)
		idx = n.Parent
	}
}

// Remove deletes the instance id (whose current box is box, used to find
// its leaf) by swapping it with the last instance in its leaf's range
// (§4.6 "Remove"). Reports whether id was found.
func (b *BVH) Remove(id uint64, box math32.Box3) bool {
	leaf := b.findLeaf(id, box.Center())
	if leaf == invalidIdx {
		return false
	}
	n := &b.nodes[leaf]
	for i := n.Base; i < n.Base+n.Count; i++ {
		if b.instances[i].ID == id {
			last := n.Base + n.Count - 1
			b.instances[i] = b.instances[last]
			n.Count--
			return true
		}
	}
	return false
}

// FrustumCull returns the IDs of every instance whose box at least
// partially intersects f, via manual-stack traversal pruning whole
// subtrees whose box lies fully outside (§4.6 "Query — frustum cull").
func (b *BVH) FrustumCull(f math32.Frustum) []uint64 {
	if len(b.nodes) == 0 {
		return nil
	}
	var out []uint64
	stack := []int32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &b.nodes[idx]
		if !f.IntersectsAABB(n.Box) {
			continue
		}
		if n.isLeaf() {
			for i := n.Base; i < n.Base+n.Count; i++ {
				out = append(out, b.instances[i].ID)
			}
			continue
		}
		stack = append(stack, idx+1, n.RightChild)
	}
	return out
}

type rayStackItem struct {
	idx int32
	t   float32
}

// CastRay returns the nearest instance ray intersects (if any), traversing
// near-child-first and pruning subtrees whose entry distance already
// exceeds the closest hit found so far (§4.6 "Query — ray pick").
func (b *BVH) CastRay(ray math32.Ray) (id uint64, dist float32, hit bool) {
	if len(b.nodes) == 0 {
		return 0, 0, false
	}
	rcp := ray.RcpDir()
	neg := ray.DirIsNeg()
	minT := float32(1e30)

	stack := []rayStackItem{{0, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.t >= minT {
			continue
		}
		n := &b.nodes[top.idx]
		if n.isLeaf() {
			for i := n.Base; i < n.Base+n.Count; i++ {
				if t, ok := ray.IntersectAABB(b.instances[i].Box, rcp, neg, minT); ok && t < minT {
					minT = t
					id = b.instances[i].ID
					hit = true
				}
			}
			continue
		}
		left, right := top.idx+1, n.RightChild
		lt, lok := ray.IntersectAABB(b.nodes[left].Box, rcp, neg, minT)
		rt, rok := ray.IntersectAABB(b.nodes[right].Box, rcp, neg, minT)
		switch {
		case lok && rok:
			if lt < rt {
				stack = append(stack, rayStackItem{right, rt}, rayStackItem{left, lt})
			} else {
				stack = append(stack, rayStackItem{left, lt}, rayStackItem{right, rt})
			}
		case lok:
			stack = append(stack, rayStackItem{left, lt})
		case rok:
			stack = append(stack, rayStackItem{right, rt})
		}
	}
	return id, minT, hit
}
