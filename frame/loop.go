// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"fmt"

	"zetacore.dev/engine/accel"
	"zetacore.dev/engine/base/logx"
	"zetacore.dev/engine/device"
	"zetacore.dev/engine/math32"
	"zetacore.dev/engine/workerpool"
	"zetacore.dev/engine/worldbvh"
)

// SceneUpdate is the caller-supplied delta for one frame: everything step
// (1) "update scene transforms" and step (2) "cull against the WorldBVH"
// need, gathered up front so RunFrame can stay a pure sequencer.
type SceneUpdate struct {
	// BVHUpdates widens/relocates instances already in the BVH.
	BVHUpdates []worldbvh.UpdateInput
	// RebuildBVH, when non-nil, replaces the BVH wholesale with these
	// instances. worldbvh has no incremental-insert operation — only a
	// top-down Build and an AABB-widening Update (§4.6 "updates only widen
	// parent AABBs") — so adding or removing instances requires a fresh
	// Build over the complete current instance set, not just the deltas.
	RebuildBVH []worldbvh.Instance

	// Frustum is the current camera frustum, in world space, used for
	// step (2)'s cull.
	Frustum math32.Frustum

	// StaticMeshes, when non-nil, triggers a fresh static-BLAS compaction
	// pipeline this frame (§4.5 "When the set of static instances
	// changes").
	StaticMeshes []accel.MeshGeometry

	// DynamicInstances is this frame's complete live dynamic-instance set.
	// RunFrame builds a fresh DynamicBLAS for any InstanceID not already
	// known to Accel, and issues an in-place Update for every instance
	// already known (§4.5 "on first appearance ... a fresh build ...
	// thereafter ... PERFORM_UPDATE").
	DynamicInstances []accel.DynamicInput

	// TLASInstances is this frame's TLAS instance list; each entry's BLAS
	// field is filled in by RunFrame from Accel.Dynamic after processing
	// DynamicInstances, so callers only need to set the non-BLAS fields,
	// keyed by InstanceID.
	TLASInstances []TLASInstanceInput
}

// TLASInstanceInput is one dynamic instance's TLAS-entry data, keyed by
// the same InstanceID used in DynamicInstances.
type TLASInstanceInput struct {
	InstanceID    uint64
	Emissive      bool
	Opaque        bool
	Position      math32.Vector3
	Rotation      math32.Quat
	Scale         math32.Vector3
	MatID         uint16
	BaseVtxOffset uint32
	BaseIdxOffset uint32
}

// CullResult is RunFrame's output from step (2).
type CullResult struct {
	VisibleInstanceIDs []uint64
}

// RunFrame advances one full frame: it performs §2's per-frame control
// flow in order — reset arenas, update transforms, cull, register passes,
// build the graph, submit to the pool, flush, then recycle fenced
// resources. passes are registered in the order given; their relative
// order does not affect correctness (RenderGraph.Build sorts by computed
// batch index), only determinism of tie-broken ordering within a batch.
func (a *App) RunFrame(su SceneUpdate, passes []Pass) (CullResult, error) {
	a.Frame++

	a.Graph.BeginFrame()

	if err := a.updateScene(su); err != nil {
		return CullResult{}, fmt.Errorf("frame %d: update scene: %w", a.Frame, err)
	}

	cull := CullResult{VisibleInstanceIDs: a.BVH.FrustumCull(su.Frustum)}

	for _, p := range passes {
		if err := p.register(a.Graph); err != nil {
			return cull, fmt.Errorf("frame %d: register pass %q: %w", a.Frame, p.Name, err)
		}
	}
	a.Graph.MoveToPostRegister()

	ts := workerpool.NewTaskSet()
	if err := a.Graph.Build(ts); err != nil {
		return cull, fmt.Errorf("frame %d: build graph: %w", a.Frame, err)
	}
	ts.Finalize()
	a.Pool.SubmitSet(ts)

	for !a.Pool.TryFlush() {
		// TryFlush helps drain the queue from this goroutine when it can;
		// a false return with nothing left to drain means every remaining
		// task is in flight on another worker, so just retry (§4.1 "the app
		// loop calls this between phases").
	}

	a.endFrame()
	return cull, nil
}

// updateScene performs step (1): BVH rebuild and/or refit, dynamic BLAS build or
// update, static BLAS rebuild (if requested) plus its per-frame Tick, and
// the TLAS rebuild that stitches everything for this frame's passes to
// consume as an acceleration-structure input.
func (a *App) updateScene(su SceneUpdate) error {
	if su.RebuildBVH != nil {
		a.BVH.Build(su.RebuildBVH)
	}
	if len(su.BVHUpdates) > 0 {
		a.BVH.Update(su.BVHUpdates)
	}

	cl, err := a.uploadPool.Acquire()
	if err != nil {
		return fmt.Errorf("acquire upload command list: %w", err)
	}

	if len(su.StaticMeshes) > 0 {
		if err := a.Accel.Static.Rebuild(cl, a.Mem.Ring(a.mainRingIdx), su.StaticMeshes, a.Frame); err != nil {
			return fmt.Errorf("static BLAS rebuild: %w", err)
		}
	}
	if err := a.Accel.Tick(cl, a.Frame); err != nil {
		return fmt.Errorf("static BLAS tick: %w", err)
	}

	for _, in := range su.DynamicInstances {
		if _, err := a.Accel.UpdateDynamic(cl, in, a.Frame); err != nil {
			return fmt.Errorf("dynamic BLAS %d: %w", in.InstanceID, err)
		}
	}

	instances := make([]accel.Instance, 0, len(su.TLASInstances))
	for _, ti := range su.TLASInstances {
		d, ok := a.Accel.Dynamic[ti.InstanceID]
		if !ok {
			logx.PrintWarn("frame: TLAS instance ", ti.InstanceID, " has no dynamic BLAS this frame; skipping")
			continue
		}
		instances = append(instances, accel.Instance{
			BLAS: d, Emissive: ti.Emissive, Opaque: ti.Opaque,
			Position: ti.Position, Rotation: ti.Rotation, Scale: ti.Scale,
			MatID: ti.MatID, BaseVtxOffset: ti.BaseVtxOffset, BaseIdxOffset: ti.BaseIdxOffset,
		})
	}
	descRing := a.Mem.Ring(a.mainRingIdx)
	if err := a.Accel.TLAS.Rebuild(cl, descRing, descRing, instances); err != nil {
		return fmt.Errorf("TLAS rebuild: %w", err)
	}

	fenceValue := a.directFence.Next()
	if err := a.Device.Submit(cl, a.directFence, fenceValue, nil, nil); err != nil {
		return fmt.Errorf("submit upload command list: %w", err)
	}
	// Passes recorded later in this frame read the TLAS/instance tables
	// through the render graph's own barrier/fence machinery; waiting here
	// keeps the accel-structure build ordering simple (one synchronous
	// upload submission per frame) at the cost of not overlapping it with
	// pass recording. A future revision could instead feed GpuDepSourceIdx
	// from this submission into the graph's first consuming node.
	if err := a.directFence.Wait(fenceValue, ^uint64(0)); err != nil {
		return fmt.Errorf("wait for upload submission: %w", err)
	}
	return nil
}

// endFrame implements steps (6)-(7): advances the retirement watermark for
// this frame's allocations and recycles everything whose fence has passed.
func (a *App) endFrame() {
	fenceValue := a.directFence.NextValue
	a.Mem.RetireRings(fenceValue)
	a.Mem.Recycle()
	if err := a.Heap.Recycle(); err != nil {
		logx.PrintWarn("frame: descriptor heap recycle: ", err)
	}
}
