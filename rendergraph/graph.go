// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rendergraph

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"

	"zetacore.dev/engine/base/logx"
	"zetacore.dev/engine/base/rgassert"
	"zetacore.dev/engine/device"
	"zetacore.dev/engine/workerpool"
)

// RenderNodeHandle identifies a pass registered for the current frame. It
// is the pass's index into Graph.nodes and is only valid between BeginFrame
// calls.
type RenderNodeHandle int

// GPUTimer is an optional hook for recording per-aggregate GPU timestamps.
// Supplements the original's frame-end-only GPU timing with one query pair
// per submitted aggregate, not just the last one.
type GPUTimer interface {
	BeginAggregate(name string, cl *device.CommandList)
	EndAggregate(name string, cl *device.CommandList)
}

// Graph builds one frame's render-pass DAG, derives the barriers and
// cross-queue fence waits it implies, and drives submission. Field and
// method names mirror ZetaCore/Core/RenderGraph.h's RenderGraph class.
type Graph struct {
	dev *device.Device

	directPool  *device.CommandPool
	computePool *device.CommandPool
	directFence *device.Fence
	computeFence *device.Fence

	resources *resourceTable
	nodes     []*RenderNode
	aggregates []*AggregateNode

	// sortedOrder is Build's batch-index-sorted node order (original
	// indices), kept so buildAggregate can translate a sorted position back
	// to the original node that occupies it.
	sortedOrder []int

	backBufferID    uint64
	hasBackBuffer   bool

	timer GPUTimer
}

// New creates a Graph that submits direct work on dev's direct queue and
// async-compute work on its compute queue.
func New(dev *device.Device) (*Graph, error) {
	directPool, err := device.NewCommandPool(dev, device.RoleDirect)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: %w", err)
	}
	computePool, err := device.NewCommandPool(dev, device.RoleCompute)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: %w", err)
	}
	directFence, err := device.NewFence(dev)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: %w", err)
	}
	computeFence, err := device.NewFence(dev)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: %w", err)
	}
	return &Graph{
		dev:          dev,
		directPool:   directPool,
		computePool:  computePool,
		directFence:  directFence,
		computeFence: computeFence,
		resources:    newResourceTable(),
	}, nil
}

// SetTimer installs an optional GPU timer hook.
func (g *Graph) SetTimer(t GPUTimer) { g.timer = t }

// SetBackBuffer designates the resource path ID to force into StatePresent
// at the end of Build, avoiding an explicit end-of-frame transition (§4.4.4
// "Back-buffer handling is special").
func (g *Graph) SetBackBuffer(id uint64) {
	g.backBufferID = id
	g.hasBackBuffer = true
}

// BeginFrame clears the per-frame node array and every resource's producer
// table; resource state is preserved (§4.4.1).
func (g *Graph) BeginFrame() {
	g.nodes = g.nodes[:0]
	g.aggregates = nil
	g.resources.beginFrame()
}

// RegisterRenderPass reserves a node for name, enforcing the per-frame pass
// capacity bound.
func (g *Graph) RegisterRenderPass(name string, t NodeType, dlg RecordFunc) (RenderNodeHandle, error) {
	if len(g.nodes) >= MaxRenderPasses {
		return invalidHandle, fmt.Errorf("rendergraph: RegisterRenderPass(%s): exceeded %d passes for this frame", name, MaxRenderPasses)
	}
	g.nodes = append(g.nodes, newRenderNode(name, t, dlg))
	return RenderNodeHandle(len(g.nodes) - 1), nil
}

// RegisterResource registers or updates a frame resource (§4.4.1).
// Duplicate registration under the same path ID with a different device
// handle is logged and replaced (§4.4.5).
func (g *Graph) RegisterResource(id, handle uint64, state State, windowSizeDependent bool) (*Resource, error) {
	if existing, ok := g.resources.byID.ValueByKeyTry(id); ok && existing.Handle != handle {
		logx.PrintInfo("rendergraph: resource ", id, " re-registered with a new device handle; replacing")
	} else if !ok && g.resources.byID.Len() >= MaxResources {
		return nil, fmt.Errorf("rendergraph: RegisterResource(%d): exceeded %d distinct resources for this frame", id, MaxResources)
	}
	return g.resources.register(id, handle, state, windowSizeDependent), nil
}

// RemoveResource drops a resource from the table entirely (e.g. on window
// resize, for window-size-dependent resources being recreated).
func (g *Graph) RemoveResource(id uint64) { g.resources.remove(id) }

// RemoveResources drops every resource in ids.
func (g *Graph) RemoveResources(ids ...uint64) {
	for _, id := range ids {
		g.resources.remove(id)
	}
}

// MoveToPostRegister sorts the frame-resource array by path ID for
// subsequent binary-search lookups (§4.4.1). Call once after every pass has
// finished registering resources and before Build; AddInput and AddOutput
// look resources up by path ID and work on either side of it.
func (g *Graph) MoveToPostRegister() { g.resources.moveToPostRegister() }

// AddInput records that h reads resID in expectedState (§4.4.2).
func (g *Graph) AddInput(h RenderNodeHandle, resID uint64, expectedState State) {
	rgassert.Assert(expectedState.IsValidRead(), "rendergraph: AddInput: state %v is not a valid read state", expectedState)
	n := g.node(h)
	n.Inputs = append(n.Inputs, Dependency{ResourceID: resID, ExpectedState: expectedState})
}

// AddOutput records that h writes resID in expectedState, and appends h to
// resID's producer list (§4.4.2).
func (g *Graph) AddOutput(h RenderNodeHandle, resID uint64, expectedState State) {
	rgassert.Assert(expectedState.IsValidWrite(), "rendergraph: AddOutput: state %v is not a valid write state", expectedState)
	n := g.node(h)
	rgassert.Assert(n.Type != NodeAsyncCompute || expectedState.LegalOnCompute(),
		"rendergraph: AddOutput: pass %q is async-compute but requested state %v", n.Name, expectedState)
	n.Outputs = append(n.Outputs, Dependency{ResourceID: resID, ExpectedState: expectedState})
	if res, ok := g.resources.byID.ValueByKeyTry(resID); ok {
		rgassert.Assert(res.numProducers < MaxProducers,
			"rendergraph: AddOutput: resource %d already has %d producers", resID, MaxProducers)
		res.addProducer(int(h))
	}
}

func (g *Graph) node(h RenderNodeHandle) *RenderNode {
	return g.nodes[h]
}

// Build runs §4.4.3's seven-step deterministic sequence and emits one
// workerpool task per AggregateNode into ts.
func (g *Graph) Build(ts *workerpool.TaskSet) error {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}

	// Step 1: indegree initialization + self-edge OutputMask.
	for i, node := range g.nodes {
		for outIdx, out := range node.Outputs {
			for _, in := range node.Inputs {
				if in.ResourceID == out.ResourceID {
					node.OutputMask |= 1 << uint(outIdx)
					break
				}
			}
		}
		node.Indegree = int32(len(node.Inputs))
		for _, in := range node.Inputs {
			others := g.otherProducers(in.ResourceID, i)
			if len(others) == 0 {
				node.Indegree--
			} else {
				node.Indegree += int32(len(others) - 1)
			}
		}
	}

	// Step 2: edge assembly.
	adjacency := make([][]int, n)
	for i, node := range g.nodes {
		for _, in := range node.Inputs {
			for _, p := range g.otherProducers(in.ResourceID, i) {
				adjacency[p] = append(adjacency[p], i)
			}
		}
	}

	// Step 3: Kahn topological sort with longest-path batch index.
	remaining := make([]int32, n)
	batchIdx := make([]int, n)
	queue := make([]int, 0, n)
	for i, node := range g.nodes {
		remaining[i] = node.Indegree
		if remaining[i] <= 0 {
			queue = append(queue, i)
		}
	}
	processed := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		processed++
		for _, v := range adjacency[u] {
			if batchIdx[v] < batchIdx[u]+1 {
				batchIdx[v] = batchIdx[u] + 1
			}
			remaining[v]--
			if remaining[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	if processed != n {
		return fmt.Errorf("rendergraph: Build: dependency cycle detected among %d unresolved nodes", n-processed)
	}
	for i, node := range g.nodes {
		node.NodeBatchIdx = batchIdx[i]
	}

	sortedOrder := make([]int, n)
	for i := range sortedOrder {
		sortedOrder[i] = i
	}
	sort.SliceStable(sortedOrder, func(a, b int) bool {
		return batchIdx[sortedOrder[a]] < batchIdx[sortedOrder[b]]
	})
	pos := make([]int, n) // original index -> sorted position
	for sortedIdx, orig := range sortedOrder {
		pos[orig] = sortedIdx
	}
	g.sortedOrder = sortedOrder

	// Step 4: barrier insertion, walked in execution (sorted) order.
	for _, orig := range sortedOrder {
		node := g.nodes[orig]
		for _, in := range node.Inputs {
			res, ok := g.resources.find(in.ResourceID)
			if !ok {
				continue
			}
			g.insertBarrier(node, res, in.ExpectedState)
		}
		for outIdx, out := range node.Outputs {
			if node.OutputMask&(1<<uint(outIdx)) != 0 {
				continue
			}
			res, ok := g.resources.find(out.ResourceID)
			if !ok {
				continue
			}
			g.insertBarrier(node, res, out.ExpectedState)
		}
	}
	if g.hasBackBuffer {
		if res, ok := g.resources.find(g.backBufferID); ok {
			res.State = StatePresent
		}
	}

	// Step 5: cross-queue dependency resolution with a per-queue watermark.
	lastSynced := map[device.Role]int{device.RoleDirect: invalidHandle, device.RoleCompute: invalidHandle}
	for _, orig := range sortedOrder {
		node := g.nodes[orig]
		role := node.Type.queueRole()
		otherRole := device.RoleCompute
		if role == device.RoleCompute {
			otherRole = device.RoleDirect
		}
		maxCross := invalidHandle
		for _, in := range node.Inputs {
			for _, p := range g.otherProducers(in.ResourceID, orig) {
				producer := g.nodes[p]
				if producer.Type.queueRole() != otherRole {
					continue
				}
				if idx := pos[p]; idx > maxCross {
					maxCross = idx
				}
			}
		}
		if maxCross != invalidHandle && maxCross > lastSynced[otherRole] {
			node.GpuDepSourceIdx = maxCross
			lastSynced[otherRole] = maxCross
		}
	}

	// Step 6: aggregation, walking batch-index order.
	g.aggregates = g.aggregates[:0]
	nodeToAgg := make([]int, n)
	for i := range nodeToAgg {
		nodeToAgg[i] = invalidHandle
	}

	i := 0
	for i < n {
		batch := batchIdx[sortedOrder[i]]
		j := i
		var directOrig, computeOrig []int
		for j < n && batchIdx[sortedOrder[j]] == batch {
			orig := sortedOrder[j]
			if g.nodes[orig].Type.queueRole() == device.RoleCompute {
				computeOrig = append(computeOrig, orig)
			} else {
				directOrig = append(directOrig, orig)
			}
			j++
		}

		directAgg := g.buildAggregate(directOrig, nodeToAgg)
		computeAgg := g.buildAggregate(computeOrig, nodeToAgg)

		if directAgg != nil && computeAgg != nil && computeAgg.HasUnsupportedBarrier {
			directAgg.GpuDepIdx = invalidHandle
		}

		i = j
	}
	if len(g.aggregates) > 0 {
		g.aggregates[len(g.aggregates)-1].IsLast = true
	}

	// Step 7: task-graph emission, chaining consecutive aggregates to
	// serialize CPU command-list recording (not GPU execution).
	tasks := make([]*workerpool.Task, len(g.aggregates))
	for idx, agg := range g.aggregates {
		agg := agg
		tasks[idx] = workerpool.NewTask(agg.Name, func(threadIdx workerpool.ThreadIndex) {
			if err := g.executeAggregate(agg); err != nil {
				logx.PrintError("rendergraph: aggregate ", agg.Name, " failed: ", err)
			}
		})
		ts.Add(tasks[idx])
	}
	for idx := 0; idx+1 < len(tasks); idx++ {
		workerpool.AddDependency(tasks[idx], tasks[idx+1])
	}

	return nil
}

// insertBarrier appends a transition barrier to node if res's tracked state
// does not already include expected, updating the tracked state and
// flagging unsupported async-compute barriers (§4.4.3 step 4).
func (g *Graph) insertBarrier(node *RenderNode, res *Resource, expected State) {
	if res.State&expected != 0 {
		return
	}
	before := res.State
	node.Barriers = append(node.Barriers, Barrier{ResourceID: res.ID, Before: before, After: expected})
	res.State = expected
	if node.Type == NodeAsyncCompute && !before.LegalOnCompute() {
		node.HasUnsupportedBarrier = true
	}
}

// buildAggregate merges origIndices (in sorted-order relative order) into
// one AggregateNode, records the node->aggregate mapping, and resolves the
// aggregate's own GPU-dependency index from its constituent nodes'
// node-level dependencies. Returns nil if origIndices is empty.
func (g *Graph) buildAggregate(origIndices []int, nodeToAgg []int) *AggregateNode {
	if len(origIndices) == 0 {
		return nil
	}
	agg := &AggregateNode{GpuDepIdx: invalidHandle, Role: g.nodes[origIndices[0]].Type}
	maxDep := invalidHandle
	for _, orig := range origIndices {
		node := g.nodes[orig]
		agg.append(node)
		if node.GpuDepSourceIdx != invalidHandle && node.GpuDepSourceIdx > maxDep {
			maxDep = node.GpuDepSourceIdx
		}
	}
	if maxDep != invalidHandle {
		producerOrig := g.sortedOrder[maxDep]
		agg.GpuDepIdx = nodeToAgg[producerOrig]
	}
	aggIdx := len(g.aggregates)
	g.aggregates = append(g.aggregates, agg)
	for _, orig := range origIndices {
		nodeToAgg[orig] = aggIdx
	}
	return agg
}

// otherProducers returns res's producers for the current frame, excluding
// self: self-edges are never created (§4.4.3 step 1), so every indegree
// and edge computation discounts the node's own output from its own input
// count.
func (g *Graph) otherProducers(resID uint64, self int) []int {
	res, ok := g.resources.byID.ValueByKeyTry(resID)
	if !ok {
		return nil
	}
	var out []int
	for _, p := range res.producers() {
		if p != self {
			out = append(out, p)
		}
	}
	return out
}

// recordBarriers issues a pipeline barrier covering every transition in
// barriers. Barrier encoding (access masks and stages per State) lives
// outside this package; here only the submission-order contract matters,
// so each barrier is translated through BarrierHook, which the frame
// package installs.
func recordBarriers(cl *device.CommandList, barriers []Barrier) {
	for _, b := range barriers {
		if BarrierHook != nil {
			BarrierHook(cl, b)
		}
	}
}

// BarrierHook translates a Barrier into a pipeline-barrier command. The
// frame package installs this once at startup; rendergraph itself stays
// agnostic of barrier encoding.
var BarrierHook func(cl *device.CommandList, b Barrier)

// executeAggregate implements §4.4.4's per-aggregate execution sequence.
func (g *Graph) executeAggregate(agg *AggregateNode) error {
	pool := g.directPool
	fence := g.directFence
	otherFence := g.computeFence
	if agg.Role == NodeAsyncCompute {
		pool = g.computePool
		fence = g.computeFence
		otherFence = g.directFence
	}

	cl, err := pool.Acquire()
	if err != nil {
		return fmt.Errorf("executeAggregate(%s): %w", agg.Name, err)
	}

	if agg.HasUnsupportedBarrier {
		graphicsCL, err := g.directPool.Acquire()
		if err != nil {
			return fmt.Errorf("executeAggregate(%s): barrier command list: %w", agg.Name, err)
		}
		recordBarriers(graphicsCL, agg.Barriers)
		barrierFenceValue := g.directFence.Next()
		if err := g.dev.Submit(graphicsCL, g.directFence, barrierFenceValue, nil, nil); err != nil {
			return fmt.Errorf("executeAggregate(%s): submit barrier batch: %w", agg.Name, err)
		}
		if err := g.dev.QueueWait(device.RoleCompute, g.directFence, barrierFenceValue); err != nil {
			return fmt.Errorf("executeAggregate(%s): queue wait: %w", agg.Name, err)
		}
	} else {
		recordBarriers(cl, agg.Barriers)
	}

	if g.timer != nil {
		g.timer.BeginAggregate(agg.Name, cl)
	}
	for _, dlg := range agg.Dlgs {
		dlg(cl)
	}
	if g.timer != nil {
		g.timer.EndAggregate(agg.Name, cl)
	}

	var waitSemaphores []vk.Semaphore
	var waitValues []uint64
	if agg.GpuDepIdx != invalidHandle {
		dep := g.aggregates[agg.GpuDepIdx]
		waitSemaphores = append(waitSemaphores, otherFence.Semaphore)
		waitValues = append(waitValues, dep.CompletionFence)
	}

	fenceValue := fence.Next()
	if err := g.dev.Submit(cl, fence, fenceValue, waitSemaphores, waitValues); err != nil {
		return fmt.Errorf("executeAggregate(%s): submit: %w", agg.Name, err)
	}
	agg.CompletionFence = fenceValue
	return nil
}

// Destroy releases the graph's command pools and fences.
func (g *Graph) Destroy() {
	g.directPool.Destroy()
	g.computePool.Destroy()
	g.directFence.Destroy()
	g.computeFence.Destroy()
}
