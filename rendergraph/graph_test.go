// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetacore.dev/engine/device"
	"zetacore.dev/engine/workerpool"
)

// newTestGraph builds a Graph with no backing device, sufficient to
// exercise Build's pure DAG/barrier/aggregation logic (§4.4.3): nothing
// up to and including Build touches g.dev, only executeAggregate does,
// and these tests never run the emitted tasks.
func newTestGraph() *Graph {
	return &Graph{resources: newResourceTable()}
}

func noopRecord(cl *device.CommandList) {}

// Two compute passes on one queue, chained by a single resource: A writes
// Y, B reads Y and writes a second, independent resource. Exercises
// same-queue batch ordering and sequential barrier insertion without any
// cross-queue dependency.
func TestBuildTwoPassChainOneQueue(t *testing.T) {
	g := newTestGraph()
	g.BeginFrame()

	const resX, resY = 1, 2
	_, err := g.RegisterResource(resX, 100, StateCommon, false)
	require.NoError(t, err)
	_, err = g.RegisterResource(resY, 200, StateCommon, false)
	require.NoError(t, err)

	a, err := g.RegisterRenderPass("A", NodeCompute, noopRecord)
	require.NoError(t, err)
	b, err := g.RegisterRenderPass("B", NodeCompute, noopRecord)
	require.NoError(t, err)

	g.AddOutput(a, resY, StateUAV)
	g.AddInput(b, resY, StateNonPixelSR)
	g.AddOutput(b, resX, StateUAV)

	g.MoveToPostRegister()
	ts := workerpool.NewTaskSet()
	require.NoError(t, g.Build(ts))

	nodeA, nodeB := g.nodes[a], g.nodes[b]
	assert.Less(t, nodeA.NodeBatchIdx, nodeB.NodeBatchIdx, "B depends on A's output Y")
	assert.Equal(t, invalidHandle, nodeA.GpuDepSourceIdx, "same queue: no cross-queue fence")
	assert.Equal(t, invalidHandle, nodeB.GpuDepSourceIdx)

	assert.Contains(t, nodeA.Barriers, Barrier{ResourceID: resY, Before: StateCommon, After: StateUAV})
	assert.Contains(t, nodeB.Barriers, Barrier{ResourceID: resY, Before: StateUAV, After: StateNonPixelSR})
	assert.Contains(t, nodeB.Barriers, Barrier{ResourceID: resX, Before: StateCommon, After: StateUAV})

	require.Len(t, g.aggregates, 2)
	assert.Equal(t, "A", g.aggregates[0].Name)
	assert.Equal(t, "B", g.aggregates[1].Name)
}

// scenario 2 (§8): a graphics producer of a depth buffer feeds an
// async-compute consumer; depth-write is not a legal compute "before"
// state, so the consumer's aggregate must flag HasUnsupportedBarrier.
func TestBuildGraphicsToAsyncComputeUnsupportedBarrier(t *testing.T) {
	g := newTestGraph()
	g.BeginFrame()

	const resZ = 1
	_, err := g.RegisterResource(resZ, 100, StateCommon, false)
	require.NoError(t, err)

	gNode, err := g.RegisterRenderPass("G", NodeRender, noopRecord)
	require.NoError(t, err)
	cNode, err := g.RegisterRenderPass("C", NodeAsyncCompute, noopRecord)
	require.NoError(t, err)

	g.AddOutput(gNode, resZ, StateDepthWrite)
	g.AddInput(cNode, resZ, StateNonPixelSR)

	g.MoveToPostRegister()
	ts := workerpool.NewTaskSet()
	require.NoError(t, g.Build(ts))

	cn := g.nodes[cNode]
	assert.True(t, cn.HasUnsupportedBarrier, "depth-write -> non-pixel-SR is not a legal compute 'before' state")

	var computeAgg *AggregateNode
	for _, agg := range g.aggregates {
		if agg.Role == NodeAsyncCompute {
			computeAgg = agg
		}
	}
	require.NotNil(t, computeAgg)
	assert.True(t, computeAgg.HasUnsupportedBarrier)
}

// scenario 3 (§8): diamond with a cross-queue merge. G2 takes its GPU
// dependency on C1 (the other-queue producer) and not on G1 (same queue,
// program order alone suffices).
func TestBuildDiamondCrossQueueMerge(t *testing.T) {
	g := newTestGraph()
	g.BeginFrame()

	const resA, resB = 1, 2
	_, err := g.RegisterResource(resA, 100, StateCommon, false)
	require.NoError(t, err)
	_, err = g.RegisterResource(resB, 200, StateCommon, false)
	require.NoError(t, err)

	g1, err := g.RegisterRenderPass("G1", NodeRender, noopRecord)
	require.NoError(t, err)
	c1, err := g.RegisterRenderPass("C1", NodeAsyncCompute, noopRecord)
	require.NoError(t, err)
	g2, err := g.RegisterRenderPass("G2", NodeRender, noopRecord)
	require.NoError(t, err)

	g.AddOutput(g1, resA, StateRenderTarget)
	g.AddOutput(c1, resB, StateUAV)
	g.AddInput(g2, resA, StatePixelSR)
	g.AddInput(g2, resB, StatePixelSR)

	g.MoveToPostRegister()
	ts := workerpool.NewTaskSet()
	require.NoError(t, g.Build(ts))

	n1, nc1, n2 := g.nodes[g1], g.nodes[c1], g.nodes[g2]
	assert.Equal(t, invalidHandle, n1.GpuDepSourceIdx)
	assert.Equal(t, invalidHandle, nc1.GpuDepSourceIdx)
	require.NotEqual(t, invalidHandle, n2.GpuDepSourceIdx, "G2 must take a dependency on the other-queue producer C1")
	assert.Equal(t, int(c1), g.sortedOrder[n2.GpuDepSourceIdx], "the dependency source resolves back to C1, not G1")

	assert.Contains(t, n2.Barriers, Barrier{ResourceID: resA, Before: StateRenderTarget, After: StatePixelSR})
	assert.Contains(t, n2.Barriers, Barrier{ResourceID: resB, Before: StateUAV, After: StatePixelSR})
}

// A resource declared as both input and output of the same node is a
// self-edge: its output slot is masked out of barrier insertion entirely
// (§4.4.3 step 4), leaving the pass responsible for its own internal
// ping-pong transition. The input side is an ordinary read and still gets
// whatever barrier its expected state requires; here the resource already
// sits in that state, so no barrier is needed on either side.
func TestSelfEdgeResourceSkipsBarrier(t *testing.T) {
	g := newTestGraph()
	g.BeginFrame()

	const resX = 1
	_, err := g.RegisterResource(resX, 100, StateNonPixelSR, false)
	require.NoError(t, err)

	h, err := g.RegisterRenderPass("PingPong", NodeCompute, noopRecord)
	require.NoError(t, err)
	g.AddInput(h, resX, StateNonPixelSR)
	g.AddOutput(h, resX, StateUAV)

	g.MoveToPostRegister()
	ts := workerpool.NewTaskSet()
	require.NoError(t, g.Build(ts))

	n := g.nodes[h]
	assert.NotZero(t, n.OutputMask&1, "the sole output must be marked self-edged")
	assert.Empty(t, n.Barriers, "input already matches its expected state, and the self-edged output is masked out of barrier insertion")
}

// Boundary (§8): exactly 32 passes registered succeeds; the 33rd is
// rejected.
func TestRegisterRenderPassCapacityBound(t *testing.T) {
	g := newTestGraph()
	g.BeginFrame()

	for i := 0; i < MaxRenderPasses; i++ {
		_, err := g.RegisterRenderPass("pass", NodeRender, noopRecord)
		require.NoError(t, err)
	}
	_, err := g.RegisterRenderPass("one-too-many", NodeRender, noopRecord)
	assert.Error(t, err)
}

// A dependency cycle (two nodes each consuming the other's output) must
// not silently topo-sort; Build reports it as an error.
func TestBuildDetectsDependencyCycle(t *testing.T) {
	g := newTestGraph()
	g.BeginFrame()

	const resX, resY = 1, 2
	_, err := g.RegisterResource(resX, 100, StateCommon, false)
	require.NoError(t, err)
	_, err = g.RegisterResource(resY, 200, StateCommon, false)
	require.NoError(t, err)

	a, err := g.RegisterRenderPass("A", NodeCompute, noopRecord)
	require.NoError(t, err)
	b, err := g.RegisterRenderPass("B", NodeCompute, noopRecord)
	require.NoError(t, err)

	g.AddInput(a, resY, StateNonPixelSR)
	g.AddOutput(a, resX, StateUAV)
	g.AddInput(b, resX, StateNonPixelSR)
	g.AddOutput(b, resY, StateUAV)

	g.MoveToPostRegister()
	ts := workerpool.NewTaskSet()
	assert.Error(t, g.Build(ts))
}
