// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rendergraph

import "zetacore.dev/engine/device"

// MaxRenderPasses and MaxResources bound registration per frame (§4.4
// "Per frame it ingests <= 32 passes ... and <= 64 distinct resources").
const (
	MaxRenderPasses = 32
	MaxResources    = 64
)

// NodeType is a render pass's queue affinity.
type NodeType uint8

const (
	NodeRender NodeType = iota
	NodeCompute
	NodeAsyncCompute
)

func (t NodeType) queueRole() device.Role {
	if t == NodeAsyncCompute {
		return device.RoleCompute
	}
	return device.RoleDirect
}

// RecordFunc is a pass's recording callback, the Go equivalent of the
// original's FastDelegate1<CommandList&>.
type RecordFunc func(cl *device.CommandList)

// Dependency is one (resource path ID, expected state) declaration.
type Dependency struct {
	ResourceID    uint64
	ExpectedState State
}

// RenderNode is a registered pass for the current frame (§3 "Entity:
// RenderNode"). Arrays are reset every BeginFrame; nodes live for exactly
// one frame.
type RenderNode struct {
	Name string
	Type NodeType
	Dlg  RecordFunc

	Inputs  []Dependency
	Outputs []Dependency

	Barriers []Barrier

	// OutputMask marks, by output index, which outputs are self-edged
	// (also appear as an input) and so must skip barrier insertion; the
	// pass is responsible for its own internal ping-pong (§4.4.3 step 1).
	OutputMask uint32

	// GpuDepSourceIdx is the at-most-one cross-queue producer this node
	// takes a GPU dependency on, or invalidHandle.
	GpuDepSourceIdx int

	Indegree    int32
	NodeBatchIdx int
	AggBatchIdx  int

	HasUnsupportedBarrier bool
}

func newRenderNode(name string, t NodeType, dlg RecordFunc) *RenderNode {
	return &RenderNode{
		Name:            name,
		Type:            t,
		Dlg:             dlg,
		GpuDepSourceIdx: invalidHandle,
		NodeBatchIdx:    invalidHandle,
		AggBatchIdx:     invalidHandle,
	}
}

// AggregateNode is a contiguous run of RenderNodes of the same queue type
// within the same batch, submitted on a single command list (§3 "Entity:
// AggregateNode").
type AggregateNode struct {
	Name     string
	Barriers []Barrier
	Dlgs     []RecordFunc

	HasUnsupportedBarrier bool

	// GpuDepIdx indexes into the aggregate-node array, or invalidHandle.
	GpuDepIdx int

	Role NodeType // queue affinity shared by every merged node

	CompletionFence uint64
	IsLast          bool
}

func (a *AggregateNode) append(n *RenderNode) {
	if a.Name == "" {
		a.Name = n.Name
	} else {
		a.Name += "+" + n.Name
	}
	a.Barriers = append(a.Barriers, n.Barriers...)
	a.Dlgs = append(a.Dlgs, n.Dlg)
	if n.HasUnsupportedBarrier {
		a.HasUnsupportedBarrier = true
	}
}
