// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rendergraph builds, per frame, a DAG of render passes, inserts
// the resource-state barriers and cross-queue fence waits it implies, and
// aggregates same-queue same-batch passes into single submission units
// (§4.4). Field names (NodeBatchIdx, AggBatchIdx, GpuDepSourceIdx,
// Producers, OutputMask) are taken directly from
// ZetaCore/Core/RenderGraph.h so the algorithm below reads as a port of
// that graph's Build, not a reinvention.
package rendergraph

// State is a GPU resource's tracked state, named after the D3D12
// resource-state vocabulary spec.md uses throughout (§3).
type State uint32

const (
	StateCommon State = 1 << iota
	StateVertexConstant
	StateIndex
	StateRenderTarget
	StateDepthWrite
	StateDepthRead
	StateNonPixelSR
	StatePixelSR
	StateUAV
	StateCopySrc
	StateCopyDst
	StateAccelStructure
	StatePresent
	StateGenericRead
)

// StateAllSR is the union "all-SR" state named in §3.
const StateAllSR = StateNonPixelSR | StatePixelSR

const writeStates = StateRenderTarget | StateDepthWrite | StateUAV | StateCopyDst

const readStates = StateVertexConstant | StateIndex | StateDepthRead | StateNonPixelSR |
	StatePixelSR | StateCopySrc | StateAccelStructure | StatePresent | StateGenericRead | StateAllSR

// illegalOnCompute is the set of output states async-compute passes may
// never request (§3 invariant: "async-compute outputs never request
// render-target, depth-*, or pixel-SR").
const illegalOnCompute = StateRenderTarget | StateDepthWrite | StateDepthRead | StatePixelSR

// IsValidWrite reports whether s is a legal output/write state.
func (s State) IsValidWrite() bool { return s&writeStates != 0 }

// IsValidRead reports whether s is a legal input/read state.
func (s State) IsValidRead() bool { return s&readStates != 0 }

// LegalOnCompute reports whether s may be requested by an async-compute
// pass.
func (s State) LegalOnCompute() bool { return s&illegalOnCompute == 0 }

// Barrier is a single resource-state transition, recorded on the node
// that requires it and merged into its AggregateNode at aggregation time.
type Barrier struct {
	ResourceID uint64
	Before     State
	After      State
}
