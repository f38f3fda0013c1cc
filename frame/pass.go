// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import "zetacore.dev/engine/rendergraph"

// Pass is one render-graph pass's per-frame declaration: its queue
// affinity, the resources it reads/writes this frame, and its recording
// callback (§2 step 3, "each pass register itself and declare inputs/
// outputs on the RenderGraph"). The concrete passes (shading, denoising,
// tone mapping) are out of scope (§1); Pass is the seam they plug into.
type Pass struct {
	Name    string
	Type    rendergraph.NodeType
	Inputs  []rendergraph.Dependency
	Outputs []rendergraph.Dependency
	Record  rendergraph.RecordFunc
}

// register reserves h's node on g and declares every input/output this
// pass requested this frame.
func (p Pass) register(g *rendergraph.Graph) error {
	h, err := g.RegisterRenderPass(p.Name, p.Type, p.Record)
	if err != nil {
		return err
	}
	for _, in := range p.Inputs {
		g.AddInput(h, in.ResourceID, in.ExpectedState)
	}
	for _, out := range p.Outputs {
		g.AddOutput(h, out.ResourceID, out.ExpectedState)
	}
	return nil
}
