// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rendergraph

import (
	"fmt"
	"strings"
)

// DOT renders the graph built by the last call to Build as Graphviz DOT,
// one cluster per batch index, mirroring what the original's
// DebugDrawGraph showed in its ImNodes editor: nodes grouped visually by
// batch, async-compute passes called out by fill color, passes with an
// unsupported barrier drawn bold, and cross-queue GPU-dependency edges
// drawn dashed. It has no bearing on scheduling.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph rendergraph {\n")
	b.WriteString("  rankdir=LR;\n  node [shape=box];\n")

	batches := map[int][]int{}
	for i, node := range g.nodes {
		batches[node.NodeBatchIdx] = append(batches[node.NodeBatchIdx], i)
	}
	maxBatch := 0
	for idx := range batches {
		if idx > maxBatch {
			maxBatch = idx
		}
	}

	for batch := 0; batch <= maxBatch; batch++ {
		ids, ok := batches[batch]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n    label=\"batch %d\";\n", batch, batch)
		for _, i := range ids {
			node := g.nodes[i]
			color := "lightblue"
			if node.Type == NodeAsyncCompute {
				color = "lightsalmon"
			}
			style := "filled"
			if node.HasUnsupportedBarrier {
				style = "filled,bold"
			}
			fmt.Fprintf(&b, "    n%d [label=%q, style=%q, fillcolor=%q];\n", i, node.Name, style, color)
		}
		b.WriteString("  }\n")
	}

	for i, node := range g.nodes {
		for _, in := range node.Inputs {
			for _, p := range g.otherProducers(in.ResourceID, i) {
				fmt.Fprintf(&b, "  n%d -> n%d;\n", p, i)
			}
		}
		if node.GpuDepSourceIdx != invalidHandle && node.GpuDepSourceIdx < len(g.sortedOrder) {
			origProducer := g.sortedOrder[node.GpuDepSourceIdx]
			fmt.Fprintf(&b, "  n%d -> n%d [style=dashed, color=red, label=\"gpu dep\"];\n", origProducer, i)
		}
	}

	b.WriteString("}\n")
	return b.String()
}
