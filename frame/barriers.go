// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	vk "github.com/goki/vulkan"

	"zetacore.dev/engine/device"
	"zetacore.dev/engine/rendergraph"
)

// stateAccessStage maps a tracked rendergraph.State onto the Vulkan
// access mask and pipeline stage that state implies, the information a
// barrier needs on either side of a transition. Every resource the graph
// tracks in this engine is a plain buffer (gpumemory/descriptorheap own
// no image resources — the swap-chain image is the out-of-scope window
// layer's concern, handled only via the back-buffer-to-present special
// case in rendergraph.Graph.Build), so one global vk.MemoryBarrier per
// transition is sufficient; there is no per-resource vk.Image layout to
// track.
func stateAccessStage(s rendergraph.State) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch {
	case s&rendergraph.StateRenderTarget != 0:
		return vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case s&rendergraph.StateDepthWrite != 0:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit), vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	case s&rendergraph.StateDepthRead != 0:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit), vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	case s&rendergraph.StateUAV != 0:
		return vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	case s&rendergraph.StateNonPixelSR != 0:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit | vk.PipelineStageVertexShaderBit)
	case s&rendergraph.StatePixelSR != 0:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case s&rendergraph.StateCopySrc != 0:
		return vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case s&rendergraph.StateCopyDst != 0:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case s&rendergraph.StateAccelStructure != 0:
		return vk.AccessFlags(vk.AccessAccelerationStructureReadBitKhr | vk.AccessAccelerationStructureWriteBitKhr),
			vk.PipelineStageFlags(vk.PipelineStageAccelerationStructureBuildBitKhr)
	case s&rendergraph.StateVertexConstant != 0:
		return vk.AccessFlags(vk.AccessUniformReadBit | vk.AccessVertexAttributeReadBit), vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
	case s&rendergraph.StateIndex != 0:
		return vk.AccessFlags(vk.AccessIndexReadBit), vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
	case s&rendergraph.StatePresent != 0:
		return 0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	default: // StateCommon, StateGenericRead, StateAllSR fall through to a conservative host/all-commands pair
		return vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit), vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
}

// installBarrierHook wires rendergraph.BarrierHook once at startup, after
// every resource-owning subsystem has had a chance to register its own
// handle bookkeeping (today neither gpumemory nor descriptorheap need a
// per-handle callback of their own, since every tracked resource is a
// buffer; see the doc comment above and rendergraph.Graph's own note on
// this seam).
func installBarrierHook(dev *device.Device) {
	rendergraph.BarrierHook = func(cl *device.CommandList, b rendergraph.Barrier) {
		srcAccess, srcStage := stateAccessStage(b.Before)
		dstAccess, dstStage := stateAccessStage(b.After)
		barrier := vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: srcAccess,
			DstAccessMask: dstAccess,
		}
		vk.CmdPipelineBarrier(cl.Buffer, srcStage, dstStage, 0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
	}
}
