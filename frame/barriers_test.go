// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"zetacore.dev/engine/rendergraph"
)

func TestStateAccessStageRenderTargetWantsColorAttachmentWrite(t *testing.T) {
	access, stage := stateAccessStage(rendergraph.StateRenderTarget)
	assert.Equal(t, vk.AccessFlags(vk.AccessColorAttachmentWriteBit), access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), stage)
}

func TestStateAccessStageUAVWantsShaderReadWriteOnCompute(t *testing.T) {
	access, stage := stateAccessStage(rendergraph.StateUAV)
	assert.NotZero(t, access&vk.AccessFlags(vk.AccessShaderReadBit))
	assert.NotZero(t, access&vk.AccessFlags(vk.AccessShaderWriteBit))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), stage)
}

func TestStateAccessStageAccelStructureWantsBuildStage(t *testing.T) {
	access, stage := stateAccessStage(rendergraph.StateAccelStructure)
	assert.NotZero(t, access&vk.AccessFlags(vk.AccessAccelerationStructureReadBitKhr))
	assert.NotZero(t, access&vk.AccessFlags(vk.AccessAccelerationStructureWriteBitKhr))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageAccelerationStructureBuildBitKhr), stage)
}

func TestStateAccessStagePresentHasNoAccessButBottomOfPipeStage(t *testing.T) {
	access, stage := stateAccessStage(rendergraph.StatePresent)
	assert.Zero(t, access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), stage)
}

func TestStateAccessStageGenericReadFallsBackToAllCommands(t *testing.T) {
	access, stage := stateAccessStage(rendergraph.StateGenericRead)
	assert.NotZero(t, access&vk.AccessFlags(vk.AccessMemoryReadBit))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), stage)
}

func TestStateAccessStageVertexConstantWantsVertexInputStage(t *testing.T) {
	access, stage := stateAccessStage(rendergraph.StateVertexConstant)
	assert.NotZero(t, access&vk.AccessFlags(vk.AccessUniformReadBit))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), stage)
}
