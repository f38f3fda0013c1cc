// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestFlagsForStaticInitialPrefersTraceAndCompaction(t *testing.T) {
	f := flagsFor(modeStaticInitial)
	assert.NotZero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePreferFastTraceBitKhr))
	assert.NotZero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructureAllowCompactionBitKhr))
	assert.Zero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePreferFastBuildBitKhr))
}

func TestFlagsForDynamicFreshPrefersFastBuildAndAllowsUpdate(t *testing.T) {
	f := flagsFor(modeDynamicFresh)
	assert.NotZero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePreferFastBuildBitKhr))
	assert.NotZero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructureAllowUpdateBitKhr))
	assert.Zero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructureAllowCompactionBitKhr))
}

func TestFlagsForDynamicUpdatePerformsUpdateInPlace(t *testing.T) {
	f := flagsFor(modeDynamicUpdate)
	assert.NotZero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePerformUpdateBitKhr))
	assert.NotZero(t, f&vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructureAllowUpdateBitKhr))
}
