// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package accel manages bottom- and top-level ray-tracing acceleration
// structures: static-instance BLAS build and background compaction,
// per-instance dynamic BLAS build/update, and the per-frame TLAS rebuild
// that stitches both into one scene structure (§4.5). It is grounded on
// original_source/ZetaCore/RayTracing/RtAccelerationStructure.{h,cpp}; the
// Go port keeps that file's three-type split (static BLAS, dynamic BLAS,
// TLAS) and its build-flag choices, generalized from a fixed mesh-pool
// model to caller-supplied instance slices.
package accel

import (
	vk "github.com/goki/vulkan"
)

// buildMode selects which of the three build-flag combinations
// RtAccelerationStructure.cpp's GetBuildFlagsForRtAS uses.
type buildMode int

const (
	modeStaticInitial buildMode = iota
	modeDynamicFresh
	modeDynamicUpdate
)

func flagsFor(m buildMode) vk.BuildAccelerationStructureFlagsKHR {
	switch m {
	case modeStaticInitial:
		return vk.BuildAccelerationStructureFlagsKHR(
			vk.BuildAccelerationStructurePreferFastTraceBitKhr | vk.BuildAccelerationStructureAllowCompactionBitKhr)
	case modeDynamicFresh:
		return vk.BuildAccelerationStructureFlagsKHR(
			vk.BuildAccelerationStructurePreferFastBuildBitKhr | vk.BuildAccelerationStructureAllowUpdateBitKhr)
	case modeDynamicUpdate:
		return vk.BuildAccelerationStructureFlagsKHR(
			vk.BuildAccelerationStructurePerformUpdateBitKhr | vk.BuildAccelerationStructureAllowUpdateBitKhr)
	}
	return 0
}
