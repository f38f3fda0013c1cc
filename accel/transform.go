// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import "zetacore.dev/engine/math32"

// affine3 is a row-major 3x4 affine transform, the exact layout
// VkAccelerationStructureInstanceKHR and vkCmdBuildAccelerationStructures's
// per-geometry transform both expect.
type affine3 [3][4]float32

// identityAffine3 is the static BLAS's slot-0 TLAS instance transform
// (§4.5 "static BLAS at slot 0 with identity transform").
func identityAffine3() affine3 {
	return affine3{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// composeAffine builds a 3x4 affine from a translation, rotation and
// per-axis scale, the SRT decomposition RtAccelerationStructure.cpp's
// FillMeshTransformBufferForBuild performs per static instance and
// RebuildTLAS performs per dynamic instance.
func composeAffine(pos math32.Vector3, rot math32.Quat, scale math32.Vector3) affine3 {
	x, y, z, w := rot.X, rot.Y, rot.Z, rot.W

	r00 := 1 - 2*(y*y+z*z)
	r01 := 2 * (x*y - z*w)
	r02 := 2 * (x*z + y*w)
	r10 := 2 * (x*y + z*w)
	r11 := 1 - 2*(x*x+z*z)
	r12 := 2 * (y*z - x*w)
	r20 := 2 * (x*z - y*w)
	r21 := 2 * (y*z + x*w)
	r22 := 1 - 2*(x*x+y*y)

	return affine3{
		{r00 * scale.X, r01 * scale.Y, r02 * scale.Z, pos.X},
		{r10 * scale.X, r11 * scale.Y, r12 * scale.Z, pos.Y},
		{r20 * scale.X, r21 * scale.Y, r22 * scale.Z, pos.Z},
	}
}
