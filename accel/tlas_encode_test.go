// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"encoding/binary"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetacore.dev/engine/gpumemory"
	"zetacore.dev/engine/math32"
)

// fakeBlock wraps a plain Go byte slice as a gpumemory.Block so the
// encoding helpers can be exercised without a real upload ring or device.
func fakeBlock(n int) (*gpumemory.Block, []byte) {
	buf := make([]byte, n)
	return &gpumemory.Block{Ptr: unsafe.Pointer(&buf[0])}, buf
}

func TestWriteInstanceDescPacksTransformMaskAndBlasAddress(t *testing.T) {
	block, raw := fakeBlock(instanceGeometryKHRSize)
	a := identityAffine3()
	a[0][3], a[1][3], a[2][3] = 1, 2, 3

	writeInstanceDesc(block, 0, a, 0x00ABCDEF, vk.DeviceAddress(0x1122334455667788), true, false)

	floats := make([]float32, 12)
	for i := range floats {
		floats[i] = *(*float32)(unsafe.Pointer(&raw[i*4]))
	}
	assert.InDelta(t, 1, floats[3], 1e-5)
	assert.InDelta(t, 2, floats[7], 1e-5)
	assert.InDelta(t, 3, floats[11], 1e-5)

	word0 := binary.LittleEndian.Uint32(raw[48:52])
	word1 := binary.LittleEndian.Uint32(raw[52:56])
	lo := binary.LittleEndian.Uint32(raw[56:60])
	hi := binary.LittleEndian.Uint32(raw[60:64])

	assert.Equal(t, uint32(0x00ABCDEF), word0&0xFFFFFF)
	assert.Equal(t, uint32(nonEmissiveSubgroupMask), word0>>24)
	assert.Equal(t, uint32(instanceFlagForceOpaque<<24), word1)
	assert.Equal(t, uint64(0x1122334455667788), uint64(hi)<<32|uint64(lo))
}

func TestWriteInstanceDescNonOpaqueLeavesFlagsZero(t *testing.T) {
	block, raw := fakeBlock(instanceGeometryKHRSize)
	writeInstanceDesc(block, 0, identityAffine3(), 1, vk.DeviceAddress(0), false, false)
	word1 := binary.LittleEndian.Uint32(raw[52:56])
	assert.Zero(t, word1)
}

// The subgroup mask (§4.5 "a 1-byte subgroup mask separating emissive from
// non-emissive") must take a different value for emissive vs. non-emissive
// instances so a ray's TraceRayKHR cull mask can select one group or the
// other; this pins the two masks and confirms they are distinct.
func TestWriteInstanceDescMaskDistinguishesEmissiveInstances(t *testing.T) {
	nonEmissive, rawNonEmissive := fakeBlock(instanceGeometryKHRSize)
	writeInstanceDesc(nonEmissive, 0, identityAffine3(), 0, vk.DeviceAddress(0), true, false)
	maskNonEmissive := binary.LittleEndian.Uint32(rawNonEmissive[48:52]) >> 24

	emissive, rawEmissive := fakeBlock(instanceGeometryKHRSize)
	writeInstanceDesc(emissive, 0, identityAffine3(), 0, vk.DeviceAddress(0), true, true)
	maskEmissive := binary.LittleEndian.Uint32(rawEmissive[48:52]) >> 24

	assert.Equal(t, uint32(nonEmissiveSubgroupMask), maskNonEmissive)
	assert.Equal(t, uint32(emissiveSubgroupMask), maskEmissive)
	assert.NotEqual(t, maskEmissive, maskNonEmissive, "emissive and non-emissive instances must land in different ray subgroup masks")
}

func TestWriteMeshInstancePacksMatIDAndOffsets(t *testing.T) {
	block, raw := fakeBlock(meshInstanceSize)
	writeMeshInstance(block, 0, 7, 100, 200, math32.QIdentity(), math32.Vec3(1, 1, 1))

	matID := *(*uint16)(unsafe.Pointer(&raw[0]))
	baseVtx := binary.LittleEndian.Uint32(raw[4:8])
	baseIdx := binary.LittleEndian.Uint32(raw[8:12])
	assert.Equal(t, uint16(7), matID)
	assert.Equal(t, uint32(100), baseVtx)
	assert.Equal(t, uint32(200), baseIdx)
}

func TestTLASRebuildSortsInstancesByStableInstanceID(t *testing.T) {
	instances := []Instance{
		{BLAS: &DynamicBLAS{InstanceID: 30}},
		{BLAS: &DynamicBLAS{InstanceID: 10}},
		{BLAS: &DynamicBLAS{InstanceID: 20}},
	}
	sortInstancesByStableID(instances)
	require.Len(t, instances, 3)
	assert.Equal(t, uint64(10), instances[0].BLAS.InstanceID)
	assert.Equal(t, uint64(20), instances[1].BLAS.InstanceID)
	assert.Equal(t, uint64(30), instances[2].BLAS.InstanceID)
}
