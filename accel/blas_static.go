// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"zetacore.dev/engine/device"
	"zetacore.dev/engine/gpumemory"
	"zetacore.dev/engine/math32"
)

// MeshGeometry is one static instance's triangle-mesh source data and its
// never-changing world transform.
type MeshGeometry struct {
	ID uint64

	VertexBufferAddr vk.DeviceAddress
	IndexBufferAddr  vk.DeviceAddress
	VertexCount      uint32
	IndexCount       uint32

	Position math32.Vector3
	Rotation math32.Quat
	Scale    math32.Vector3
}

// staticPhase tracks the four-frame compaction pipeline §4.5 and §8
// scenario 4 describe. Tick is expected once per frame; each case below
// corresponds to exactly one frame of that timeline.
type staticPhase int

const (
	staticIdle staticPhase = iota
	staticBuilt
	staticWaited
	staticReadbackIssued
	staticCompacted
	staticLive
)

// StaticBLAS is the never-re-transformed half of the scene's bottom-level
// acceleration structures: one BLAS build over every static instance at
// once, compacted across the next four frames (§4.5 "Static BLAS").
type StaticBLAS struct {
	dev    *device.Device
	pool   *gpumemory.Pool
	direct *device.Fence

	handle  vk.AccelerationStructureKHR
	buf     *gpumemory.DefaultAlloc
	scratch *gpumemory.DefaultAlloc

	postBuild *gpumemory.DefaultAlloc
	readback  *gpumemory.Readback

	compactedHandle vk.AccelerationStructureKHR
	compactedBuf    *gpumemory.DefaultAlloc

	phase      staticPhase
	builtFrame uint64
}

// NewStaticBLAS creates an empty static BLAS manager. Rebuild must be
// called at least once before Handle returns anything usable.
func NewStaticBLAS(dev *device.Device, pool *gpumemory.Pool, direct *device.Fence) *StaticBLAS {
	return &StaticBLAS{dev: dev, pool: pool, direct: direct}
}

// Handle returns the currently live BLAS (uncompacted until the pipeline
// above reaches staticLive).
func (s *StaticBLAS) Handle() vk.AccelerationStructureKHR { return s.handle }

func (s *StaticBLAS) IsBuilt() bool { return s.phase != staticIdle }

// Rebuild issues a fresh build over every static instance with
// PREFER_FAST_TRACE | ALLOW_COMPACTION, attaches a compacted-size query,
// and starts the compaction pipeline over at frame (§4.5 "When the set of
// static instances changes").
func (s *StaticBLAS) Rebuild(cl *device.CommandList, ring *gpumemory.UploadRing, meshes []MeshGeometry, frame uint64) error {
	if len(meshes) == 0 {
		return fmt.Errorf("accel: static rebuild with no instances")
	}

	transformsBlock := ring.Alloc(len(meshes)*48, 16)
	if transformsBlock == nil {
		return fmt.Errorf("accel: static transform upload ring out of room")
	}
	writeAffines(transformsBlock, meshes)

	geoms := make([]vk.AccelerationStructureGeometryKHR, len(meshes))
	primCounts := make([]uint32, len(meshes))
	ranges := make([]vk.AccelerationStructureBuildRangeInfoKHR, len(meshes))
	for i, m := range meshes {
		geoms[i] = vk.AccelerationStructureGeometryKHR{
			SType:        vk.StructureTypeAccelerationStructureGeometryKhr,
			GeometryType: vk.GeometryTypeTrianglesKhr,
			Flags:        vk.GeometryFlags(vk.GeometryOpaqueBitKhr),
			Geometry: vk.AccelerationStructureGeometryDataKHR{
				Triangles: vk.AccelerationStructureGeometryTrianglesDataKHR{
					SType:         vk.StructureTypeAccelerationStructureGeometryTrianglesDataKhr,
					VertexFormat:  vk.FormatR32g32b32Sfloat,
					VertexData:    vk.DeviceOrHostAddressConstKHR{DeviceAddress: m.VertexBufferAddr},
					VertexStride:  vk.DeviceSize(12),
					MaxVertex:     m.VertexCount - 1,
					IndexType:     vk.IndexTypeUint32,
					IndexData:     vk.DeviceOrHostAddressConstKHR{DeviceAddress: m.IndexBufferAddr},
					TransformData: vk.DeviceOrHostAddressConstKHR{DeviceAddress: transformsBlock.GPUAddr + vk.DeviceAddress(i*48)},
				},
			},
		}
		primCounts[i] = m.IndexCount / 3
		ranges[i] = vk.AccelerationStructureBuildRangeInfoKHR{PrimitiveCount: primCounts[i]}
	}

	flags := flagsFor(modeStaticInitial)
	sizes := buildSizes(s.dev, vk.AccelerationStructureTypeBottomLevelKhr, geoms, primCounts, flags)

	buf, err := allocASBuffer(s.pool, "static-blas", int(sizes.AccelerationStructureSize))
	if err != nil {
		return err
	}
	scratch, err := allocASBuffer(s.pool, "static-blas-scratch", int(sizes.BuildScratchSize))
	if err != nil {
		return err
	}
	handle, err := createAS(s.dev, buf.Buffer(), sizes.AccelerationStructureSize, vk.AccelerationStructureTypeBottomLevelKhr)
	if err != nil {
		return err
	}

	cmdBuild(cl, vk.AccelerationStructureTypeBottomLevelKhr, vk.BuildAccelerationStructureModeBuildKhr,
		nil, handle, bufferDeviceAddress(s.dev, scratch.Buffer()), geoms, flags, ranges)

	postBuild, err := allocASBuffer(s.pool, "static-blas-postbuild", 8)
	if err != nil {
		return err
	}
	readback, err := gpumemory.NewReadback(s.dev, 8)
	if err != nil {
		return err
	}

	uavBarrier(cl)
	vk.CmdWriteAccelerationStructuresPropertiesKHR(cl.Buffer, 1, []vk.AccelerationStructureKHR{handle},
		vk.QueryTypeAccelerationStructureCompactedSizeKhr, nil, 0)

	if s.phase != staticIdle {
		// A rebuild preempts whatever compaction pipeline was in flight;
		// that handle will never be read again, so it is safe to destroy
		// once its buffer's last possible reader has retired.
		destroyAS(s.dev, s.handle)
		s.releaseLive()
		if s.compactedHandle != nil {
			destroyAS(s.dev, s.compactedHandle)
			s.pool.Release(s.compactedBuf, s.direct.Next())
			s.compactedHandle, s.compactedBuf = nil, nil
		}
	}

	s.handle, s.buf, s.scratch = handle, buf, scratch
	s.postBuild, s.readback = postBuild, readback
	s.phase = staticBuilt
	s.builtFrame = frame
	return nil
}

// Tick advances the compaction pipeline by exactly one frame. It must be
// called once per frame, including frames where Rebuild was not called.
func (s *StaticBLAS) Tick(cl *device.CommandList, frame uint64) error {
	if s.phase == staticIdle || s.phase == staticLive {
		return nil
	}
	delta := frame - s.builtFrame
	switch {
	case s.phase == staticBuilt && delta == 1:
		s.phase = staticWaited
	case (s.phase == staticBuilt || s.phase == staticWaited) && delta == 2:
		uavBarrier(cl)
		vk.CmdCopyBuffer(cl.Buffer, s.postBuild.Buffer(), s.readback.Buffer(), 1, []vk.BufferCopy{{Size: 8}})
		s.phase = staticReadbackIssued
	case s.phase == staticReadbackIssued && delta == 3:
		size, err := s.readCompactedSize()
		if err != nil {
			return err
		}
		compactedBuf, err := allocASBuffer(s.pool, "static-blas-compacted", int(size))
		if err != nil {
			return err
		}
		compactedHandle, err := createAS(s.dev, compactedBuf.Buffer(), vk.DeviceSize(size), vk.AccelerationStructureTypeBottomLevelKhr)
		if err != nil {
			return err
		}
		vk.CmdCopyAccelerationStructureKHR(cl.Buffer, &vk.CopyAccelerationStructureInfoKHR{
			SType: vk.StructureTypeCopyAccelerationStructureInfoKhr,
			Src:   s.handle,
			Dst:   compactedHandle,
			Mode:  vk.CopyAccelerationStructureModeCompactKhr,
		})
		s.compactedHandle, s.compactedBuf = compactedHandle, compactedBuf
		s.releaseLive()
		s.phase = staticCompacted
	case s.phase == staticCompacted && delta == 4:
		destroyAS(s.dev, s.handle)
		s.handle, s.buf = s.compactedHandle, s.compactedBuf
		s.compactedHandle, s.compactedBuf = nil, nil
		s.phase = staticLive
	}
	return nil
}

// releaseLive retires the current uncompacted buffer, scratch and
// postbuild query buffer against the next direct-queue fence value. The
// acceleration-structure handle itself is destroyed separately, once it
// is provably no longer referenced by any recorded command.
func (s *StaticBLAS) releaseLive() {
	v := s.direct.Next()
	s.pool.Release(s.buf, v)
	if s.scratch != nil {
		s.pool.Release(s.scratch, v)
	}
	if s.postBuild != nil {
		s.pool.Release(s.postBuild, v)
	}
}

func (s *StaticBLAS) readCompactedSize() (uint64, error) {
	ptr, err := s.readback.Map()
	if err != nil {
		return 0, err
	}
	defer s.readback.Unmap()
	buf := unsafe.Slice((*byte)(ptr), 8)
	return binary.LittleEndian.Uint64(buf), nil
}

func writeAffines(block *gpumemory.Block, meshes []MeshGeometry) {
	dst := unsafe.Slice((*float32)(block.Ptr), len(meshes)*12)
	for i, m := range meshes {
		a := composeAffine(m.Position, m.Rotation, m.Scale)
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				dst[i*12+r*4+c] = a[r][c]
			}
		}
	}
}
