// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"zetacore.dev/engine/device"
	"zetacore.dev/engine/gpumemory"
)

// Manager partitions scene instances into static (never re-transformed)
// and dynamic (rebuilt or updated per frame), and owns the TLAS that
// stitches both into one scene-wide structure every frame (§4.5 "The AS
// manager partitions instances into static ... and dynamic").
type Manager struct {
	Static  *StaticBLAS
	Dynamic map[uint64]*DynamicBLAS
	TLAS    *TLAS

	dev    *device.Device
	pool   *gpumemory.Pool
	direct *device.Fence
}

// NewManager creates an AS manager with empty static/dynamic state.
func NewManager(dev *device.Device, pool *gpumemory.Pool, direct *device.Fence) *Manager {
	static := NewStaticBLAS(dev, pool, direct)
	return &Manager{
		Static:  static,
		Dynamic: make(map[uint64]*DynamicBLAS),
		TLAS:    NewTLAS(dev, pool, direct, static),
		dev:     dev, pool: pool, direct: direct,
	}
}

// EnsureDynamic returns the instance's DynamicBLAS, building a fresh one
// on first appearance (§4.5 "on first appearance ... a fresh ... build").
func (m *Manager) EnsureDynamic(cl *device.CommandList, in DynamicInput, frame uint64) (*DynamicBLAS, error) {
	if d, ok := m.Dynamic[in.InstanceID]; ok {
		return d, nil
	}
	d, err := NewDynamicBLAS(m.dev, m.pool, m.direct, cl, in, frame)
	if err != nil {
		return nil, err
	}
	m.Dynamic[in.InstanceID] = d
	return d, nil
}

// UpdateDynamic builds a fresh DynamicBLAS the first time in.InstanceID
// appears, or issues an in-place PERFORM_UPDATE build for an instance
// already known (§4.5 "on first appearance ... a fresh ... build ...
// thereafter ... PERFORM_UPDATE").
func (m *Manager) UpdateDynamic(cl *device.CommandList, in DynamicInput, frame uint64) (*DynamicBLAS, error) {
	d, known := m.Dynamic[in.InstanceID]
	if !known {
		return m.EnsureDynamic(cl, in, frame)
	}
	if err := d.Update(cl, in, frame); err != nil {
		return nil, err
	}
	return d, nil
}

// RemoveDynamic destroys and forgets the named instance's BLAS, e.g. when
// it leaves the scene.
func (m *Manager) RemoveDynamic(id uint64) {
	if d, ok := m.Dynamic[id]; ok {
		d.Destroy()
		delete(m.Dynamic, id)
	}
}

// Tick advances the static-BLAS compaction pipeline by one frame. Call
// once per frame regardless of whether a static rebuild occurred.
func (m *Manager) Tick(cl *device.CommandList, frame uint64) error {
	return m.Static.Tick(cl, frame)
}
