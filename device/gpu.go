// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device is the thin adapter layer the rest of the engine talks
// through for everything GPU: the physical adapter, the logical device and
// its direct (graphics) and compute queues, and the fences used to
// cross-queue- and CPU-synchronize submitted work. Nothing upstream of this
// package owns a vk.Instance or vk.Device directly; they hold the opaque
// handles this package hands back (see spec §6, "To device layer").
package device

import (
	"fmt"

	"log/slog"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/base/logx"
)

// GPU represents the selected physical adapter and the Vulkan instance it
// was enumerated from.
type GPU struct {
	// Instance is the Vulkan instance shared by every Device created from
	// this GPU.
	Instance vk.Instance

	// PhysicalDevice is the selected adapter.
	PhysicalDevice vk.PhysicalDevice

	// Properties are the adapter's reported properties (name, vendor, limits).
	Properties vk.PhysicalDeviceProperties

	// MemoryProperties describes the adapter's memory heaps and types,
	// consumed by gpumemory's allocators.
	MemoryProperties vk.PhysicalDeviceMemoryProperties

	// Name is the human-readable adapter name, cached from Properties.
	Name string

	// DeviceExts are additional device extensions enabled at device-creation
	// time, beyond the acceleration-structure/ray-tracing-pipeline set
	// NewDevice always enables for package accel.
	DeviceExts []string

	// ValidationLayers are the instance validation layers enabled; empty
	// in release builds.
	ValidationLayers []string
}

// Config holds the parameters used to create the Vulkan instance.
type Config struct {
	AppName    string
	Debug      bool
	DeviceExts []string
}

// NewGPU creates a Vulkan instance and selects the best physical device
// available, preferring a discrete GPU over an integrated or CPU/software
// one. It is a programmer error to call this more than once per process
// (the instance is process-global, per spec §9 "Global mutable state").
func NewGPU(cfg Config) (*GPU, error) {
	if err := loadVulkan(); err != nil {
		return nil, err
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("device: vk.Init failed: %w", err)
	}

	layers := []string{}
	if cfg.Debug {
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cfg.AppName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "zetacore\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion12,
	}
	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		EnabledExtensionCount:   0,
		PpEnabledExtensionNames: nil,
	}, nil, &instance)
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("device: CreateInstance failed: %w", err)
	}
	vk.InitInstance(instance)

	var devCount uint32
	vk.EnumeratePhysicalDevices(instance, &devCount, nil)
	if devCount == 0 {
		return nil, fmt.Errorf("device: no Vulkan-capable adapters found")
	}
	devices := make([]vk.PhysicalDevice, devCount)
	vk.EnumeratePhysicalDevices(instance, &devCount, devices)

	best := devices[0]
	bestScore := -1
	var bestProps vk.PhysicalDeviceProperties
	for _, pd := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		score := scoreDevice(props)
		if score > bestScore {
			bestScore = score
			best = pd
			bestProps = props
		}
	}

	gp := &GPU{
		Instance:         instance,
		PhysicalDevice:   best,
		Properties:       bestProps,
		DeviceExts:       cfg.DeviceExts,
		ValidationLayers: layers,
	}
	vk.GetPhysicalDeviceMemoryProperties(best, &gp.MemoryProperties)
	gp.MemoryProperties.Deref()
	gp.Name = vk.ToString(bestProps.DeviceName[:])
	if cfg.Debug {
		logx.PrintInfo("device: selected adapter ", gp.Name)
	}
	return gp, nil
}

// scoreDevice ranks adapters by device type only: a discrete GPU scores
// above an integrated one, which scores above any other type. Heap sizes
// are not compared; among equal scores the first adapter enumerated wins.
func scoreDevice(props vk.PhysicalDeviceProperties) int {
	score := 0
	if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
		score += 1000
	} else if props.DeviceType == vk.PhysicalDeviceTypeIntegratedGpu {
		score += 100
	}
	return score
}

// Release destroys the Vulkan instance. Call only after every Device
// created from this GPU has been destroyed.
func (gp *GPU) Release() {
	if gp.Instance == nil {
		return
	}
	vk.DestroyInstance(gp.Instance, nil)
	gp.Instance = nil
}

func checkResult(ret vk.Result) error {
	if ret != vk.Success {
		return fmt.Errorf("vulkan result %d", ret)
	}
	return nil
}

// LogLevel reports the slog level device-layer warnings should be logged
// at; device errors are recoverable (§7 kind 2) so they log at Warn unless
// they are about to abort, in which case callers use Error explicitly.
const LogLevel = slog.LevelWarn
