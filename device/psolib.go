// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/base/logx"
)

// PSOCacheDirName is the directory, relative to a caller-chosen root,
// that PSOLibrary reads and writes its cache file under (§6 "Persisted
// state": "a pipeline-state-object library cache file per build
// configuration under a PSO-cache directory").
const PSOCacheDirName = "psocache"

// PSOLibrary wraps a single Vulkan pipeline cache, persisted to disk
// between runs. It is the Vulkan analogue of the original engine's
// ID3D12PipelineLibrary: vk.PipelineCache is already keyed internally by
// a vendor/device/driver UUID header it embeds in its serialized form, so
// unlike the D3D12 version this package does not need to separately
// encode a version tag — vkCreatePipelineCache itself rejects a blob
// whose header doesn't match the current device and falls back to an
// empty cache, matching §6's "mismatch on load ... triggers a full
// rebuild" without extra bookkeeping. Grounded on
// original_source/Source/ZetaCore/Core/PipelineStateLibrary.{h,cpp}'s
// Init/ResetToEmptyPsoLib/ClearAndFlushToDisk lifecycle.
type PSOLibrary struct {
	dev  vk.Device
	path string

	Cache vk.PipelineCache
}

// OpenPSOLibrary loads dir/name.cache if present and valid for dev's
// adapter, or starts an empty cache otherwise. name should identify the
// build configuration (e.g. "debug" or "release") so different
// configurations never share a cache file.
func OpenPSOLibrary(d *Device, dir, name string) (*PSOLibrary, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("device: psolib: mkdir %s: %w", dir, err)
	}
	path := psoCachePath(dir, name)

	initial, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("device: psolib: read %s: %w", path, err)
		}
		initial = nil
	}

	lib := &PSOLibrary{dev: d.Device, path: path}
	if err := lib.create(initial); err != nil {
		return nil, err
	}
	if initial == nil {
		logx.PrintInfo("device: psolib: no cache at ", path, ", starting empty")
	}
	return lib, nil
}

// psoCachePath returns the on-disk path for a build configuration's cache
// file, named so distinct configurations (debug/release) never collide.
func psoCachePath(dir, name string) string {
	return filepath.Join(dir, name+".cache")
}

// create installs a fresh vk.PipelineCache seeded with initial (nil or
// empty for an empty cache). vkCreatePipelineCache never fails on a
// corrupt or mismatched blob; it silently discards it and returns an
// empty cache, which is the device-error "recover when defined" path §7
// describes for PSO-library mismatch.
func (l *PSOLibrary) create(initial []byte) error {
	info := vk.PipelineCacheCreateInfo{
		SType:           vk.StructureTypePipelineCacheCreateInfo,
		InitialDataSize: uint(len(initial)),
	}
	if len(initial) > 0 {
		info.PInitialData = unsafe.Pointer(&initial[0])
	}
	var cache vk.PipelineCache
	ret := vk.CreatePipelineCache(l.dev, &info, nil, &cache)
	if err := checkResult(ret); err != nil {
		return fmt.Errorf("device: psolib: CreatePipelineCache: %w", err)
	}
	l.Cache = cache
	return nil
}

// Flush serializes the cache and writes it to disk, overwriting whatever
// was there. Call once at shutdown (mirrors ClearAndFlushToDisk's final
// Serialize+WriteToFile, without the original's "skip if already on
// disk" guard — Vulkan's GetPipelineCacheData is cheap to call every
// time and always reflects every PSO compiled against this cache so far).
func (l *PSOLibrary) Flush() error {
	var size uint
	ret := vk.GetPipelineCacheData(l.dev, l.Cache, &size, nil)
	if err := checkResult(ret); err != nil {
		return fmt.Errorf("device: psolib: GetPipelineCacheData(size): %w", err)
	}
	if size == 0 {
		return nil
	}
	data := make([]byte, size)
	ret = vk.GetPipelineCacheData(l.dev, l.Cache, &size, unsafe.Pointer(&data[0]))
	if err := checkResult(ret); err != nil {
		return fmt.Errorf("device: psolib: GetPipelineCacheData: %w", err)
	}
	if err := os.WriteFile(l.path, data[:size], 0o644); err != nil {
		return fmt.Errorf("device: psolib: write %s: %w", l.path, err)
	}
	return nil
}

// Reset discards the in-memory cache and the on-disk file, starting over
// empty. Used when a caller has detected a compiled PSO no longer matches
// what's cached (shader hot-reload; out of this package's scope but the
// hook original engine's Reset exposes for it).
func (l *PSOLibrary) Reset() error {
	if l.Cache != nil {
		vk.DestroyPipelineCache(l.dev, l.Cache, nil)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("device: psolib: remove %s: %w", l.path, err)
	}
	return l.create(nil)
}

// Destroy flushes the cache to disk and releases the Vulkan object. Errors
// flushing are logged, not returned, matching the engine's shutdown-path
// policy of never failing teardown on a best-effort persistence step.
func (l *PSOLibrary) Destroy() {
	if err := l.Flush(); err != nil {
		logx.PrintWarn("device: psolib: flush on destroy: ", err)
	}
	if l.Cache != nil {
		vk.DestroyPipelineCache(l.dev, l.Cache, nil)
		l.Cache = nil
	}
}
