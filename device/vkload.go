// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build (linux && cgo) || (darwin && cgo) || (freebsd && cgo)

package device

// #cgo LDFLAGS: -ldl
// #include <stdlib.h>
// #include <dlfcn.h>
import "C"
import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// vulkanLoaded is set once the Vulkan loader has resolved
// vkGetInstanceProcAddr, so repeated NewGPU calls (tests constructing
// multiple devices) don't re-dlopen the driver.
var vulkanLoaded = false

// loadVulkan loads the platform Vulkan loader without depending on glfw,
// matching the teacher's no-window-toolkit loading path: this engine never
// needs a window surface (§6 "swap-chain" is an out-of-scope OS collaborator),
// so there is no reason to link a windowing library just to resolve Vulkan
// entry points.
func loadVulkan() error {
	if vulkanLoaded {
		return nil
	}
	clibnm := C.CString(dlName)
	defer C.free(unsafe.Pointer(clibnm))
	handle := C.dlopen(clibnm, C.RTLD_LAZY)
	if handle == nil {
		return fmt.Errorf("device: Vulkan library %q not found", dlName)
	}
	cpAddr := C.CString("vkGetInstanceProcAddr")
	defer C.free(unsafe.Pointer(cpAddr))
	pAddr := C.dlsym(handle, cpAddr)
	if pAddr == nil {
		return fmt.Errorf("device: vkGetInstanceProcAddr not found")
	}
	vk.SetGetInstanceProcAddr(pAddr)
	vulkanLoaded = true
	return nil
}
