// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rgassert is the engine's programmer-error assertion: it logs at
// error level and panics, standing in for the original's Assert/Check
// macros (grounded on original_source/ZetaCore/Support/ThreadPool.cpp and
// Core/RenderGraph.cpp, both of which wrap every invariant violation in an
// Assert/Check that logs before crashing). §7 classifies this as kind 1,
// "Programmer errors": "Fail loudly with a message that identifies the
// offender; in debug builds break into debugger, in release builds
// abort." Go has no debugger break; main recovers the resulting panic
// once at the top and turns it into the process's non-zero exit code,
// which is this engine's equivalent of "abort" (§6 "Exit code 0 on clean
// shutdown, non-zero on fatal error").
package rgassert

import (
	"fmt"

	"zetacore.dev/engine/base/logx"
)

// Assert panics with msg (formatted with args, in the style of
// fmt.Sprintf) if cond is false, after logging it at error level.
func Assert(cond bool, msg string, args ...any) {
	if cond {
		return
	}
	formatted := fmt.Sprintf(msg, args...)
	logx.PrintError(formatted)
	panic(formatted)
}

// Check panics if err is non-nil, after logging it at error level with
// context. Grounded on the original's CheckHR/CheckWin32 pattern of
// wrapping every fallible driver call.
func Check(err error, context string) {
	if err == nil {
		return
	}
	formatted := fmt.Sprintf("%s: %v", context, err)
	logx.PrintError(formatted)
	panic(formatted)
}
