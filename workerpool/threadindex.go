// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workerpool

// ThreadIndex identifies one of the pool's dedicated worker goroutines, in
// [0, NumWorkers); a task that Pool.TryFlush runs inline on the calling
// goroutine receives -1 instead. It is the Go-idiomatic replacement for the original's
// OS-thread-id table plus SIMD equality scan: rather than rediscovering a
// worker's identity from its OS thread id after the fact, each persistent
// worker goroutine is simply assigned its slot index at spawn time and
// passes it straight through to the task it is running, a wait-free
// lookup by construction. Consumers (gpumemory's per-thread upload rings)
// index by this value exactly as the original indexes by thread slot.
type ThreadIndex int
