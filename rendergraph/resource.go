// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rendergraph

import (
	"sort"

	"zetacore.dev/engine/base/ordmap"
)

// MaxProducers bounds the number of producers recorded per resource per
// frame (§3 invariant "Producer-count per Resource <= 5").
const MaxProducers = 5

// invalidHandle mirrors RenderNodeHandle's default -1 "not registered".
const invalidHandle = -1

// Resource is a GPU resource with stable identity across frames (§3
// "Entity: Resource"). State persists across frames; Producers is reset
// every BeginFrame.
type Resource struct {
	ID                   uint64
	Handle               uint64 // opaque device handle (vk.Buffer/vk.Image as uintptr)
	State                State
	IsWindowSizeDependent bool

	Producers    [MaxProducers]int
	numProducers int
}

func newResource(id, handle uint64, state State, windowSizeDependent bool) *Resource {
	r := &Resource{ID: id, Handle: handle, State: state, IsWindowSizeDependent: windowSizeDependent}
	r.resetProducers()
	return r
}

func (r *Resource) resetProducers() {
	for i := range r.Producers {
		r.Producers[i] = invalidHandle
	}
	r.numProducers = 0
}

// addProducer appends node to r's producer list for this frame, if room
// remains. Callers only call this from AddOutput, which validates the
// producer count invariant.
func (r *Resource) addProducer(node int) {
	if r.numProducers >= MaxProducers {
		return
	}
	r.Producers[r.numProducers] = node
	r.numProducers++
}

// producers returns the live producer handles recorded this frame.
func (r *Resource) producers() []int {
	return r.Producers[:r.numProducers]
}

// resourceTable is the frame-resource registry: an insertion-ordered map
// during registration (lookups by path ID must work before any sort
// exists), converted to a path-ID-sorted slice at MoveToPostRegister for
// FindFrameResource's binary search. Built on ordmap.Map, the same
// insertion-ordered-plus-lookup structure the teacher uses throughout its
// own registries.
type resourceTable struct {
	byID   *ordmap.Map[uint64, *Resource]
	sorted []*Resource
}

func newResourceTable() *resourceTable {
	return &resourceTable{byID: ordmap.New[uint64, *Resource]()}
}

// register either updates the existing entry (preserving its state
// unless the device handle changed) or appends a new one (§4.4.1
// RegisterResource).
func (t *resourceTable) register(id, handle uint64, state State, windowSizeDependent bool) *Resource {
	if existing, ok := t.byID.ValueByKeyTry(id); ok {
		if existing.Handle != handle {
			existing.Handle = handle
			existing.State = state
		}
		existing.IsWindowSizeDependent = windowSizeDependent
		return existing
	}
	r := newResource(id, handle, state, windowSizeDependent)
	t.byID.Add(id, r)
	return r
}

func (t *resourceTable) remove(id uint64) {
	t.byID.DeleteKey(id)
}

// beginFrame clears every resource's producer list without touching
// State (§4.4.1 "clears per-frame arrays and the producer tables on each
// resource (state is not cleared)").
func (t *resourceTable) beginFrame() {
	for _, kv := range t.byID.Order {
		kv.Value.resetProducers()
	}
	t.sorted = nil
}

// moveToPostRegister sorts the frame-resource array by path ID so
// subsequent lookups are binary searches (§4.4.1).
func (t *resourceTable) moveToPostRegister() {
	t.sorted = make([]*Resource, 0, t.byID.Len())
	for _, kv := range t.byID.Order {
		t.sorted = append(t.sorted, kv.Value)
	}
	sort.Slice(t.sorted, func(i, j int) bool { return t.sorted[i].ID < t.sorted[j].ID })
}

// find performs FindFrameResource's binary search over the sorted array.
// Valid only after moveToPostRegister.
func (t *resourceTable) find(id uint64) (*Resource, bool) {
	i := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i].ID >= id })
	if i < len(t.sorted) && t.sorted[i].ID == id {
		return t.sorted[i], true
	}
	return nil, false
}
