// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"slices"
	"sync"
)

// HostKernel is the host implementation of one kernel entry point.
// It is called once per work-item (x, y), concurrently for distinct items.
type HostKernel func(x, y uint32, args *HostArgs)

// HostArgs gives a host kernel access to its bound arguments by slot.
type HostArgs struct {
	words  [][]uint32
	values []uint32
}

// Buffer returns the 32-bit words of the buffer bound at slot.
// It returns nil if the slot is not a buffer.
func (a *HostArgs) Buffer(slot int) []uint32 { return a.words[slot] }

// Uint returns the u32 bound at slot.
func (a *HostArgs) Uint(slot int) uint32 { return a.values[slot] }

// HostKernelRegistry maps entry point names to host implementations.
//
// Kernel packages register their host implementations during init so that
// the host backend can run the same programs as a GPU:
//
//	func init() {
//	    compute.RegisterHostKernel("grayscale", grayscaleHost)
//	}
type HostKernelRegistry struct {
	mu      sync.RWMutex
	entries map[string]HostKernel
}

var hostKernels = &HostKernelRegistry{}

// RegisterHostKernel adds a host implementation to the global registry.
// Registering an existing name replaces the previous implementation.
func RegisterHostKernel(entry string, fn HostKernel) {
	hostKernels.Register(entry, fn)
}

// UnregisterHostKernel removes an entry from the global registry.
func UnregisterHostKernel(entry string) {
	hostKernels.Unregister(entry)
}

// HostKernels returns the registered entry point names, sorted.
func HostKernels() []string {
	return hostKernels.List()
}

// Register adds or replaces an implementation.
func (r *HostKernelRegistry) Register(entry string, fn HostKernel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]HostKernel)
	}
	r.entries[entry] = fn
}

// Unregister removes an implementation.
func (r *HostKernelRegistry) Unregister(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, entry)
}

// Get returns the implementation registered for entry.
func (r *HostKernelRegistry) Get(entry string) (HostKernel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.entries[entry]
	return fn, ok && fn != nil
}

// List returns the registered names, sorted.
func (r *HostKernelRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
