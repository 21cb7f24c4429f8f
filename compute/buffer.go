// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"fmt"
)

// Access is the device-side access mode of a buffer.
type Access int

const (
	// ReadOnly buffers are only read by kernels.
	ReadOnly Access = iota
	// WriteOnly buffers are only written by kernels.
	WriteOnly
	// ReadWrite buffers are read and written by kernels.
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	}
	return fmt.Sprintf("Access(%d)", int(a))
}

// MemoryStats counts device buffers created through a Context.
type MemoryStats struct {
	// Allocations is the total number of buffers created.
	Allocations int
	// Releases is the total number of buffers released.
	Releases int
	// ActiveBuffers is Allocations minus Releases.
	ActiveBuffers int
	// ActiveBytes is the size of all live buffers.
	ActiveBytes uint64
	// PeakBytes is the highest ActiveBytes observed.
	PeakBytes uint64
}

func (s MemoryStats) String() string {
	return fmt.Sprintf("Buffers[%d live, %d bytes, peak %d bytes, %d allocs, %d releases]",
		s.ActiveBuffers, s.ActiveBytes, s.PeakBytes, s.Allocations, s.Releases)
}

// Device allocates buffers on a Context's device.
type Device struct {
	ctx *Context
}

// CreateBuffer allocates a device buffer of size bytes. size must be a
// non-zero multiple of 4. Failures are reported as *DeviceAllocationError.
func (d *Device) CreateBuffer(label string, size uint64, access Access) (*Buffer, error) {
	c := d.ctx
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if size == 0 || size%4 != 0 {
		return nil, &DeviceAllocationError{Label: label, Size: size, Code: StatusInvalidBufferSize}
	}
	if limit := c.drv.info().MaxBufferSize; limit > 0 && size > limit {
		return nil, &DeviceAllocationError{
			Label: label, Size: size, Code: StatusBufferTooLarge,
			Err: fmt.Errorf("limit is %d bytes", limit),
		}
	}

	impl, err := c.drv.allocate(label, size)
	if err != nil {
		return nil, &DeviceAllocationError{Label: label, Size: size, Code: StatusOutOfMemory, Err: err}
	}

	c.stats.Allocations++
	c.stats.ActiveBuffers++
	c.stats.ActiveBytes += size
	c.stats.PeakBytes = max(c.stats.PeakBytes, c.stats.ActiveBytes)
	slogger().Debug("compute: buffer allocated", "label", label, "size", size, "access", access)

	return &Buffer{ctx: c, label: label, size: size, access: access, impl: impl}, nil
}

// Info describes the device.
func (d *Device) Info() DeviceInfo { return d.ctx.Info() }

// Buffer is a device memory region. A Buffer must not be released while
// enqueued work still references it.
type Buffer struct {
	ctx    *Context
	label  string
	size   uint64
	access Access
	impl   devBuffer
}

// Label returns the debug label given at creation.
func (b *Buffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Access returns the device-side access mode.
func (b *Buffer) Access() Access { return b.access }

// Release frees the device memory. Release is idempotent and safe on nil.
func (b *Buffer) Release() {
	if b == nil || b.impl == nil {
		return
	}
	c := b.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		b.impl.release()
	}
	b.impl = nil
	c.stats.Releases++
	c.stats.ActiveBuffers--
	c.stats.ActiveBytes -= b.size
}
