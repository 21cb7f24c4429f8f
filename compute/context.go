// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// DeviceInfo describes the device a Context opened.
type DeviceInfo struct {
	Name          string
	Backend       Backend
	DeviceType    string
	Driver        string
	MaxBufferSize uint64
	Workers       int
	CPUFeatures   []string
}

// Context owns one compute device and its single in-order queue.
//
// Processors borrow a Context and never own it. Close must be called after
// every program and buffer created from the Context has been released.
//
// A Context serializes all device calls, so concurrent use cannot corrupt
// its state. It does not order work between goroutines: binding a Kernel's
// arguments and enqueuing it are separate calls, so a Kernel must be driven
// by one goroutine at a time.
type Context struct {
	mu     sync.Mutex
	drv    driver
	dev    Device
	queue  Queue
	stats  MemoryStats
	closed bool
}

// New opens a compute device according to opts.
//
// New returns ErrNoDevice when the selected backend has no usable adapter.
// BackendAuto never falls back to host execution.
func New(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var (
		drv driver
		err error
	)
	switch o.backend {
	case BackendHost:
		drv = newHostDriver(o)
	case BackendAuto, BackendVulkan, BackendNoop:
		drv, err = openHALDriver(o)
	default:
		return nil, fmt.Errorf("%w: unknown backend %v", ErrInvalidArgument, o.backend)
	}
	if err != nil {
		return nil, err
	}

	c := newContext(drv)
	info := drv.info()
	slogger().Info("compute: device opened",
		"backend", info.Backend, "name", info.Name, "type", info.DeviceType)
	return c, nil
}

// FromProvider wraps a device shared by a host application. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue. Close does not destroy the borrowed device.
func FromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrInvalidArgument)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrInvalidArgument)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrInvalidArgument)
	}
	return NewFromHAL(device, queue, opts...), nil
}

// NewFromHAL wraps an already opened HAL device and queue. The caller keeps
// ownership of both.
func NewFromHAL(device hal.Device, queue hal.Queue, opts ...Option) *Context {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newContext(newSharedHALDriver(device, queue, o))
}

func newContext(drv driver) *Context {
	c := &Context{drv: drv}
	c.dev.ctx = c
	c.queue.ctx = c
	return c
}

// Device returns the context's device. The result is borrowed.
func (c *Context) Device() *Device { return &c.dev }

// Queue returns the context's in-order queue. The result is borrowed.
func (c *Context) Queue() *Queue { return &c.queue }

// Info describes the opened device.
func (c *Context) Info() DeviceInfo { return c.drv.info() }

// Stats returns a snapshot of device buffer accounting.
func (c *Context) Stats() MemoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close drains the queue and releases the device. Close is idempotent.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.drv.finish(); err != nil {
		slogger().Warn("compute: drain on close failed", "err", err)
	}
	if c.stats.ActiveBuffers > 0 {
		slogger().Warn("compute: closing with live buffers", "buffers", c.stats.ActiveBuffers)
	}
	c.drv.close()
	c.closed = true
	slogger().Info("compute: context closed")
}

// lock acquires the context mutex and fails if the context is closed.
func (c *Context) lock() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	return nil
}
