// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// halDriver runs WGSL kernels on a WebGPU HAL device.
type halDriver struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	fenceTimeout time.Duration
	devInfo      DeviceInfo
	pending      []halSubmission

	// deferred holds buffers released while submissions were in flight.
	deferred []hal.Buffer

	// waitFence is device.Wait unless replaced in tests.
	waitFence func(fence hal.Fence, value uint64, timeout time.Duration) (bool, error)

	// externalDevice is true when the device is borrowed; close leaves it alone.
	externalDevice bool
}

// halSubmission is an enqueued dispatch awaiting its fence.
type halSubmission struct {
	kernel string
	cmd    hal.CommandBuffer
	fence  hal.Fence
	bind   hal.BindGroup
	params hal.Buffer
}

// openHALDriver creates an instance for the requested backend and opens one
// adapter. A panic from the native loader is reported as ErrNoDevice.
func openHALDriver(o options) (drv driver, err error) {
	defer func() {
		if r := recover(); r != nil {
			drv = nil
			err = fmt.Errorf("%w: native backend panicked: %v", ErrNoDevice, r)
		}
	}()

	var instance hal.Instance
	switch o.backend {
	case BackendNoop:
		api := noop.API{}
		instance, err = api.CreateInstance(nil)
	default:
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoDevice)
		}
		instance, err = backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoDevice, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoDevice)
	}
	selected := selectAdapter(adapters, o.power)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrNoDevice, err)
	}

	d := newSharedHALDriver(openDev.Device, openDev.Queue, o)
	d.instance = instance
	d.externalDevice = false
	d.devInfo.Name = selected.Info.Name
	d.devInfo.DeviceType = fmt.Sprint(selected.Info.DeviceType)
	d.devInfo.Backend = o.backend
	return d, nil
}

// selectAdapter picks a GPU adapter by power preference, falling back to
// the first adapter.
func selectAdapter(adapters []hal.ExposedAdapter, power PowerPreference) *hal.ExposedAdapter {
	order := []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU}
	if power == PowerLow {
		order[0], order[1] = order[1], order[0]
	}
	for _, want := range order {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

func newSharedHALDriver(device hal.Device, queue hal.Queue, o options) *halDriver {
	limit := o.maxBufferSize
	if limit == 0 {
		limit = DefaultGPUMaxBufferSize
	}
	d := &halDriver{
		device:         device,
		queue:          queue,
		fenceTimeout:   o.fenceTimeout,
		externalDevice: true,
		devInfo: DeviceInfo{
			Name:          "shared",
			Backend:       o.backend,
			DeviceType:    "gpu",
			MaxBufferSize: limit,
		},
	}
	d.waitFence = d.device.Wait
	return d
}

func (d *halDriver) info() DeviceInfo { return d.devInfo }

type halBuffer struct {
	d   *halDriver
	buf hal.Buffer
}

// release destroys the buffer, or parks it until the queue drains when a
// submission that may reference it has not completed.
func (b *halBuffer) release() {
	if b.buf == nil {
		return
	}
	if len(b.d.pending) > 0 {
		b.d.deferred = append(b.d.deferred, b.buf)
	} else {
		b.d.device.DestroyBuffer(b.buf)
	}
	b.buf = nil
}

func (d *halDriver) allocate(label string, size uint64) (devBuffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &halBuffer{d: d, buf: buf}, nil
}

func (d *halDriver) write(b devBuffer, data []byte) error {
	d.queue.WriteBuffer(b.(*halBuffer).buf, 0, data)
	return nil
}

// read copies b into a mappable staging buffer on the queue, waits for the
// copy and reads the staging buffer back.
func (d *halDriver) read(b devBuffer, dst []byte) error {
	size := uint64(len(dst))
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return &DispatchError{Code: StatusOutOfMemory, Err: fmt.Errorf("create staging buffer: %w", err)}
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.(*halBuffer).buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.wait(fence, ""); err != nil {
		return err
	}
	if err := d.queue.ReadBuffer(staging, 0, dst); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	return nil
}

func (d *halDriver) wait(fence hal.Fence, kernel string) error {
	ok, err := d.waitFence(fence, 1, d.fenceTimeout)
	if err != nil {
		return &DispatchError{Kernel: kernel, Code: StatusDeviceLost, Err: err}
	}
	if !ok {
		return &DispatchError{Kernel: kernel, Code: StatusTimeout,
			Err: fmt.Errorf("no completion after %v", d.fenceTimeout)}
	}
	return nil
}

// halProgram is a compiled shader module.
type halProgram struct {
	d      *halDriver
	label  string
	module hal.ShaderModule
}

func (d *halDriver) compile(label, source string) (devProgram, error) {
	spirv, err := compileSPIRV(source)
	if err != nil {
		return nil, &BuildError{Label: label, Diagnostic: err.Error()}
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, &BuildError{Label: label, Diagnostic: err.Error()}
	}
	return &halProgram{d: d, label: label, module: module}, nil
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	if len(spirvBytes)%4 != 0 {
		return nil, errors.New("SPIR-V output is not word aligned")
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// compilerUnsupported reports whether err is the compiler rejecting a
// feature it does not implement rather than a fault in the source.
func compilerUnsupported(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported")
}

func (p *halProgram) release() {
	if p.module != nil {
		p.d.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// halKernel owns the layouts and pipeline of one entry point.
type halKernel struct {
	d          *halDriver
	name       string
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
	paramSize  uint64
}

// kernel builds a compute pipeline for entry. Buffer slots take bindings in
// slot order; scalars share one uniform block after the last buffer.
func (p *halProgram) kernel(entry string, sig []ArgKind) (devKernel, error) {
	device := p.d.device
	k := &halKernel{d: p.d, name: entry}

	var entries []gputypes.BindGroupLayoutEntry
	scalars := 0
	for _, kind := range sig {
		switch kind {
		case ArgInput, ArgOutput:
			bt := gputypes.BufferBindingTypeReadOnlyStorage
			if kind == ArgOutput {
				bt = gputypes.BufferBindingTypeStorage
			}
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    uint32(len(entries)), //nolint:gosec // binding count is small
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: bt},
			})
		case ArgUint:
			scalars++
		}
	}
	if scalars > 0 {
		k.paramSize = paramBlockSize(scalars)
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(len(entries)), //nolint:gosec // binding count is small
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}

	var err error
	k.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: entry + "_bind_layout", Entries: entries,
	})
	if err != nil {
		k.release()
		return nil, &BuildError{Label: p.label, Diagnostic: fmt.Sprintf("bind group layout for %s: %v", entry, err)}
	}
	k.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: entry + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		k.release()
		return nil, &BuildError{Label: p.label, Diagnostic: fmt.Sprintf("pipeline layout for %s: %v", entry, err)}
	}
	k.pipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: entry + "_pipeline", Layout: k.pipeLayout,
		Compute: hal.ComputeState{Module: p.module, EntryPoint: entry},
	})
	if err != nil {
		k.release()
		return nil, &BuildError{Label: p.label, Diagnostic: fmt.Sprintf("compute pipeline for %s: %v", entry, err)}
	}
	return k, nil
}

// paramBlockSize returns the uniform block size for n u32 scalars, padded
// to 16 bytes.
func paramBlockSize(n int) uint64 {
	return uint64((n*4 + 15) &^ 15) //nolint:gosec // n is small
}

func (k *halKernel) entry() string { return k.name }

func (k *halKernel) release() {
	device := k.d.device
	if k.pipeline != nil {
		device.DestroyComputePipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.pipeLayout != nil {
		device.DestroyPipelineLayout(k.pipeLayout)
		k.pipeLayout = nil
	}
	if k.bindLayout != nil {
		device.DestroyBindGroupLayout(k.bindLayout)
		k.bindLayout = nil
	}
}

func (d *halDriver) enqueue(dk devKernel, args []boundArg, x, y uint32) error {
	k := dk.(*halKernel)
	sub := halSubmission{kernel: k.name}
	ok := false
	defer func() {
		if !ok {
			d.releaseSubmission(&sub)
		}
	}()

	var (
		entries []gputypes.BindGroupEntry
		params  []byte
	)
	for _, a := range args {
		if a.kind.isBuffer() {
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  uint32(len(entries)), //nolint:gosec // binding count is small
				Resource: gputypes.BufferBinding{Buffer: a.buf.(*halBuffer).buf.NativeHandle(), Offset: 0, Size: a.size},
			})
			continue
		}
		params = binary.LittleEndian.AppendUint32(params, a.value)
	}
	if k.paramSize > 0 {
		block := make([]byte, k.paramSize)
		copy(block, params)
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: k.name + "_params", Size: k.paramSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return &DispatchError{Code: StatusOutOfMemory, Err: fmt.Errorf("create params buffer: %w", err)}
		}
		sub.params = buf
		d.queue.WriteBuffer(buf, 0, block)
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(len(entries)), //nolint:gosec // binding count is small
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: k.paramSize},
		})
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: k.name + "_bind", Layout: k.bindLayout, Entries: entries,
	})
	if err != nil {
		return &DispatchError{Code: StatusInvalidArgs, Err: fmt.Errorf("create bind group: %w", err)}
	}
	sub.bind = bg

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: k.name + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(k.name); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: k.name + "_pass"})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((x+WorkgroupSize-1)/WorkgroupSize, (y+WorkgroupSize-1)/WorkgroupSize, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	sub.cmd = cmdBuf

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	sub.fence = fence
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	d.pending = append(d.pending, sub)
	ok = true
	return nil
}

// finish waits for every pending submission in order and frees the
// resources of each completed one. On a failed wait the failed submission
// and everything after it stay pending: the device may still be using them.
func (d *halDriver) finish() error {
	for len(d.pending) > 0 {
		sub := &d.pending[0]
		if err := d.wait(sub.fence, sub.kernel); err != nil {
			slogger().Warn("compute: submissions left in flight",
				"kernel", sub.kernel, "pending", len(d.pending), "err", err)
			return err
		}
		d.releaseSubmission(sub)
		d.pending = d.pending[1:]
	}
	d.pending = nil
	for _, buf := range d.deferred {
		d.device.DestroyBuffer(buf)
	}
	d.deferred = nil
	return nil
}

func (d *halDriver) releaseSubmission(s *halSubmission) {
	if s.cmd != nil {
		d.device.FreeCommandBuffer(s.cmd)
	}
	if s.fence != nil {
		d.device.DestroyFence(s.fence)
	}
	if s.bind != nil {
		d.device.DestroyBindGroup(s.bind)
	}
	if s.params != nil {
		d.device.DestroyBuffer(s.params)
	}
}

// close drops submissions that never completed without freeing their
// resources; destroying them under a running device is unsafe.
func (d *halDriver) close() {
	if len(d.pending) > 0 {
		slogger().Warn("compute: closing with unfinished submissions", "pending", len(d.pending))
	} else {
		for _, buf := range d.deferred {
			d.device.DestroyBuffer(buf)
		}
	}
	d.pending = nil
	d.deferred = nil
	if d.externalDevice {
		d.device = nil
		d.queue = nil
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}
