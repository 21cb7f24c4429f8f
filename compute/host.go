// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/gogpu/gpuimage/internal/parallel"
)

// hostDriver executes kernels on a goroutine worker pool. Each dispatch is
// split into row bands; the queue runs dispatches one after another.
type hostDriver struct {
	pool    *parallel.WorkerPool
	devInfo DeviceInfo
	pending []hostDispatch
}

type hostDispatch struct {
	kernel *hostKernel
	args   HostArgs
	x, y   uint32
}

func newHostDriver(o options) *hostDriver {
	pool := parallel.NewWorkerPool(o.workers)
	limit := o.maxBufferSize
	if limit == 0 {
		limit = DefaultHostMaxBufferSize
	}
	return &hostDriver{
		pool: pool,
		devInfo: DeviceInfo{
			Name:          fmt.Sprintf("host (%s/%s)", runtime.GOOS, runtime.GOARCH),
			Backend:       BackendHost,
			DeviceType:    "cpu",
			Driver:        runtime.Version(),
			MaxBufferSize: limit,
			Workers:       pool.Workers(),
			CPUFeatures:   cpuFeatures(),
		},
	}
}

// cpuFeatures lists the SIMD extensions reported by the CPU.
func cpuFeatures() []string {
	var feats []string
	add := func(ok bool, name string) {
		if ok {
			feats = append(feats, name)
		}
	}
	add(cpu.X86.HasSSE41, "sse4.1")
	add(cpu.X86.HasAVX, "avx")
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasFMA, "fma")
	add(cpu.X86.HasAVX512, "avx512")
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasSVE, "sve")
	return feats
}

func (d *hostDriver) info() DeviceInfo { return d.devInfo }

type hostBuffer struct {
	words []uint32
}

func (b *hostBuffer) release() { b.words = nil }

func (d *hostDriver) allocate(_ string, size uint64) (devBuffer, error) {
	return &hostBuffer{words: make([]uint32, size/4)}, nil
}

func (d *hostDriver) write(b devBuffer, data []byte) error {
	if err := d.finish(); err != nil {
		return err
	}
	words := b.(*hostBuffer).words
	for i := range len(data) / 4 {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return nil
}

func (d *hostDriver) read(b devBuffer, dst []byte) error {
	if err := d.finish(); err != nil {
		return err
	}
	words := b.(*hostBuffer).words
	for i := range len(dst) / 4 {
		binary.LittleEndian.PutUint32(dst[i*4:], words[i])
	}
	return nil
}

// hostProgram has no device representation; kernels resolve against the
// host kernel registry.
type hostProgram struct{}

// compile validates source with the WGSL compiler and discards the output.
// Features the compiler has not implemented yet are not source errors and
// only get logged.
func (d *hostDriver) compile(label, source string) (devProgram, error) {
	if _, err := compileSPIRV(source); err != nil {
		if !compilerUnsupported(err) {
			return nil, &BuildError{Label: label, Diagnostic: err.Error()}
		}
		slogger().Debug("compute: host build skipped unsupported feature", "label", label, "err", err)
	}
	return hostProgram{}, nil
}

func (hostProgram) release() {}

func (hostProgram) kernel(entry string, sig []ArgKind) (devKernel, error) {
	fn, ok := hostKernels.Get(entry)
	if !ok {
		return nil, &KernelNotFoundError{Entry: entry, Available: hostKernels.List()}
	}
	return &hostKernel{name: entry, fn: fn, sig: sig}, nil
}

type hostKernel struct {
	name string
	fn   HostKernel
	sig  []ArgKind
}

func (k *hostKernel) entry() string { return k.name }
func (k *hostKernel) release()      { k.fn = nil }

func (d *hostDriver) enqueue(k devKernel, args []boundArg, x, y uint32) error {
	hk := k.(*hostKernel)
	ha := HostArgs{
		words:  make([][]uint32, len(args)),
		values: make([]uint32, len(args)),
	}
	for i, a := range args {
		if a.kind.isBuffer() {
			ha.words[i] = a.buf.(*hostBuffer).words
		} else {
			ha.values[i] = a.value
		}
	}
	d.pending = append(d.pending, hostDispatch{kernel: hk, args: ha, x: x, y: y})
	return nil
}

// finish runs pending dispatches in FIFO order. The first failure drops the
// rest of the queue.
func (d *hostDriver) finish() error {
	pending := d.pending
	d.pending = nil
	for i := range pending {
		if err := d.run(&pending[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *hostDriver) run(p *hostDispatch) error {
	var (
		faultOnce sync.Once
		fault     any
	)
	fn := p.kernel.fn
	width := p.x
	bands := parallel.Bands(int(p.y), d.pool.Workers()*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			defer func() {
				if r := recover(); r != nil {
					faultOnce.Do(func() { fault = r })
				}
			}()
			for y := uint32(b.Y0); y < uint32(b.Y1); y++ { //nolint:gosec // band rows fit uint32
				for x := range width {
					fn(x, y, &p.args)
				}
			}
		}
	}
	if !d.pool.ExecuteAll(work) {
		return &DispatchError{Kernel: p.kernel.name, Code: StatusDeviceLost, Err: ErrClosed}
	}
	if fault != nil {
		return &DispatchError{Kernel: p.kernel.name, Code: StatusKernelFault, Err: fmt.Errorf("panic: %v", fault)}
	}
	return nil
}

func (d *hostDriver) close() {
	d.pending = nil
	d.pool.Close()
}
