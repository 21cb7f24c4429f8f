// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

// driver is a device backend. Every call is made with Context.mu held.
type driver interface {
	info() DeviceInfo

	allocate(label string, size uint64) (devBuffer, error)
	write(b devBuffer, data []byte) error
	read(b devBuffer, dst []byte) error

	compile(label, source string) (devProgram, error)
	enqueue(k devKernel, args []boundArg, x, y uint32) error
	finish() error

	close()
}

// devBuffer is a driver-owned device buffer.
type devBuffer interface {
	release()
}

// devProgram is a driver-owned compiled program.
type devProgram interface {
	kernel(entry string, sig []ArgKind) (devKernel, error)
	release()
}

// devKernel is a driver-owned kernel bound to one entry point.
type devKernel interface {
	entry() string
	release()
}

// boundArg is one resolved kernel argument at dispatch time.
type boundArg struct {
	kind  ArgKind
	buf   devBuffer
	size  uint64
	value uint32
}
