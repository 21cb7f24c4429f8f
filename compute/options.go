// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"fmt"
	"strings"
	"time"
)

// Backend selects which kind of device a Context opens.
type Backend int

const (
	// BackendAuto opens a GPU adapter through the platform's preferred HAL
	// backend. Vulkan is the only GPU backend linked in, so Auto currently
	// resolves to it. It never falls back to host execution.
	BackendAuto Backend = iota

	// BackendVulkan opens a GPU adapter through the Vulkan HAL backend only.
	BackendVulkan

	// BackendHost runs kernels on a goroutine worker pool using registered
	// host kernel implementations.
	BackendHost

	// BackendNoop opens the WebGPU no-op HAL device. Dispatches are accepted
	// and nothing executes; useful for dry runs.
	BackendNoop
)

var backendNames = map[Backend]string{
	BackendAuto:   "auto",
	BackendVulkan: "vulkan",
	BackendHost:   "host",
	BackendNoop:   "noop",
}

func (b Backend) String() string {
	if s, ok := backendNames[b]; ok {
		return s
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend converts a backend name (as printed by String) to a Backend.
func ParseBackend(s string) (Backend, error) {
	for b, name := range backendNames {
		if strings.EqualFold(s, name) {
			return b, nil
		}
	}
	return BackendAuto, fmt.Errorf("%w: unknown backend %q", ErrInvalidArgument, s)
}

// PowerPreference orders GPU adapters during selection.
type PowerPreference int

const (
	// PowerHighPerformance prefers discrete GPUs, then integrated GPUs.
	PowerHighPerformance PowerPreference = iota

	// PowerLow prefers integrated GPUs, then discrete GPUs.
	PowerLow
)

// Defaults.
const (
	// DefaultFenceTimeout bounds a single wait on the GPU queue.
	DefaultFenceTimeout = 30 * time.Second

	// DefaultGPUMaxBufferSize is the default per-buffer limit on GPU devices.
	DefaultGPUMaxBufferSize = 128 << 20

	// DefaultHostMaxBufferSize is the default per-buffer limit on the host device.
	DefaultHostMaxBufferSize = 1 << 30
)

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := compute.New(
//	    compute.WithBackend(compute.BackendHost),
//	    compute.WithWorkers(4),
//	)
type Option func(*options)

type options struct {
	backend       Backend
	power         PowerPreference
	fenceTimeout  time.Duration
	maxBufferSize uint64
	workers       int
}

func defaultOptions() options {
	return options{
		backend:      BackendAuto,
		power:        PowerHighPerformance,
		fenceTimeout: DefaultFenceTimeout,
	}
}

// WithBackend selects the device backend. The default is BackendAuto.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithPowerPreference orders GPU adapters during selection.
func WithPowerPreference(p PowerPreference) Option {
	return func(o *options) {
		o.power = p
	}
}

// WithFenceTimeout bounds each wait on the GPU queue. Non-positive values
// keep the default.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithMaxBufferSize caps the size in bytes of any single device buffer.
// Zero keeps the backend default.
func WithMaxBufferSize(n uint64) Option {
	return func(o *options) {
		o.maxBufferSize = n
	}
}

// WithWorkers sets the worker count of the host backend.
// If n is 0 or negative, GOMAXPROCS is used.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}
