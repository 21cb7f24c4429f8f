// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrNoDevice is returned when no compute device can be opened.
	// It is terminal; callers should not retry.
	ErrNoDevice = errors.New("compute: no compute device available")

	// ErrInvalidArgument is returned for malformed calls, such as an unknown
	// argument slot or a value of the wrong kind for a slot.
	ErrInvalidArgument = errors.New("compute: invalid argument")

	// ErrClosed is returned when a released object or closed context is used.
	ErrClosed = errors.New("compute: use of closed resource")
)

// Status is a device status code carried by allocation and dispatch errors.
type Status int

// Device status codes.
const (
	StatusUnknown Status = iota
	StatusOutOfMemory
	StatusBufferTooLarge
	StatusInvalidBufferSize
	StatusInvalidArgs
	StatusInvalidWorkSize
	StatusSubmitFailed
	StatusTimeout
	StatusReadbackFailed
	StatusKernelFault
	StatusDeviceLost
)

var statusNames = [...]string{
	StatusUnknown:           "unknown",
	StatusOutOfMemory:       "out of memory",
	StatusBufferTooLarge:    "buffer too large",
	StatusInvalidBufferSize: "invalid buffer size",
	StatusInvalidArgs:       "invalid kernel arguments",
	StatusInvalidWorkSize:   "invalid work size",
	StatusSubmitFailed:      "submit failed",
	StatusTimeout:           "timeout",
	StatusReadbackFailed:    "readback failed",
	StatusKernelFault:       "kernel fault",
	StatusDeviceLost:        "device lost",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// BuildError reports a kernel program that failed to compile.
// Diagnostic holds the compiler output verbatim.
type BuildError struct {
	Label      string
	Diagnostic string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("compute: build %q failed: %s", e.Label, e.Diagnostic)
}

// KernelNotFoundError reports a missing entry point in a compiled program.
type KernelNotFoundError struct {
	Entry     string
	Available []string
}

func (e *KernelNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("compute: kernel %q not found", e.Entry)
	}
	return fmt.Sprintf("compute: kernel %q not found (available: %s)",
		e.Entry, strings.Join(e.Available, ", "))
}

// DeviceAllocationError reports a device buffer that could not be created.
type DeviceAllocationError struct {
	Label string
	Size  uint64
	Code  Status
	Err   error
}

func (e *DeviceAllocationError) Error() string {
	msg := fmt.Sprintf("compute: allocate %q (%d bytes): %s", e.Label, e.Size, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceAllocationError) Unwrap() error { return e.Err }

// DispatchError reports a failure while binding, enqueueing, executing or
// reading back a kernel.
type DispatchError struct {
	Kernel string
	Code   Status
	Err    error
}

func (e *DispatchError) Error() string {
	msg := "compute: dispatch"
	if e.Kernel != "" {
		msg += " " + e.Kernel
	}
	msg += ": " + e.Code.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error { return e.Err }

// IsStatus reports whether err carries the given device status code.
func IsStatus(err error, code Status) bool {
	var ae *DeviceAllocationError
	if errors.As(err, &ae) && ae.Code == code {
		return true
	}
	var de *DispatchError
	return errors.As(err, &de) && de.Code == code
}
