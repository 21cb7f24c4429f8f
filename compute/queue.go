// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"errors"
	"fmt"
)

// Queue is the in-order command queue of a Context. Work runs in the order
// it was enqueued; Finish blocks until all of it has completed.
type Queue struct {
	ctx *Context
}

// WriteBuffer copies data into the start of b. data must fit in b.
func (q *Queue) WriteBuffer(b *Buffer, data []byte) error {
	c := q.ctx
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if b == nil || b.impl == nil {
		return fmt.Errorf("%w: write to released buffer", ErrInvalidArgument)
	}
	if uint64(len(data)) > b.size {
		return fmt.Errorf("%w: write of %d bytes into %q (%d bytes)", ErrInvalidArgument, len(data), b.label, b.size)
	}
	if len(data)%4 != 0 {
		return fmt.Errorf("%w: write size %d is not a multiple of 4", ErrInvalidArgument, len(data))
	}
	if err := c.drv.write(b.impl, data); err != nil {
		return &DispatchError{Code: StatusSubmitFailed, Err: fmt.Errorf("write %q: %w", b.label, err)}
	}
	return nil
}

// ReadBuffer copies the start of b into dst. It is ordered after all work
// enqueued before it; call Finish first to observe kernel failures.
func (q *Queue) ReadBuffer(b *Buffer, dst []byte) error {
	c := q.ctx
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if b == nil || b.impl == nil {
		return fmt.Errorf("%w: read from released buffer", ErrInvalidArgument)
	}
	if uint64(len(dst)) > b.size {
		return fmt.Errorf("%w: read of %d bytes from %q (%d bytes)", ErrInvalidArgument, len(dst), b.label, b.size)
	}
	if len(dst)%4 != 0 {
		return fmt.Errorf("%w: read size %d is not a multiple of 4", ErrInvalidArgument, len(dst))
	}
	if err := c.drv.read(b.impl, dst); err != nil {
		return asDispatchError("", StatusReadbackFailed, fmt.Errorf("read %q: %w", b.label, err))
	}
	return nil
}

// Enqueue schedules k over a 2D iteration space of exactly x by y
// work-items. Every argument slot must be set.
func (q *Queue) Enqueue(k *Kernel, x, y uint32) error {
	c := q.ctx
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if k == nil || k.impl == nil {
		return fmt.Errorf("%w: enqueue of released kernel", ErrInvalidArgument)
	}
	if x == 0 || y == 0 {
		return &DispatchError{Kernel: k.name, Code: StatusInvalidWorkSize,
			Err: fmt.Errorf("work size %dx%d", x, y)}
	}
	args, err := k.bound()
	if err != nil {
		return &DispatchError{Kernel: k.name, Code: StatusInvalidArgs, Err: err}
	}
	if err := c.drv.enqueue(k.impl, args, x, y); err != nil {
		return asDispatchError(k.name, StatusSubmitFailed, err)
	}
	slogger().Debug("compute: kernel enqueued", "kernel", k.name, "x", x, "y", y)
	return nil
}

// Finish blocks until every enqueued kernel has completed. A failure of any
// of them is returned as *DispatchError.
func (q *Queue) Finish() error {
	c := q.ctx
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if err := c.drv.finish(); err != nil {
		return asDispatchError("", StatusUnknown, err)
	}
	return nil
}

// asDispatchError passes a *DispatchError through and wraps anything else.
func asDispatchError(kernel string, code Status, err error) error {
	var de *DispatchError
	if errors.As(err, &de) {
		if de.Kernel == "" {
			de.Kernel = kernel
		}
		return de
	}
	return &DispatchError{Kernel: kernel, Code: code, Err: err}
}
