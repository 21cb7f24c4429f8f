// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// WorkgroupSize is the edge of the 2D workgroup every kernel must declare
// with @workgroup_size(8, 8). Kernels guard against invocations outside the
// dispatch size, which is rounded up to whole workgroups on GPU devices.
const WorkgroupSize = 8

// ArgKind is the type of one positional kernel argument.
type ArgKind int

const (
	// ArgInput is a read-only storage buffer.
	ArgInput ArgKind = iota
	// ArgOutput is a read-write storage buffer.
	ArgOutput
	// ArgUint is a u32 scalar.
	ArgUint
)

func (k ArgKind) String() string {
	switch k {
	case ArgInput:
		return "input"
	case ArgOutput:
		return "output"
	case ArgUint:
		return "u32"
	}
	return fmt.Sprintf("ArgKind(%d)", int(k))
}

func (k ArgKind) isBuffer() bool { return k == ArgInput || k == ArgOutput }

// Program is a compiled kernel program.
type Program struct {
	ctx     *Context
	label   string
	entries []string
	impl    devProgram
}

// NewProgram compiles WGSL source on ctx's device. A compilation failure is
// returned as *BuildError carrying the compiler diagnostic.
func NewProgram(ctx *Context, label, source string) (*Program, error) {
	if err := ctx.lock(); err != nil {
		return nil, err
	}
	defer ctx.mu.Unlock()

	if strings.TrimSpace(source) == "" {
		return nil, &BuildError{Label: label, Diagnostic: "empty source"}
	}
	impl, err := ctx.drv.compile(label, source)
	if err != nil {
		return nil, err
	}
	entries := scanEntryPoints(source)
	if len(entries) == 0 {
		impl.release()
		return nil, &BuildError{Label: label, Diagnostic: "no @compute entry points"}
	}
	slogger().Debug("compute: program built", "label", label, "entries", entries)
	return &Program{ctx: ctx, label: label, entries: entries, impl: impl}, nil
}

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// EntryPoints lists the @compute functions declared by the program.
func (p *Program) EntryPoints() []string { return slices.Clone(p.entries) }

// Kernel looks up an entry point and binds it to the argument signature sig.
// Buffer arguments map to @binding(0..n-1) of @group(0) in slot order; u32
// arguments are packed in slot order into one uniform struct at @binding(n).
func (p *Program) Kernel(entry string, sig ...ArgKind) (*Kernel, error) {
	if err := p.ctx.lock(); err != nil {
		return nil, err
	}
	defer p.ctx.mu.Unlock()

	if p.impl == nil {
		return nil, ErrClosed
	}
	if !slices.Contains(p.entries, entry) {
		return nil, &KernelNotFoundError{Entry: entry, Available: p.EntryPoints()}
	}
	impl, err := p.impl.kernel(entry, sig)
	if err != nil {
		return nil, err
	}
	return &Kernel{
		ctx:  p.ctx,
		name: entry,
		sig:  slices.Clone(sig),
		args: make([]any, len(sig)),
		impl: impl,
	}, nil
}

// Release frees the compiled program. Kernels obtained from it must be
// released first. Release is idempotent.
func (p *Program) Release() {
	if p == nil || p.impl == nil {
		return
	}
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if !p.ctx.closed {
		p.impl.release()
	}
	p.impl = nil
}

// Kernel is an entry point with positional argument slots.
type Kernel struct {
	ctx  *Context
	name string
	sig  []ArgKind
	args []any
	impl devKernel

	// prog is set when the Kernel owns its Program (see BuildKernel).
	prog *Program
}

// Entry returns the entry point name.
func (k *Kernel) Entry() string { return k.name }

// Signature returns the argument kinds in slot order.
func (k *Kernel) Signature() []ArgKind { return slices.Clone(k.sig) }

// SetArg binds slot to v, which must be a *Buffer for buffer slots or a
// uint32 for scalar slots.
func (k *Kernel) SetArg(slot int, v any) error {
	if err := k.ctx.lock(); err != nil {
		return err
	}
	defer k.ctx.mu.Unlock()

	if k.impl == nil {
		return fmt.Errorf("%w: %s is released", ErrInvalidArgument, k.name)
	}
	if slot < 0 || slot >= len(k.sig) {
		return fmt.Errorf("%w: %s has no slot %d", ErrInvalidArgument, k.name, slot)
	}
	kind := k.sig[slot]
	switch val := v.(type) {
	case *Buffer:
		if !kind.isBuffer() {
			return fmt.Errorf("%w: %s slot %d is %v, got buffer", ErrInvalidArgument, k.name, slot, kind)
		}
		if val == nil || val.impl == nil {
			return fmt.Errorf("%w: %s slot %d: released buffer", ErrInvalidArgument, k.name, slot)
		}
		if val.ctx != k.ctx {
			return fmt.Errorf("%w: %s slot %d: buffer from another context", ErrInvalidArgument, k.name, slot)
		}
		if kind == ArgOutput && val.access == ReadOnly {
			return fmt.Errorf("%w: %s slot %d: read-only buffer bound as output", ErrInvalidArgument, k.name, slot)
		}
	case uint32:
		if kind != ArgUint {
			return fmt.Errorf("%w: %s slot %d is %v, got u32", ErrInvalidArgument, k.name, slot, kind)
		}
	default:
		return fmt.Errorf("%w: %s slot %d: unsupported type %T", ErrInvalidArgument, k.name, slot, v)
	}
	k.args[slot] = v
	return nil
}

// SetArgs binds every slot in order.
func (k *Kernel) SetArgs(vs ...any) error {
	if len(vs) != len(k.sig) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidArgument, k.name, len(k.sig), len(vs))
	}
	for i, v := range vs {
		if err := k.SetArg(i, v); err != nil {
			return err
		}
	}
	return nil
}

// bound resolves every slot. Called with the context mutex held.
func (k *Kernel) bound() ([]boundArg, error) {
	out := make([]boundArg, len(k.sig))
	for i, kind := range k.sig {
		out[i].kind = kind
		switch v := k.args[i].(type) {
		case *Buffer:
			if v.impl == nil {
				return nil, fmt.Errorf("slot %d: buffer %q released", i, v.label)
			}
			out[i].buf = v.impl
			out[i].size = v.size
		case uint32:
			out[i].value = v
		default:
			return nil, fmt.Errorf("slot %d (%v) not set", i, kind)
		}
	}
	return out, nil
}

// Release frees the kernel, and its program when the kernel owns it.
// Release is idempotent.
func (k *Kernel) Release() {
	if k == nil || k.impl == nil {
		return
	}
	k.ctx.mu.Lock()
	if !k.ctx.closed {
		k.impl.release()
	}
	k.impl = nil
	k.args = nil
	k.ctx.mu.Unlock()

	if k.prog != nil {
		k.prog.Release()
		k.prog = nil
	}
}

// BuildKernel compiles source and looks up entry in one step. The returned
// Kernel owns the program and releases it with itself.
func BuildKernel(ctx *Context, label, source, entry string, sig ...ArgKind) (*Kernel, error) {
	prog, err := NewProgram(ctx, label, source)
	if err != nil {
		return nil, err
	}
	k, err := prog.Kernel(entry, sig...)
	if err != nil {
		prog.Release()
		return nil, err
	}
	k.prog = prog
	return k, nil
}

var (
	lineComment = regexp.MustCompile(`//[^\n]*`)
	fnDecl      = regexp.MustCompile(`((?:@[A-Za-z_]\w*(?:\s*\([^)]*\))?\s*)+)fn\s+([A-Za-z_]\w*)`)
	computeAttr = regexp.MustCompile(`@compute\b`)
)

// scanEntryPoints returns the names of functions carrying @compute.
func scanEntryPoints(source string) []string {
	src := lineComment.ReplaceAllString(source, "")
	var names []string
	for _, m := range fnDecl.FindAllStringSubmatch(src, -1) {
		if computeAttr.MatchString(m[1]) {
			names = append(names, m[2])
		}
	}
	return names
}
