// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"slices"
	"testing"
)

func TestScanEntryPoints(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "single",
			src: `@compute @workgroup_size(8, 8)
fn crop(@builtin(global_invocation_id) id: vec3<u32>) {}`,
			want: []string{"crop"},
		},
		{
			name: "attribute order",
			src: `@workgroup_size(64) @compute
fn main() {}`,
			want: []string{"main"},
		},
		{
			name: "helpers ignored",
			src: `fn luma(p: u32) -> f32 { return 0.0; }
@compute @workgroup_size(8, 8)
fn grayscale(@builtin(global_invocation_id) id: vec3<u32>) {}`,
			want: []string{"grayscale"},
		},
		{
			name: "multiple",
			src: `@compute @workgroup_size(8, 8) fn a() {}
@compute @workgroup_size(8, 8) fn b() {}`,
			want: []string{"a", "b"},
		},
		{
			name: "commented out",
			src: `// @compute @workgroup_size(8, 8) fn hidden() {}
@compute @workgroup_size(8, 8) fn shown() {}`,
			want: []string{"shown"},
		},
		{
			name: "vertex only",
			src:  `@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(); }`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanEntryPoints(tt.src)
			if !slices.Equal(got, tt.want) {
				t.Errorf("scanEntryPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArgKindString(t *testing.T) {
	if ArgInput.String() != "input" || ArgOutput.String() != "output" || ArgUint.String() != "u32" {
		t.Errorf("unexpected ArgKind names: %v %v %v", ArgInput, ArgOutput, ArgUint)
	}
	if !ArgInput.isBuffer() || !ArgOutput.isBuffer() || ArgUint.isBuffer() {
		t.Error("isBuffer() mismatch")
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"auto", BackendAuto, false},
		{"Vulkan", BackendVulkan, false},
		{"host", BackendHost, false},
		{"noop", BackendNoop, false},
		{"metal", BackendAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParamBlockSize(t *testing.T) {
	tests := []struct {
		n    int
		want uint64
	}{
		{1, 16},
		{2, 16},
		{4, 16},
		{5, 32},
		{8, 32},
	}
	for _, tt := range tests {
		if got := paramBlockSize(tt.n); got != tt.want {
			t.Errorf("paramBlockSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
