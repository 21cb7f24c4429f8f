// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package kernels holds the WGSL kernel sources of the image transforms,
// their argument signatures and their host reference implementations.
//
// Sources are looked up by identifier through a [Store]. The default store
// serves the sources compiled into the binary; [Dir] serves
// <dir>/<identifier>.wgsl so kernels can be edited without rebuilding.
package kernels

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Kernel identifiers. Each source declares a @compute entry point with the
// same name.
const (
	Crop      = "crop"
	Grayscale = "grayscale"
	Halftone  = "halftone"
)

// ErrSourceNotFound is returned when a store has no source for an identifier.
var ErrSourceNotFound = errors.New("kernels: source not found")

//go:embed shaders/*.wgsl
var embedded embed.FS

// Store loads kernel source text by identifier.
type Store interface {
	LoadSource(name string) (string, error)
}

// fsStore serves <name>.wgsl from a file system.
type fsStore struct {
	fsys fs.FS
	root string
}

// Embedded returns the store of sources compiled into the binary.
func Embedded() Store {
	return fsStore{fsys: embedded, root: "shaders"}
}

// Dir returns a store reading <dir>/<name>.wgsl from disk.
func Dir(dir string) Store {
	return fsStore{fsys: os.DirFS(dir), root: "."}
}

// FS returns a store reading <name>.wgsl from the root of fsys.
func FS(fsys fs.FS) Store {
	return fsStore{fsys: fsys, root: "."}
}

func (s fsStore) LoadSource(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid identifier %q", ErrSourceNotFound, name)
	}
	data, err := fs.ReadFile(s.fsys, path.Join(s.root, name+".wgsl"))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSourceNotFound, name, err)
	}
	return string(data), nil
}

// Names lists the identifiers of the compiled-in kernels.
func Names() []string {
	return []string{Crop, Grayscale, Halftone}
}
