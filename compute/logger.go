// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"log/slog"

	"github.com/gogpu/gpuimage"
)

// slogger returns the module logger configured via gpuimage.SetLogger.
func slogger() *slog.Logger { return gpuimage.Logger() }
