// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

// Band is a half-open row range [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of rows in the band.
func (b Band) Rows() int { return b.Y1 - b.Y0 }

// Bands splits rows into at most n contiguous bands of near-equal height.
// Every row belongs to exactly one band. It returns nil for rows <= 0.
func Bands(rows, n int) []Band {
	if rows <= 0 {
		return nil
	}
	n = min(max(n, 1), rows)

	bands := make([]Band, n)
	base, extra := rows/n, rows%n
	y := 0
	for i := range bands {
		h := base
		if i < extra {
			h++
		}
		bands[i] = Band{Y0: y, Y1: y + h}
		y += h
	}
	return bands
}
