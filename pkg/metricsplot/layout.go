// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package metricsplot

import (
	"math"

	"github.com/pkg/errors"
)

// CalculateSubplotDimensions returns the number of rows and columns of a grid of subplots able to hold
// n plots. Zero for nrows or ncols means unset.
//
//   - Both unset: nrows = floor(sqrt(n)) and ncols = ceil(n/nrows), so the grid is about square.
//   - Only nrows unset: nrows = ceil(n/ncols).
//   - Only ncols unset: ncols = ceil(n/nrows).
//   - Both set: they are returned unchanged, even if the grid is too small (CreateSubplots will complain).
func CalculateSubplotDimensions(n, nrows, ncols int) (rows, cols int, err error) {
	if n <= 0 {
		return 0, 0, errors.Errorf("invalid number of subplots n=%d, it must be > 0", n)
	}
	if nrows < 0 || ncols < 0 {
		return 0, 0, errors.Errorf("invalid subplots dimensions nrows=%d, ncols=%d: they must be >= 0 (0 for unset)",
			nrows, ncols)
	}
	rows, cols = nrows, ncols
	switch {
	case rows == 0 && cols == 0:
		rows = int(math.Sqrt(float64(n)))
		cols = ceilDiv(n, rows)
	case rows == 0:
		rows = ceilDiv(n, cols)
	case cols == 0:
		cols = ceilDiv(n, rows)
	}
	return rows, cols, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
