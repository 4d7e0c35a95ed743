// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package history

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).Bold(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1).Align(lipgloss.Right)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1).Align(lipgloss.Right)
)

// Table renders the Recorder as a table, one row per step, for terminal output.
func (r *Recorder) Table() string {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row < 0:
				return headerRowStyle
			case row%2 == 0:
				return oddRowStyle
			default:
				return evenRowStyle
			}
		})
	table.Headers(r.MetricNames...)
	for row, values := range r.Values {
		cells := make([]string, 0, len(values)+2)
		var step float64
		if row < len(r.Steps) {
			step = r.Steps[row]
		}
		cells = append(cells, humanize.Comma(int64(step)))
		for _, v := range values {
			cells = append(cells, FormatValue(v))
		}
		elapsed := math.NaN()
		if row < len(r.Times) {
			elapsed = r.Times[row]
		}
		cells = append(cells, FormatElapsed(elapsed))
		table.Row(cells...)
	}
	return table.String()
}

// String implements fmt.Stringer.
func (r *Recorder) String() string {
	return r.Table()
}

// FormatValue formats a metric value for tables: empty for NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}

// FormatElapsed formats the elapsed time given in seconds as "mm:ss". Empty for NaN.
func FormatElapsed(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return ""
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	minutes := int(d / time.Minute)
	secs := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
