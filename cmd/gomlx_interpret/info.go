// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	var scope string
	var showParams, showVars bool
	cmd := &cobra.Command{
		Use:   "info <checkpoint_dir>",
		Short: "Summarize the model saved in a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.New()
			if _, err := checkpoints.Load(ctx).Dir(args[0]).Immediate().Done(); err != nil {
				return errors.WithMessagef(err, "failed to load checkpoint %q", args[0])
			}
			scopedCtx := ctx
			if scope != "" {
				scopedCtx = ctx.InAbsPath(scope)
			}
			out := cmd.OutOrStdout()
			if err := writeSummary(out, args[0], ctx, scopedCtx); err != nil {
				return err
			}
			if showParams {
				writeParams(out, ctx)
			}
			if showVars {
				writeVariables(out, scopedCtx)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "/", "Scope of the variables considered in the summary and listing.")
	cmd.Flags().BoolVar(&showParams, "params", false, "List the hyperparameters.")
	cmd.Flags().BoolVar(&showVars, "vars", false, "List the variables under --scope.")
	return cmd
}

func writeSummary(w io.Writer, checkpointDir string, ctx, scopedCtx *context.Context) error {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Summary"))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("checkpoint", checkpointDir)
	table.Row("scope", scopedCtx.Scope())
	if globalStepVar := ctx.GetVariable(optimizers.GlobalStepVariableName); globalStepVar != nil {
		globalStepT, err := globalStepVar.Value()
		if err != nil {
			return errors.WithMessage(err, "failed to read the global step")
		}
		table.Row("global_step", humanize.Comma(tensors.ToScalar[int64](globalStepT)))
	}
	var numVars, totalSize int
	var totalMemory uintptr
	scopedCtx.EnumerateVariablesInScope(func(v *context.Variable) {
		numVars++
		totalSize += v.Shape().Size()
		totalMemory += v.Shape().Memory()
	})
	table.Row("# variables", humanize.Comma(int64(numVars)))
	table.Row("# parameters", humanize.Comma(int64(totalSize)))
	table.Row("# bytes", humanize.Bytes(uint64(totalMemory)))
	_, _ = fmt.Fprintln(w, table.Render())
	return nil
}

func writeParams(w io.Writer, ctx *context.Context) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Hyperparameters"))
	table := newPlainTable()
	table.Headers("Scope", "Name", "Type", "Value")
	var rows [][]string
	ctx.EnumerateParams(func(scope, key string, value any) {
		rows = append(rows, []string{scope, key, fmt.Sprintf("%T", value), fmt.Sprintf("%v", value)})
	})
	sortRows(rows)
	table.Rows(rows...)
	_, _ = fmt.Fprintln(w, table.Render())
}

func writeVariables(w io.Writer, scopedCtx *context.Context) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Variables"))
	table := newPlainTable(lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Right)
	table.Headers("Scope", "Name", "Shape", "Size", "Bytes")
	var rows [][]string
	scopedCtx.EnumerateVariablesInScope(func(v *context.Variable) {
		shape := v.Shape()
		rows = append(rows, []string{
			v.Scope(), v.Name(), shape.String(),
			humanize.Comma(int64(shape.Size())),
			humanize.Bytes(uint64(shape.Memory())),
		})
	})
	sortRows(rows)
	table.Rows(rows...)
	_, _ = fmt.Fprintln(w, table.Render())
}

// sortRows by scope and then by name.
func sortRows(rows [][]string) {
	slices.SortFunc(rows, func(a, b []string) int {
		if cmp := strings.Compare(a[0], b[0]); cmp != 0 {
			return cmp
		}
		return strings.Compare(a[1], b[1])
	})
}
