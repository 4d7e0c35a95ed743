// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package metricsplot

import (
	"encoding/base64"
	"encoding/json"
	"html/template"
	"io"

	grob "github.com/MetalBlueberry/go-plotly/generated/v2.34.0/graph_objects"
	ptypes "github.com/MetalBlueberry/go-plotly/pkg/types"
	"github.com/janpfeifer/gonb/gonbui"
	gonbplotly "github.com/janpfeifer/gonb/gonbui/plotly"
	"github.com/pkg/errors"
)

// Plotly returns one interactive Plotly figure per used subplot, in row-major order.
//
// Colors are left to Plotly's default colorway, whose first two colors are TrainColor and ValidColor.
func (f *Figure) Plotly() []*grob.Fig {
	figs := make([]*grob.Fig, len(f.Axes))
	for _, series := range f.Series {
		fig := figs[series.Axis]
		if fig == nil {
			fig = &grob.Fig{
				Layout: &grob.Layout{
					Title: &grob.LayoutTitle{
						Text: ptypes.S(series.Title),
					},
					Xaxis: &grob.LayoutXaxis{
						Showgrid: ptypes.B(true),
						Title:    &grob.LayoutXaxisTitle{Text: ptypes.S("step")},
					},
					Yaxis: &grob.LayoutYaxis{
						Showgrid: ptypes.B(true),
					},
					Width:  ptypes.N(float64(f.Size.Width.Dots(float64(f.dpi())) / float64(f.Cols))),
					Height: ptypes.N(float64(f.Size.Height.Dots(float64(f.dpi())) / float64(f.Rows))),
				},
			}
			figs[series.Axis] = fig
		}
		fig.Data = append(fig.Data, &grob.Scatter{
			Name: ptypes.S(series.Label),
			Line: &grob.ScatterLine{
				Shape: grob.ScatterLineShapeLinear,
			},
			Mode: "lines",
			X:    ptypes.DataArray(series.Xs),
			Y:    ptypes.DataArray(series.Ys),
		})
	}
	used := figs[:0]
	for _, fig := range figs {
		if fig != nil {
			used = append(used, fig)
		}
	}
	return used
}

func (f *Figure) dpi() int {
	if f.DPI <= 0 {
		return DefaultDPI
	}
	return f.DPI
}

var (
	plotlyPageHTML = `<!DOCTYPE html>
	<head>
		<meta charset="utf-8">
		<script src="{{ .CDN }}"></script>
	</head>
	<body>
	<div style="display: grid; grid-template-columns: repeat({{ .Cols }}, auto);">
{{- range $i, $f := .Figures }}
		<div id="plot{{ $i }}"></div>
{{- end }}
	</div>
	<script>
{{- range $i, $f := .Figures }}
		data = JSON.parse(atob('{{ $f }}'))
		Plotly.newPlot('plot{{ $i }}', data);
{{- end }}
	</script>
	</body>
</html>`
	plotlyPageTmpl = template.Must(template.New("plotly").Parse(plotlyPageHTML))
)

// WriteHTML renders the interactive (Plotly) version of the figure as a self-contained HTML page, with the
// subplots laid out in the same grid.
func (f *Figure) WriteHTML(w io.Writer) error {
	figs := f.Plotly()
	data := &struct {
		CDN     string
		Cols    int
		Figures []string
	}{
		CDN:  gonbplotly.PlotlySrc,
		Cols: f.Cols,
	}
	for ii, fig := range figs {
		figAsJSON, err := json.Marshal(fig)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal plotly figure #%d", ii)
		}
		data.Figures = append(data.Figures, base64.StdEncoding.EncodeToString(figAsJSON))
	}
	if err := plotlyPageTmpl.Execute(w, data); err != nil {
		return errors.Wrap(err, "failed to render plotly page")
	}
	return nil
}

// ShowPlotly displays the interactive version of the figure in a GoNB notebook.
// It is a no-op outside a notebook.
func (f *Figure) ShowPlotly() error {
	if !gonbui.IsNotebook {
		return nil
	}
	for _, fig := range f.Plotly() {
		if err := gonbplotly.DisplayFig(fig); err != nil {
			return errors.WithMessage(err, "failed to display plotly figure")
		}
	}
	return nil
}
