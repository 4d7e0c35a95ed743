// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package metricsplot

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/janpfeifer/gonb/gonbui"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
	"k8s.io/klog/v2"
)

// DefaultDPI used to render figures to raster images.
const DefaultDPI = 100

func (f *Figure) rasterCanvas() *vgimg.Canvas {
	dpi := f.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	c := vgimg.NewWith(vgimg.UseWH(f.Size.Width, f.Size.Height), vgimg.UseDPI(dpi))
	f.Draw(draw.New(c))
	return c
}

// Image renders the figure to an image.
func (f *Figure) Image() image.Image {
	return f.rasterCanvas().Image()
}

// WritePNG renders the figure as PNG.
func (f *Figure) WritePNG(w io.Writer) error {
	_, err := vgimg.PngCanvas{Canvas: f.rasterCanvas()}.WriteTo(w)
	return errors.Wrap(err, "failed to write figure as PNG")
}

// WriteSVG renders the figure as SVG.
func (f *Figure) WriteSVG(w io.Writer) error {
	c := vgsvg.New(f.Size.Width, f.Size.Height)
	f.Draw(draw.New(c))
	_, err := c.WriteTo(w)
	return errors.Wrap(err, "failed to write figure as SVG")
}

// WritePDF renders the figure as PDF.
func (f *Figure) WritePDF(w io.Writer) error {
	c := vgpdf.New(f.Size.Width, f.Size.Height)
	f.Draw(draw.New(c))
	_, err := c.WriteTo(w)
	return errors.Wrap(err, "failed to write figure as PDF")
}

// Save the figure to a file, the format is selected by the extension: ".png", ".svg", ".pdf" or ".html"
// (interactive Plotly version, see WriteHTML).
func (f *Figure) Save(filePath string) (err error) {
	var write func(io.Writer) error
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".png":
		write = f.WritePNG
	case ".svg":
		write = f.WriteSVG
	case ".pdf":
		write = f.WritePDF
	case ".html", ".htm":
		write = f.WriteHTML
	default:
		return errors.Errorf("unsupported figure file format %q for %q: use .png, .svg, .pdf or .html", ext, filePath)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create figure file %q", filePath)
	}
	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close figure file %q", filePath)
		}
	}()
	return write(file)
}

// Show displays the figure: in a GoNB notebook it's displayed inline. Otherwise, it is saved to a temporary PNG
// file, whose path is logged and returned.
func (f *Figure) Show() (filePath string, err error) {
	if gonbui.IsNotebook {
		src, err := gonbui.EmbedImageAsPNGSrc(f.Image())
		if err != nil {
			return "", errors.WithMessage(err, "failed to embed figure in notebook")
		}
		gonbui.DisplayHTML(fmt.Sprintf("<img src=%q/>", src))
		return "", nil
	}
	tmpFile, err := os.CreateTemp("", "gomlx-metrics-*.png")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file for figure")
	}
	filePath = tmpFile.Name()
	if err = f.WritePNG(tmpFile); err != nil {
		_ = tmpFile.Close()
		return "", err
	}
	if err = tmpFile.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close %q", filePath)
	}
	klog.Infof("Metrics plot written to %s", filePath)
	return filePath, nil
}
