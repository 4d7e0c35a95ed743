// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gradcam produces Grad-CAM (gradient-weighted class activation mapping) visualizations for
// a learner.Learner: for each requested label, a heatmap of where the model "looked" is overlaid on
// the input image, captioned with the label and its prediction, and the results are composed in a grid.
//
// Example:
//
//	grid, err := gradcam.GradCAM(l, imagegrid.FromPath("cat.jpg")).
//		Labels(gradcam.Names("cat", "dog")...).
//		ShowOriginal(true).
//		Done()
package gradcam

import (
	"fmt"
	"image"

	"github.com/gomlx/interpret/pkg/colormaps"
	"github.com/gomlx/interpret/pkg/imagegrid"
	"github.com/gomlx/interpret/pkg/learner"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/palette"
	"k8s.io/klog/v2"
)

const (
	// DefaultAlpha is the opacity of the maps overlaid by GradCAM.
	DefaultAlpha = 0.5

	// DefaultGridColumns is the default number of images per row of the GradCAM grid.
	DefaultGridColumns = 4

	// OriginalCaption is the caption of the original image, see Config.ShowOriginal.
	OriginalCaption = "Original"
)

// Config for GradCAM. Create it with GradCAM, set the options and call Done.
type Config struct {
	learner      *learner.Learner
	item         imagegrid.Item
	target       TargetLayer
	labels       []Label
	fullSize     bool
	showOriginal bool
	imageSize    *imagegrid.Size
	gridColumns  int
	labelOptions imagegrid.LabelOptions
	plotOptions  PlotOptions
	err          error
}

// GradCAM creates the configuration of the Grad-CAM visualization of item (an image or a path to an image file)
// for the learner l. Call Done to create it.
func GradCAM(l *learner.Learner, item imagegrid.Item) *Config {
	c := &Config{
		learner:     l,
		item:        item,
		target:      DefaultTarget,
		gridColumns: DefaultGridColumns,
		plotOptions: PlotOptions{Interpolation: Bilinear},
	}
	c.Alpha(DefaultAlpha)
	c.plotOptions.GCAMColorMap, c.err = colormaps.ByName(colormaps.RdYlBu10R)
	return c
}

// Target sets the stage of the model w.r.t. which the maps are computed. Default is the first stage.
func (c *Config) Target(target TargetLayer) *Config {
	c.target = target
	return c
}

// Labels sets the labels for which maps are computed, one per label. Default is the top prediction.
func (c *Config) Labels(labels ...Label) *Config {
	c.labels = labels
	return c
}

// FullSize overlays the maps on the original image, as opposed to the decoded model input (the default).
func (c *Config) FullSize(fullSize bool) *Config {
	c.fullSize = fullSize
	return c
}

// ShowOriginal prepends the original image, without the map, to the grid.
func (c *Config) ShowOriginal(show bool) *Config {
	c.showOriginal = show
	return c
}

// ImageSize resizes the original image before anything else.
func (c *Config) ImageSize(width, height int) *Config {
	c.imageSize = &imagegrid.Size{Width: width, Height: height}
	return c
}

// Alpha sets the opacity of the maps, from 0 (the images are not changed) to 1. Default is DefaultAlpha.
func (c *Config) Alpha(alpha float64) *Config {
	c.plotOptions.Alpha = &alpha
	return c
}

// Interpolation sets how maps are resized to the images. Default is Bilinear.
func (c *Config) Interpolation(interpolation Interpolation) *Config {
	c.plotOptions.Interpolation = interpolation
	return c
}

// ImageColorMap sets the colormap applied to grayscale images. Default is none.
func (c *Config) ImageColorMap(cm palette.ColorMap) *Config {
	c.plotOptions.ImageColorMap = cm
	return c
}

// GCAMColorMap sets the colormap of the maps. Default is colormaps.RdYlBu10R.
func (c *Config) GCAMColorMap(cm palette.ColorMap) *Config {
	c.plotOptions.GCAMColorMap = cm
	return c
}

// Font sets the TrueType font file and size of the captions. Empty path or size <= 0 use the defaults
// of imagegrid.DrawLabels.
func (c *Config) Font(fontPath string, fontSize float64) *Config {
	c.labelOptions.FontPath = fontPath
	c.labelOptions.FontSize = fontSize
	return c
}

// GridColumns sets the number of images per row of the grid. Default is DefaultGridColumns.
// If 0, all images are shown in one row.
func (c *Config) GridColumns(n int) *Config {
	c.gridColumns = n
	return c
}

// Done creates the grid with one captioned Grad-CAM overlay per label.
func (c *Config) Done() (*image.NRGBA, error) {
	grid, _, err := c.DoneWithMaps()
	return grid, err
}

// DoneWithMaps is like Done, but also returns the Grad-CAM map (see MapGraph) computed for each label,
// keyed by the label's name.
func (c *Config) DoneWithMaps() (grid *image.NRGBA, maps map[string][][]float64, err error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	l := c.learner
	img, err := c.openItem()
	if err != nil {
		return nil, nil, err
	}
	x, err := l.TestInput(img)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "GradCAM failed to preprocess the image")
	}
	if c.imageSize != nil {
		img, err = imagegrid.Resize(img, *c.imageSize)
		if err != nil {
			return nil, nil, errors.WithMessage(err, "GradCAM")
		}
	}
	labels := c.labels
	if len(labels) == 0 {
		labels = []Label{TopPrediction}
	}
	ncol := c.gridColumns
	if ncol < 0 {
		return nil, nil, errors.Errorf("invalid number of grid columns %d", ncol)
	}
	if ncol == 0 {
		ncol = len(labels)
		if c.showOriginal {
			ncol++
		}
	}

	ic, err := newItemsComputer(l, c.target)
	if err != nil {
		return nil, nil, err
	}
	plotOptions := c.plotOptions
	plotOptions.FullSize = c.fullSize
	maps = make(map[string][][]float64, len(labels))
	results := make([]image.Image, 0, len(labels)+1)
	for _, label := range labels {
		items, err := ic.compute(x, label)
		if err != nil {
			return nil, nil, err
		}
		maps[items.Label] = items.Map
		overlay, err := PlotGCAM(l, img, x, items.Map, plotOptions)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "label %q", items.Label)
		}
		caption := fmt.Sprintf("%s: %.02f%%", items.Label, items.Preds[items.Index]*100)
		captioned, err := imagegrid.DrawLabels(overlay, caption, c.labelOptions)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, captioned)
		klog.V(1).Infof("GradCAM: %s", caption)
	}
	if c.showOriginal {
		bounds := results[0].Bounds()
		original, err := imagegrid.Resize(img, imagegrid.Size{Width: bounds.Dx(), Height: bounds.Dy()})
		if err != nil {
			return nil, nil, err
		}
		captioned, err := imagegrid.DrawLabels(original, OriginalCaption, c.labelOptions)
		if err != nil {
			return nil, nil, err
		}
		results = append([]image.Image{captioned}, results...)
	}
	grid, err = imagegrid.CreateImageGrid(imagegrid.Images(results...), nil, ncol)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "GradCAM")
	}
	return grid, maps, nil
}

func (c *Config) openItem() (image.Image, error) {
	if c.item.IsPath() {
		if c.item.Path == "" {
			return nil, errors.New("GradCAM requires an image or a path to an image file")
		}
		return imagegrid.OpenImage(c.item.Path, nil)
	}
	return c.item.Image, nil
}
