// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imagegrid

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Size of an image in pixels.
type Size struct {
	Width, Height int
}

// String implements fmt.Stringer.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Item is either a path to an image file or an image. Create it with FromPath or FromImage.
type Item struct {
	Path  string
	Image image.Image
}

// FromPath returns an Item referring to an image file.
func FromPath(path string) Item { return Item{Path: path} }

// FromImage returns an Item holding an image.
func FromImage(img image.Image) Item { return Item{Image: img} }

// IsPath returns whether the item refers to an image file.
func (it Item) IsPath() bool { return it.Image == nil }

// Paths converts a list of paths to Items.
func Paths(paths ...string) []Item {
	items := make([]Item, len(paths))
	for ii, p := range paths {
		items[ii] = FromPath(p)
	}
	return items
}

// Images converts a list of images to Items.
func Images(images ...image.Image) []Item {
	items := make([]Item, len(images))
	for ii, img := range images {
		items[ii] = FromImage(img)
	}
	return items
}

// OpenImage decodes the image file (formats supported by imaging: jpeg, png, gif, tiff and bmp) and,
// if size is not nil, resizes it.
func OpenImage(path string, size *Size) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", path)
	}
	if size != nil {
		img, err = Resize(img, *size)
		if err != nil {
			return nil, errors.WithMessagef(err, "image %q", path)
		}
	}
	return img, nil
}

// Resize the image to the given size, using the Lanczos filter.
func Resize(img image.Image, size Size) (image.Image, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, errors.Errorf("invalid image size %s", size)
	}
	if img.Bounds().Dx() == size.Width && img.Bounds().Dy() == size.Height {
		return img, nil
	}
	return imaging.Resize(img, size.Width, size.Height, imaging.Lanczos), nil
}

// PrepareImageList opens (if items are paths) and resizes (if size is not nil) the items.
//
// All items must be of the same kind as the first: either all paths or all images.
func PrepareImageList(items []Item, size *Size) ([]image.Image, error) {
	if len(items) == 0 {
		return nil, errors.New("empty list of images")
	}
	isPath := items[0].IsPath()
	images := make([]image.Image, 0, len(items))
	for ii, item := range items {
		if item.IsPath() != isPath {
			return nil, errors.Errorf("expected a list of all paths or all images, but item #0 is a %s and item #%d is a %s",
				kindName(isPath), ii, kindName(item.IsPath()))
		}
		if isPath {
			img, err := OpenImage(item.Path, size)
			if err != nil {
				return nil, err
			}
			images = append(images, img)
			continue
		}
		img := item.Image
		if size != nil {
			var err error
			img, err = Resize(img, *size)
			if err != nil {
				return nil, errors.WithMessagef(err, "image #%d", ii)
			}
		}
		images = append(images, img)
	}
	return images, nil
}

func kindName(isPath bool) string {
	if isPath {
		return "path"
	}
	return "image"
}
