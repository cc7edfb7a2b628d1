// Package texture loads preview images and uploads them as GL textures.
package texture

import (
	"fmt"
	"image"
	"image/draw"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
)

// LoadImage decodes the image at path, shrinks it to fit maxSide x maxSide
// and returns it as RGBA with a zero origin. maxSide <= 0 keeps the size.
func LoadImage(path string, maxSide int) (*image.RGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	if maxSide > 0 {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any image.Image to *image.RGBA with bounds at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// LocalPath resolves plain paths and file:// urls. Remote urls report false.
func LocalPath(ref string) (string, bool) {
	if !strings.Contains(ref, "://") {
		return ref, true
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return u.Path, true
}
