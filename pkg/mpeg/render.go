package mpeg

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/spf13/afero"
	"golang.org/x/image/draw"
)

// RenderFrame copies a decoded video frame into an image, turned upright
// according to the stream orientation.
func (d *Decoder) RenderFrame(f *Frame) (image.Image, error) {
	return renderFrame(f, d.info.Orientation)
}

func renderFrame(f *Frame, orientation int) (image.Image, error) {
	if f == nil || f.EOF || f.Type != MediaTypeVideo {
		return nil, ErrNoFrame
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height*4 {
		return nil, fmt.Errorf("render %dx%d frame with %d bytes: %w", f.Width, f.Height, len(f.Pixels), ErrNoFrame)
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pixels)
	if orientation == 0 {
		return img, nil
	}

	w, h := f.Width, f.Height
	if orientation == 90 || orientation == 270 {
		w, h = h, w
	}
	dc := gg.NewContext(w, h)
	dc.RotateAbout(gg.Radians(float64(orientation)), float64(w)/2, float64(h)/2)
	dc.DrawImageAnchored(img, w/2, h/2, 0.5, 0.5)
	return dc.Image(), nil
}

// ExtractThumbnail renders the frame at num/den of the duration, scaled down
// to fit a maxSize square. maxSize <= 0 keeps the native size.
func (d *Decoder) ExtractThumbnail(num, den int64, maxSize int) (image.Image, error) {
	f, err := d.ExtractSeekFrame(num, den)
	if err != nil {
		return nil, fmt.Errorf("thumbnail of %s: %w", d.path, err)
	}
	defer f.Release()

	img, err := d.RenderFrame(f)
	if err != nil {
		return nil, err
	}
	return Fit(img, maxSize), nil
}

// Fit scales img down so neither side exceeds maxSize, keeping its aspect.
func Fit(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if maxSize <= 0 || b.Dx() <= maxSize && b.Dy() <= maxSize {
		return img
	}
	scale := math.Min(float64(maxSize)/float64(b.Dx()), float64(maxSize)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WriteImage encodes img to path on fs as JPEG or PNG, chosen by extension.
func WriteImage(fs afero.Fs, path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
