package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// A4 page canvas at 4px per millimetre.
const (
	a4ShortPx = 840
	a4LongPx  = 1188
)

var (
	watermarkColor = color.NRGBA{R: 190, G: 190, B: 190, A: 255}
	labelColor     = color.NRGBA{R: 90, G: 90, B: 90, A: 255}
)

// DraftWatermark renders text diagonally across a transparent A4 canvas
// sized for the orientation. The result is a PNG used as the page background.
func DraftWatermark(text string, o Orientation) ([]byte, error) {
	w, h := a4ShortPx, a4LongPx
	if o == Landscape {
		w, h = h, w
	}

	glyphs := renderTextImage(text, watermarkColor)
	scaled := imaging.Resize(glyphs, w*7/10, 0, imaging.NearestNeighbor)
	rotated := imaging.Rotate(scaled, 35, color.Transparent)

	canvas := imaging.New(w, h, color.Transparent)
	return encodePNG(imaging.OverlayCenter(canvas, rotated, 0.35))
}

// VerticalLabel renders text rotated a quarter turn counter-clockwise, for
// the narrow side label of the letterhead.
func VerticalLabel(text string) ([]byte, error) {
	glyphs := renderTextImage(text, labelColor)
	scaled := imaging.Resize(glyphs, glyphs.Bounds().Dx()*4, 0, imaging.NearestNeighbor)
	return encodePNG(imaging.Rotate90(scaled))
}

// renderTextImage draws s with the fixed 7x13 face on a transparent canvas.
func renderTextImage(s string, fg color.Color) *image.NRGBA {
	face := basicfont.Face7x13
	metrics := face.Metrics()

	w := font.MeasureString(face, s).Ceil() + 4
	h := metrics.Height.Ceil() + 4
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(2, 2+metrics.Ascent.Ceil()),
	}
	d.DrawString(s)
	return img
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
