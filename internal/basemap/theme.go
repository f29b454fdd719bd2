package basemap

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Theme parameters for the dark basemap.
const (
	saturation = 0.2  // 0 = grey, 1 = original
	brightness = 0.45 // multiplier after desaturation
)

// ApplyTheme desaturates and darkens img in place.
func ApplyTheme(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			r, g, bl := float64(row[i]), float64(row[i+1]), float64(row[i+2])
			luma := 0.299*r + 0.587*g + 0.114*bl
			row[i] = toByte((luma + (r-luma)*saturation) * brightness)
			row[i+1] = toByte((luma + (g-luma)*saturation) * brightness)
			row[i+2] = toByte((luma + (bl-luma)*saturation) * brightness)
		}
	}
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// Scale resizes src to width x height without preserving aspect ratio.
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// toRGBA copies src into a new RGBA image with origin at zero.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
