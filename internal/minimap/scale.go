package minimap

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

func scaleFrame(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
