package raster

import (
	"image"
	"math"

	"mesh-subdivider/internal/mathutil"
)

// ScreenVertex is one projected corner: pixel position, depth (larger is
// nearer), texture coordinate and the lighting scalar computed at the vertex.
type ScreenVertex struct {
	X, Y, Z float64
	UV      mathutil.Vec2
	Shade   float64
}

// RasterizeTriangle fills one triangle with z-buffering. Shade and texture
// coordinates are interpolated across it (Gouraud); with tex nil every pixel
// takes base as its albedo. Texels with alpha below 8 are discarded.
func RasterizeTriangle(fb *FrameBuffer, v [3]ScreenVertex, tex *image.NRGBA, base [4]uint8, lc *LightConfig) {
	x0, y0 := v[0].X, v[0].Y
	x1, y1 := v[1].X, v[1].Y
	x2, y2 := v[2].X, v[2].Y

	// Bounding box
	minX := max(int(math.Floor(math.Min(math.Min(x0, x1), x2))), 0)
	maxX := min(int(math.Ceil(math.Max(math.Max(x0, x1), x2))), fb.Width-1)
	minY := max(int(math.Floor(math.Min(math.Min(y0, y1), y2))), 0)
	maxY := min(int(math.Ceil(math.Max(math.Max(y0, y1), y2))), fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	// Pixel loop, sampled at pixel centres
	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*v[0].Z + w1*v[1].Z + w2*v[2].Z
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			c := base
			if tex != nil {
				uv := v[0].UV.Scale(w0).Add(v[1].UV.Scale(w1)).Add(v[2].UV.Scale(w2))
				c[0], c[1], c[2], c[3] = SampleTexture(tex, uv)
			}
			if c[3] < 8 {
				continue
			}
			fb.ZBuf[zIdx] = z

			shade := w0*v[0].Shade + w1*v[1].Shade + w2*v[2].Shade
			px := zIdx * 4
			fb.Color[px] = lc.Lit(c[0], shade)
			fb.Color[px+1] = lc.Lit(c[1], shade)
			fb.Color[px+2] = lc.Lit(c[2], shade)
			fb.Color[px+3] = c[3]
		}
	}
}
