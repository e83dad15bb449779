// Package raster is the software consumer of submesh buffers: it draws a
// mesh.Snapshot's vertex and index arrays into an RGBA framebuffer.
package raster

import (
	"image"

	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/mesh"
	"mesh-subdivider/internal/viewmatrix"
)

// DefaultBase is the albedo of untextured meshes.
var DefaultBase = [4]uint8{160, 160, 170, 255}

// Options control one render.
type Options struct {
	Size        int // output edge in pixels before supersampling
	Supersample int // render at Size*Supersample; resolve with Downsample
	Camera      viewmatrix.Camera
	Texture     *image.NRGBA // optional, sampled with the vertex UVs
	Light       *LightConfig // nil uses DefaultLightConfig
	Base        [4]uint8     // albedo without texture; zero value uses DefaultBase
}

// Render draws snap at Size*Supersample pixels square. Only the snapshot's
// buffers are read; a snapshot without buffers renders transparent.
func Render(snap mesh.Snapshot, opts Options) *image.NRGBA {
	ss := max(opts.Supersample, 1)
	renderSize := max(opts.Size, 1) * ss
	fb := NewFrameBuffer(renderSize, renderSize)
	if len(snap.Vertices) == 0 || len(snap.Indices) < 3 {
		return fb.Image()
	}
	Draw(fb, snap, opts)
	return fb.Image()
}

// Draw rasterizes snap into fb, framed to fb's width.
func Draw(fb *FrameBuffer, snap mesh.Snapshot, opts Options) {
	lc := opts.Light
	if lc == nil {
		l := DefaultLightConfig()
		lc = &l
	}
	base := opts.Base
	if base == ([4]uint8{}) {
		base = DefaultBase
	}

	positions := make([]mathutil.Vec3, len(snap.Vertices))
	for i, v := range snap.Vertices {
		positions[i] = v.Position
	}
	margin := fb.Width / 16
	proj := viewmatrix.Fit(positions, opts.Camera, fb.Width, margin)

	screen := make([]ScreenVertex, len(snap.Vertices))
	for i, v := range snap.Vertices {
		x, y, z := proj.Project(v.Position)
		screen[i] = ScreenVertex{X: x, Y: y, Z: z, UV: v.UV, Shade: lc.ComputeShade(proj.Rotate(v.Normal))}
	}

	n := uint32(len(screen))
	for i := 0; i+2 < len(snap.Indices); i += 3 {
		a, b, c := snap.Indices[i], snap.Indices[i+1], snap.Indices[i+2]
		if a >= n || b >= n || c >= n {
			continue
		}
		RasterizeTriangle(fb, [3]ScreenVertex{screen[a], screen[b], screen[c]}, opts.Texture, base, lc)
	}
}
