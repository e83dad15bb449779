// Package viewmatrix frames mesh positions for the preview camera and projects
// them to screen space.
package viewmatrix

import (
	"math"

	"mesh-subdivider/internal/mathutil"
)

// DefaultFOV is the vertical field of view in degrees used when a perspective
// camera asks for FOV 0.
const DefaultFOV = 30.0

// Camera selects the view orientation and projection.
type Camera struct {
	View        mathutil.Mat3
	Perspective bool
	FOV         float64 // degrees, only with Perspective
}

// Projection maps model positions to screen pixels. Build one with Fit.
type Projection struct {
	R      mathutil.Mat3
	Center mathutil.Vec3 // view-space bounding-box centre
	Scale  float64       // pixels per view-space unit
	Half   float64       // half the render size in pixels

	persp   bool
	camDist float64
	zCenter float64
}

// Fit centres positions in a renderSize square with margin pixels on each side.
// Empty input yields a projection that maps the origin to the image centre.
func Fit(positions []mathutil.Vec3, cam Camera, renderSize, margin int) Projection {
	p := Projection{R: cam.View, Half: float64(renderSize) / 2, Scale: 1}
	if len(positions) == 0 {
		return p
	}

	lo := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range positions {
		t := cam.View.MulVec3(v)
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], t[k])
			hi[k] = math.Max(hi[k], t[k])
		}
	}
	p.Center = mathutil.Mid(lo, hi)
	span := math.Max(math.Max(hi[0]-lo[0], hi[1]-lo[1]), 0.001)

	if cam.Perspective {
		fov := cam.FOV
		if fov == 0 {
			fov = DefaultFOV
		}
		xyMax := math.Max(span/2, 0.001)
		p.persp = true
		p.zCenter = p.Center[2]
		p.camDist = xyMax / math.Tan(mathutil.Deg2Rad(fov/2))
	}

	inner := float64(renderSize - 2*margin)
	if inner < 1 {
		inner = 1
	}
	p.Scale = inner / span
	return p
}

// Project returns screen x, y (y down) and depth (larger is nearer) of v.
func (p Projection) Project(v mathutil.Vec3) (x, y, z float64) {
	t := p.R.MulVec3(v)
	if p.persp {
		depth := math.Max(p.camDist-(t[2]-p.zCenter), 0.1)
		f := p.camDist / depth
		t[0] = (t[0]-p.Center[0])*f + p.Center[0]
		t[1] = (t[1]-p.Center[1])*f + p.Center[1]
	}
	return (t[0]-p.Center[0])*p.Scale + p.Half, -(t[1]-p.Center[1])*p.Scale + p.Half, t[2]
}

// Rotate turns a normal into view space.
func (p Projection) Rotate(n mathutil.Vec3) mathutil.Vec3 {
	return p.R.MulVec3(n).Normalize()
}
