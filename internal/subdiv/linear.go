package subdiv

import "mesh-subdivider/internal/mathutil"

func init() {
	Register("linear", func() Strategy { return &Linear{} })
	Register("spherical", func() Strategy { return &Spherical{} })
}

// Linear splits each triangle into four at the flat edge midpoints.
type Linear struct{}

func (*Linear) Name() string { return "linear" }

func (*Linear) Divide(sd *Subdivider, center mathutil.Vec3) {
	splitFaces(sd, center, func(_ *Subdivider, e edge, _ mathutil.Vec3) mathutil.Vec3 {
		return mathutil.Mid(e.P1, e.P2)
	})
}

func (*Linear) Cleanup() {}

// Spherical pushes each edge midpoint away from center to the mean distance
// of the edge endpoints, so meshes built around center inflate towards a sphere.
type Spherical struct{}

func (*Spherical) Name() string { return "spherical" }

func (*Spherical) Divide(sd *Subdivider, center mathutil.Vec3) {
	splitFaces(sd, center, sphericalEdgePoint)
}

func (*Spherical) Cleanup() {}

func sphericalEdgePoint(sd *Subdivider, e edge, center mathutil.Vec3) mathutil.Vec3 {
	m := mathutil.Mid(e.P1, e.P2)
	d := m.Sub(center)
	if d.IsZero() {
		sd.Fallback()
		return m
	}
	r := (e.P1.Sub(center).Len() + e.P2.Sub(center).Len()) / 2
	return center.Add(d.Normalize().Scale(r))
}
