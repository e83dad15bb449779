package subdiv

import "mesh-subdivider/internal/mathutil"

func init() {
	Register("pntriangles", func() Strategy { return &PNTriangles{} })
}

// PNTriangles splits each triangle into four, placing each new edge point on
// the curved surface implied by the corner normals: the edge midpoint is
// projected onto both endpoints' tangent planes and the projections averaged.
// Flat regions (all normals equal to the face normal) subdivide linearly.
type PNTriangles struct{}

func (*PNTriangles) Name() string { return "pntriangles" }

// Divide ignores center.
func (*PNTriangles) Divide(sd *Subdivider, center mathutil.Vec3) {
	splitFaces(sd, center, pnEdgePoint)
}

// Cleanup is a no-op; nothing outlives a pass.
func (*PNTriangles) Cleanup() {}

func pnEdgePoint(sd *Subdivider, e edge, _ mathutil.Vec3) mathutil.Vec3 {
	m := mathutil.Mid(e.P1, e.P2)
	q1, ok1 := tangentProject(m, e.P1, e.N1)
	q2, ok2 := tangentProject(m, e.P2, e.N2)
	if !ok1 || !ok2 {
		sd.Fallback()
	}
	p := mathutil.Mid(q1, q2)
	if !p.IsFinite() {
		sd.Fallback()
		return m
	}
	return p
}

// tangentProject projects m onto the plane through p with normal n.
// A zero or non-finite normal leaves m where it is and reports false.
func tangentProject(m, p, n mathutil.Vec3) (mathutil.Vec3, bool) {
	n = n.Normalize()
	if n.IsZero() || !n.IsFinite() {
		return m, false
	}
	return m.Sub(n.Scale(m.Sub(p).Dot(n))), true
}
