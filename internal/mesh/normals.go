package mesh

import (
	"math"

	"mesh-subdivider/internal/mathutil"
)

// computeNormals gives every (point, group) pair an angle-weighted normal:
// each face adds faceNormal × cornerAngle to the points it touches, within its
// own group only. Manual frames are left untouched.
func computeNormals(pts *PointList, groups []*SmoothingGroup) {
	for _, g := range groups {
		GroupNormals(pts, g)
		GroupTangents(pts, g)
	}
}

// GroupNormals recomputes the computed normals of one group in place.
// Entries for points the group no longer references are dropped unless manual.
func GroupNormals(pts *PointList, g *SmoothingGroup) {
	acc := make(map[int]mathutil.Vec3, len(g.Faces)*3)
	for fi := range g.Faces {
		f := &g.Faces[fi]
		f.Recompute(pts)
		var corner [3]mathutil.Vec3
		for k := 0; k < 3; k++ {
			corner[k] = pts.Coords(f.Index[k])
		}
		for k := 0; k < 3; k++ {
			e1 := corner[(k+1)%3].Sub(corner[k])
			e2 := corner[(k+2)%3].Sub(corner[k])
			w := mathutil.Angle(e1, e2)
			idx := f.Index[k]
			acc[idx] = acc[idx].Add(f.Normal.Scale(w))
		}
	}

	normals := make(map[int]VertexNormal, len(acc))
	for idx, vn := range g.Normals {
		if vn.Manual {
			normals[idx] = vn
		}
	}
	for idx, sum := range acc {
		prev, had := g.Normals[idx]
		if had && prev.Manual {
			continue
		}
		n := sum.Normalize()
		if n.IsZero() && had {
			// only degenerate faces touch this point; keep what we knew
			n = prev.Normal
		}
		normals[idx] = VertexNormal{Normal: n, Tangent: prev.Tangent}
	}
	g.Normals = normals
}

// GroupTangents accumulates per-point tangents from texture-coordinate
// gradients and orthogonalizes them against the group normal.
func GroupTangents(pts *PointList, g *SmoothingGroup) {
	acc := make(map[int]mathutil.Vec3, len(g.Normals))
	for _, f := range g.Faces {
		p0, p1, p2 := pts.Coords(f.Index[0]), pts.Coords(f.Index[1]), pts.Coords(f.Index[2])
		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		d1, d2 := f.UV[1].Sub(f.UV[0]), f.UV[2].Sub(f.UV[0])
		denom := d1[0]*d2[1] - d2[0]*d1[1]
		if math.Abs(denom) < mathutil.Epsilon {
			continue // degenerate UV triangle
		}
		r := 1 / denom
		t := e1.Scale(d2[1] * r).Sub(e2.Scale(d1[1] * r))
		for _, idx := range f.Index {
			acc[idx] = acc[idx].Add(t)
		}
	}

	for idx, vn := range g.Normals {
		if vn.Manual && !vn.Tangent.IsZero() {
			continue
		}
		n := vn.Normal
		t := acc[idx]
		t = t.Sub(n.Scale(n.Dot(t)))
		if t.Len() < 1e-8 {
			t = perpendicular(n)
		}
		vn.Tangent = t.Normalize()
		g.Normals[idx] = vn
	}
}

// perpendicular returns some vector orthogonal to n.
func perpendicular(n mathutil.Vec3) mathutil.Vec3 {
	if math.Abs(n[0]) < 0.9 {
		return mathutil.Vec3{1, 0, 0}.Sub(n.Scale(n[0]))
	}
	return mathutil.Vec3{0, 1, 0}.Sub(n.Scale(n[1]))
}
