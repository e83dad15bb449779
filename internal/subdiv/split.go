package subdiv

import (
	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/mesh"
)

// edge is one triangle edge with the shading normals at its endpoints.
type edge struct {
	P1, P2 mathutil.Vec3
	N1, N2 mathutil.Vec3
}

// edgeRule places the new point on an edge. It must give bit-identical
// results for (P1,N1,P2,N2) and (P2,N2,P1,N1), otherwise neighbouring faces
// would not weld and the surface cracks.
type edgeRule func(sd *Subdivider, e edge, center mathutil.Vec3) mathutil.Vec3

// splitFaces replaces every source triangle (a,b,c) with four:
// (a,ab,ca) (ab,b,bc) (ca,bc,c) (ab,bc,ca), where ab, bc, ca come from rule
// and are welded against the working points. Texture coordinates of the new
// corners are the linear edge midpoints regardless of where rule puts the point.
// Groups are visited in order, faces in order, edges as (a,b) (b,c) (c,a).
func splitFaces(sd *Subdivider, center mathutil.Vec3, rule edgeRule) {
	for gi, g := range sd.SourceGroups() {
		for _, f := range g.Faces {
			var mid [3]int
			var uv [3]mathutil.Vec2
			for k := 0; k < 3; k++ {
				i, j := f.Index[k], f.Index[(k+1)%3]
				e := edge{
					P1: sd.Point(i), P2: sd.Point(j),
					N1: cornerNormal(g, f, i), N2: cornerNormal(g, f, j),
				}
				mid[k] = sd.Weld(rule(sd, e, center))
				uv[k] = mathutil.Mid2(f.UV[k], f.UV[(k+1)%3])

				n := e.N1.Add(e.N2)
				if n.IsZero() {
					n = f.Normal
				}
				sd.SetComputedNormal(gi, mid[k], n)
			}

			a, b, c := f.Index[0], f.Index[1], f.Index[2]
			ab, bc, ca := mid[0], mid[1], mid[2]
			sd.AddFace(a, ab, ca, [3]mathutil.Vec2{f.UV[0], uv[0], uv[2]}, gi)
			sd.AddFace(ab, b, bc, [3]mathutil.Vec2{uv[0], f.UV[1], uv[1]}, gi)
			sd.AddFace(ca, bc, c, [3]mathutil.Vec2{uv[2], uv[1], f.UV[2]}, gi)
			sd.AddFace(ab, bc, ca, [3]mathutil.Vec2{uv[0], uv[1], uv[2]}, gi)
		}
	}
}

// cornerNormal is the group's shading normal at point, or the flat face normal if the group has none.
func cornerNormal(g *mesh.SmoothingGroup, f mesh.Face, point int) mathutil.Vec3 {
	if n, ok := g.Normal(point); ok {
		return n
	}
	return f.Normal
}
