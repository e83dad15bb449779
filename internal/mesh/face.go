package mesh

import (
	"fmt"

	"mesh-subdivider/internal/mathutil"
)

// Face is a triangle: three indices into the owning PointList, one texture
// coordinate per corner, and the derived flat face normal.
type Face struct {
	Index  [3]int
	UV     [3]mathutil.Vec2
	Normal mathutil.Vec3
}

// NewFace builds a face over pts and derives its normal.
// Panics if any index is outside pts.
func NewFace(pts *PointList, a, b, c int, uv [3]mathutil.Vec2) Face {
	f := Face{Index: [3]int{a, b, c}, UV: uv}
	f.Recompute(pts)
	return f
}

// Recompute refreshes the face normal from the current point positions.
func (f *Face) Recompute(pts *PointList) {
	f.Normal = FaceNormal(pts.Coords(f.Index[0]), pts.Coords(f.Index[1]), pts.Coords(f.Index[2]))
}

// FaceNormal returns the unit normal of triangle p0 p1 p2 (counter-clockwise front),
// or the zero vector for a zero-area triangle.
func FaceNormal(p0, p1, p2 mathutil.Vec3) mathutil.Vec3 {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// VertexNormal is the shading frame of one point within one smoothing group.
// Manual marks normals and tangents supplied by mesh authoring; ComputeNormals keeps those.
type VertexNormal struct {
	Normal  mathutil.Vec3
	Tangent mathutil.Vec3
	Manual  bool
}

// SmoothingGroup is a set of faces whose normals are averaged at shared points.
// Points referenced by several groups get one independent normal per group.
type SmoothingGroup struct {
	ID      int
	Faces   []Face
	Normals map[int]VertexNormal // point index → frame, sparse
}

// NewSmoothingGroup returns an empty group. Group IDs start at 1.
func NewSmoothingGroup(id int) *SmoothingGroup {
	if id < 1 {
		panic(fmt.Sprintf("mesh: smoothing group id %d must be >= 1", id))
	}
	return &SmoothingGroup{ID: id, Normals: make(map[int]VertexNormal)}
}

// Clone returns a deep copy.
func (g *SmoothingGroup) Clone() *SmoothingGroup {
	out := &SmoothingGroup{
		ID:      g.ID,
		Faces:   make([]Face, len(g.Faces)),
		Normals: make(map[int]VertexNormal, len(g.Normals)),
	}
	copy(out.Faces, g.Faces)
	for k, v := range g.Normals {
		out.Normals[k] = v
	}
	return out
}

// SetNormal assigns a manual normal for point within this group.
func (g *SmoothingGroup) SetNormal(point int, n mathutil.Vec3) {
	vn := g.Normals[point]
	vn.Normal = n.Normalize()
	vn.Manual = true
	g.Normals[point] = vn
}

// Normal returns the group's normal at point, if one is known.
func (g *SmoothingGroup) Normal(point int) (mathutil.Vec3, bool) {
	vn, ok := g.Normals[point]
	if !ok || vn.Normal.IsZero() {
		return mathutil.Vec3{}, false
	}
	return vn.Normal, true
}

// CloneGroups deep-copies a group list.
func CloneGroups(groups []*SmoothingGroup) []*SmoothingGroup {
	out := make([]*SmoothingGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}
