package mesh

import (
	"fmt"
	"sync/atomic"

	"mesh-subdivider/internal/mathutil"
)

// Vertex is one entry of the GPU-facing vertex buffer.
type Vertex struct {
	Position mathutil.Vec3
	Normal   mathutil.Vec3
	Tangent  mathutil.Vec3
	UV       mathutil.Vec2
	Manual   bool // normal/tangent were authored rather than computed
}

// Buffers holds the vertex and index arrays derived from a Submesh.
// Vertices and Indices are only written by GenerateBuffers, on the consumer goroutine.
// The capacity reservation may be raised from any goroutine.
type Buffers struct {
	Vertices []Vertex
	Indices  []uint32
	Version  uint64 // bumped on every regeneration

	builtFrom uint64 // geometry version the arrays were built from
	reserved  atomic.Int64
	preserve  atomic.Bool
}

// IncreaseSize raises the reserved vertex capacity by delta.
// The reservation only grows; the storage itself is grown at the next
// regeneration, copying old contents first when preserve was requested.
func (b *Buffers) IncreaseSize(delta int, preserve bool) {
	if delta < 0 {
		panic(fmt.Sprintf("mesh: buffer size delta %d must not be negative", delta))
	}
	b.reserved.Add(int64(delta))
	if preserve {
		b.preserve.Store(true)
	}
}

// Capacity returns the current vertex-capacity reservation.
func (b *Buffers) Capacity() int {
	return int(b.reserved.Load())
}

// reserve makes sure the backing arrays can hold need vertices without reallocation
// and at least the reserved capacity.
func (b *Buffers) reserve(need int) {
	want := max(need, b.Capacity())
	if cap(b.Vertices) >= want {
		b.Vertices = b.Vertices[:0]
		b.Indices = b.Indices[:0]
		return
	}
	verts := make([]Vertex, 0, want)
	idx := make([]uint32, 0, want)
	if b.preserve.Swap(false) {
		verts = append(verts, b.Vertices...)
		idx = append(idx, b.Indices...)
	}
	b.Vertices = verts[:0]
	b.Indices = idx[:0]
}

type vertexKey struct {
	point int
	group int
	uv    mathutil.Vec2
}

// generate rebuilds the arrays. A vertex is emitted per unique (point, group, uv),
// so group boundaries stay hard edges in the rendered result.
func (b *Buffers) generate(pts *PointList, groups []*SmoothingGroup, geomVersion uint64) {
	faces := 0
	for _, g := range groups {
		faces += len(g.Faces)
	}
	b.reserve(faces * 3)

	seen := make(map[vertexKey]uint32, faces*3)
	for gi, g := range groups {
		for _, f := range g.Faces {
			for k := 0; k < 3; k++ {
				key := vertexKey{point: f.Index[k], group: gi, uv: f.UV[k]}
				vi, ok := seen[key]
				if !ok {
					vi = uint32(len(b.Vertices))
					seen[key] = vi
					b.Vertices = append(b.Vertices, makeVertex(pts, g, f, k))
				}
				b.Indices = append(b.Indices, vi)
			}
		}
	}
	b.Version++
	b.builtFrom = geomVersion
}

func makeVertex(pts *PointList, g *SmoothingGroup, f Face, corner int) Vertex {
	idx := f.Index[corner]
	v := Vertex{Position: pts.Coords(idx), Normal: f.Normal, UV: f.UV[corner]}
	if vn, ok := g.Normals[idx]; ok && !vn.Normal.IsZero() {
		v.Normal = vn.Normal
		v.Tangent = vn.Tangent
		v.Manual = vn.Manual
	}
	return v
}
