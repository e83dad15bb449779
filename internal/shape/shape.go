// Package shape builds the procedural meshes the tools subdivide.
// Spherical shapes are centred on the origin with unit radius and carry
// manual radial normals; every face carries per-corner texture coordinates.
package shape

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/mesh"
)

// ErrUnknownShape is returned by ByName for names not in Names.
var ErrUnknownShape = errors.New("shape: unknown shape")

var builders = map[string]func() *mesh.Submesh{
	"tetrahedron": Tetrahedron,
	"octahedron":  Octahedron,
	"cube":        Cube,
	"icosahedron": Icosahedron,
	"plane":       func() *mesh.Submesh { return Plane(4) },
}

// Names returns the shapes ByName knows, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName builds a fresh submesh of the named shape.
func ByName(name string) (*mesh.Submesh, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return build(), nil
}

// Tetrahedron is a regular tetrahedron inscribed in the unit sphere.
func Tetrahedron() *mesh.Submesh {
	pts := []mathutil.Vec3{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}
	for i := range pts {
		pts[i] = pts[i].Normalize()
	}
	return sphere("tetrahedron", pts, [][3]int{{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2}})
}

// Octahedron has its six points on the axes, in the order +X -X +Y -Y +Z -Z.
func Octahedron() *mesh.Submesh {
	pts := []mathutil.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	var faces [][3]int
	for _, x := range []int{0, 1} {
		for _, y := range []int{2, 3} {
			for _, z := range []int{4, 5} {
				faces = append(faces, [3]int{x, y, z})
			}
		}
	}
	return sphere("octahedron", pts, faces)
}

// Icosahedron is a regular icosahedron inscribed in the unit sphere.
func Icosahedron() *mesh.Submesh {
	phi := (1 + math.Sqrt(5)) / 2
	pts := []mathutil.Vec3{
		{-1, phi, 0}, {1, phi, 0}, {-1, -phi, 0}, {1, -phi, 0},
		{0, -1, phi}, {0, 1, phi}, {0, -1, -phi}, {0, 1, -phi},
		{phi, 0, -1}, {phi, 0, 1}, {-phi, 0, -1}, {-phi, 0, 1},
	}
	for i := range pts {
		pts[i] = pts[i].Normalize()
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	return sphere("icosahedron", pts, faces)
}

// sphere builds a single-group submesh around the origin. Faces are wound
// outward whatever order the table lists them in.
func sphere(name string, pts []mathutil.Vec3, faces [][3]int) *mesh.Submesh {
	sm := mesh.NewSubmesh(name)
	for _, p := range pts {
		sm.AddPoint(p)
	}
	g := sm.AddGroup(1)
	for _, f := range faces {
		f = outward(pts, f)
		sm.AddFace(f[0], f[1], f[2], [3]mathutil.Vec2{sphereUV(pts[f[0]]), sphereUV(pts[f[1]]), sphereUV(pts[f[2]])}, g)
	}
	for i, p := range pts {
		sm.SetNormal(g, i, p)
	}
	sm.Refresh()
	return sm
}

func outward(pts []mathutil.Vec3, f [3]int) [3]int {
	a, b, c := pts[f[0]], pts[f[1]], pts[f[2]]
	centroid := a.Add(b).Add(c)
	if mesh.FaceNormal(a, b, c).Dot(centroid) < 0 {
		f[1], f[2] = f[2], f[1]
	}
	return f
}

// sphereUV is the equirectangular mapping of a unit direction.
func sphereUV(p mathutil.Vec3) mathutil.Vec2 {
	u := 0.5 + math.Atan2(p[1], p[0])/(2*math.Pi)
	v := 0.5 - math.Asin(math.Max(-1, math.Min(1, p[2])))/math.Pi
	return mathutil.Vec2{u, v}
}

// Cube is the axis-aligned cube of half-size 1/√3, so its corners lie on the
// unit sphere. Each side is its own smoothing group, giving hard edges.
func Cube() *mesh.Submesh {
	sm := mesh.NewSubmesh("cube")
	s := 1 / math.Sqrt(3)
	for i := 0; i < 8; i++ {
		x, y, z := -s, -s, -s
		if i&1 != 0 {
			x = s
		}
		if i&2 != 0 {
			y = s
		}
		if i&4 != 0 {
			z = s
		}
		sm.AddPoint(mathutil.Vec3{x, y, z})
	}
	// corners counter-clockwise seen from outside
	sides := [6][4]int{
		{0, 2, 3, 1}, // -Z
		{4, 5, 7, 6}, // +Z
		{0, 1, 5, 4}, // -Y
		{2, 6, 7, 3}, // +Y
		{0, 4, 6, 2}, // -X
		{1, 3, 7, 5}, // +X
	}
	quadUV := [4]mathutil.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for i, q := range sides {
		g := sm.AddGroup(i + 1)
		sm.AddFace(q[0], q[1], q[2], [3]mathutil.Vec2{quadUV[0], quadUV[1], quadUV[2]}, g)
		sm.AddFace(q[0], q[2], q[3], [3]mathutil.Vec2{quadUV[0], quadUV[2], quadUV[3]}, g)
	}
	sm.Refresh()
	return sm
}

// Plane is an n×n grid of quads over [-1,1]² at z = 0, facing +Z, in one group.
// n below 1 is treated as 1.
func Plane(n int) *mesh.Submesh {
	n = max(n, 1)
	sm := mesh.NewSubmesh("plane")
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			sm.AddPoint(mathutil.Vec3{2*float64(i)/float64(n) - 1, 2*float64(j)/float64(n) - 1, 0})
		}
	}
	g := sm.AddGroup(1)
	at := func(i, j int) int { return j*(n+1) + i }
	uv := func(i, j int) mathutil.Vec2 { return mathutil.Vec2{float64(i) / float64(n), float64(j) / float64(n)} }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			sm.AddFace(at(i, j), at(i+1, j), at(i+1, j+1), [3]mathutil.Vec2{uv(i, j), uv(i+1, j), uv(i+1, j+1)}, g)
			sm.AddFace(at(i, j), at(i+1, j+1), at(i, j+1), [3]mathutil.Vec2{uv(i, j), uv(i+1, j+1), uv(i, j+1)}, g)
		}
	}
	sm.Refresh()
	return sm
}
