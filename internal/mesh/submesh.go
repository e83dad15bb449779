package mesh

import (
	"errors"
	"fmt"
	"sync"

	"mesh-subdivider/internal/mathutil"
)

// ErrInvalidIndex is wrapped by Validate for faces or groups that break the index invariants.
var ErrInvalidIndex = errors.New("mesh: invalid index")

// Submesh owns one point list, its smoothing groups and the buffers derived from them.
//
// All methods take the submesh lock. The same lock guards installation of a
// subdivision result and buffer regeneration, so readers see either the old
// or the new geometry, never a mix.
type Submesh struct {
	Name string

	mu          sync.Mutex
	points      PointList
	groups      []*SmoothingGroup
	buffers     Buffers
	geomVersion uint64
}

// NewSubmesh returns an empty submesh.
func NewSubmesh(name string) *Submesh {
	return &Submesh{Name: name}
}

// Lock acquires the submesh lock. Not re-entrant: do not call other Submesh methods while holding it.
func (sm *Submesh) Lock() { sm.mu.Lock() }

// Unlock releases the submesh lock.
func (sm *Submesh) Unlock() { sm.mu.Unlock() }

// Points returns a copy of the point list.
func (sm *Submesh) Points() PointList {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.points.Clone()
}

// SetPoints replaces the point list with a copy of pts.
func (sm *Submesh) SetPoints(pts PointList) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.points = pts.Clone()
	sm.geomVersion++
}

// Groups returns a deep copy of the smoothing groups.
func (sm *Submesh) Groups() []*SmoothingGroup {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return CloneGroups(sm.groups)
}

// SetGroups replaces the smoothing groups with a deep copy of groups.
func (sm *Submesh) SetGroups(groups []*SmoothingGroup) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.groups = CloneGroups(groups)
	sm.geomVersion++
}

// Capture copies points and groups together under one lock acquisition.
func (sm *Submesh) Capture() (PointList, []*SmoothingGroup) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.points.Clone(), CloneGroups(sm.groups)
}

// Install replaces points and groups wholesale, taking ownership of both.
// With regenerate set, normals and buffers are rebuilt before the lock is released.
func (sm *Submesh) Install(pts PointList, groups []*SmoothingGroup, regenerate bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.points = pts
	sm.groups = groups
	sm.geomVersion++
	if regenerate {
		sm.refreshLocked()
	}
}

// AddPoint appends a point and returns it.
func (sm *Submesh) AddPoint(c mathutil.Vec3) IndexedPoint {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.geomVersion++
	return sm.points.Add(c)
}

// AddGroup appends an empty smoothing group and returns its position in the group list.
func (sm *Submesh) AddGroup(id int) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.groups = append(sm.groups, NewSmoothingGroup(id))
	return len(sm.groups) - 1
}

// AddFace appends a face to the group at position group. Panics on out-of-range indices.
func (sm *Submesh) AddFace(a, b, c int, uv [3]mathutil.Vec2, group int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	g := sm.groupAt(group)
	g.Faces = append(g.Faces, NewFace(&sm.points, a, b, c, uv))
	sm.geomVersion++
}

// SetNormal assigns a manual normal for point in the group at position group.
func (sm *Submesh) SetNormal(group, point int, n mathutil.Vec3) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.points.check(point)
	sm.groupAt(group).SetNormal(point, n)
}

// PointCount returns the number of points.
func (sm *Submesh) PointCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.points.Len()
}

// FaceCount returns the total number of faces across groups.
func (sm *Submesh) FaceCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return countFaces(sm.groups)
}

// Buffers returns the buffer owner. Only IncreaseSize and Capacity are safe
// without the lock; use Snapshot to read the arrays.
func (sm *Submesh) Buffers() *Buffers {
	return &sm.buffers
}

// GenerateBuffers rebuilds the vertex and index buffers from points and faces.
func (sm *Submesh) GenerateBuffers() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.buffers.generate(&sm.points, sm.groups, sm.geomVersion)
}

// ComputeNormals recomputes per-group vertex normals and tangents.
func (sm *Submesh) ComputeNormals() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	computeNormals(&sm.points, sm.groups)
}

// Refresh recomputes normals and rebuilds the buffers under one lock.
func (sm *Submesh) Refresh() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.refreshLocked()
}

func (sm *Submesh) refreshLocked() {
	computeNormals(&sm.points, sm.groups)
	sm.buffers.generate(&sm.points, sm.groups, sm.geomVersion)
}

// Validate checks the index invariants.
func (sm *Submesh) Validate() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for i, p := range sm.points.pts {
		if p.Index != i {
			return fmt.Errorf("%w: point %d carries index %d", ErrInvalidIndex, i, p.Index)
		}
	}
	ids := make(map[int]bool, len(sm.groups))
	for gi, g := range sm.groups {
		if g.ID < 1 {
			return fmt.Errorf("%w: group %d has id %d", ErrInvalidIndex, gi, g.ID)
		}
		if ids[g.ID] {
			return fmt.Errorf("%w: duplicate group id %d", ErrInvalidIndex, g.ID)
		}
		ids[g.ID] = true
		for fi, f := range g.Faces {
			for _, idx := range f.Index {
				if idx < 0 || idx >= sm.points.Len() {
					return fmt.Errorf("%w: group %d face %d references point %d of %d",
						ErrInvalidIndex, g.ID, fi, idx, sm.points.Len())
				}
			}
		}
	}
	return nil
}

// Compact removes points no face references, renumbering the rest and
// remapping faces and normals. Returns the number of points removed.
func (sm *Submesh) Compact() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	used := make([]bool, sm.points.Len())
	for _, g := range sm.groups {
		for _, f := range g.Faces {
			for _, idx := range f.Index {
				used[idx] = true
			}
		}
	}

	remap := make([]int, len(used))
	var kept PointList
	for i, u := range used {
		if !u {
			remap[i] = -1
			continue
		}
		remap[i] = kept.Add(sm.points.Coords(i)).Index
	}
	removed := sm.points.Len() - kept.Len()
	if removed == 0 {
		return 0
	}

	for _, g := range sm.groups {
		for fi := range g.Faces {
			for k, idx := range g.Faces[fi].Index {
				g.Faces[fi].Index[k] = remap[idx]
			}
		}
		normals := make(map[int]VertexNormal, len(g.Normals))
		for idx, vn := range g.Normals {
			if idx < len(remap) && remap[idx] >= 0 {
				normals[remap[idx]] = vn
			}
		}
		g.Normals = normals
	}
	sm.points = kept
	sm.geomVersion++
	return removed
}

// Snapshot is a consistent copy of a submesh's counts and buffers.
type Snapshot struct {
	Name     string
	Points   int
	Faces    int
	Groups   int
	Vertices []Vertex
	Indices  []uint32
	Version  uint64
	Stale    bool // buffers were built from older geometry than the current points/faces
}

// Snapshot copies the current state under the lock.
func (sm *Submesh) Snapshot() Snapshot {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s := Snapshot{
		Name:     sm.Name,
		Points:   sm.points.Len(),
		Faces:    countFaces(sm.groups),
		Groups:   len(sm.groups),
		Vertices: make([]Vertex, len(sm.buffers.Vertices)),
		Indices:  make([]uint32, len(sm.buffers.Indices)),
		Version:  sm.buffers.Version,
		Stale:    sm.buffers.builtFrom != sm.geomVersion,
	}
	copy(s.Vertices, sm.buffers.Vertices)
	copy(s.Indices, sm.buffers.Indices)
	return s
}

func (sm *Submesh) groupAt(i int) *SmoothingGroup {
	if i < 0 || i >= len(sm.groups) {
		panic(fmt.Sprintf("mesh: group index %d out of range [0,%d)", i, len(sm.groups)))
	}
	return sm.groups[i]
}

func countFaces(groups []*SmoothingGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Faces)
	}
	return n
}
