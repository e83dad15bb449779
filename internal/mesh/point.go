package mesh

import (
	"fmt"

	"mesh-subdivider/internal/mathutil"
)

// IndexedPoint is a coordinate plus its position in the owning PointList.
type IndexedPoint struct {
	Coords mathutil.Vec3
	Index  int
}

// PointList is an ordered list of points whose Index always equals their slice position.
// The zero value is an empty list ready to use.
type PointList struct {
	pts []IndexedPoint
}

// NewPointList builds a list from raw coordinates, numbered in order.
func NewPointList(coords ...mathutil.Vec3) PointList {
	l := PointList{pts: make([]IndexedPoint, 0, len(coords))}
	for _, c := range coords {
		l.Add(c)
	}
	return l
}

// Len returns the number of points.
func (l *PointList) Len() int {
	return len(l.pts)
}

// At returns the point at i. Panics if i is out of range.
func (l *PointList) At(i int) IndexedPoint {
	l.check(i)
	return l.pts[i]
}

// Coords returns the coordinate of the point at i.
func (l *PointList) Coords(i int) mathutil.Vec3 {
	l.check(i)
	return l.pts[i].Coords
}

// Add appends a point. The returned index equals the pre-append length; no welding happens.
func (l *PointList) Add(c mathutil.Vec3) IndexedPoint {
	p := IndexedPoint{Coords: c, Index: len(l.pts)}
	l.pts = append(l.pts, p)
	return p
}

// Find returns the index of the first point exactly equal to c.
func (l *PointList) Find(c mathutil.Vec3) (int, bool) {
	for i := range l.pts {
		if l.pts[i].Coords == c {
			return i, true
		}
	}
	return -1, false
}

// Remove deletes the point at i and renumbers every later point.
// Faces referencing indices above i must be remapped by the caller (see Submesh.Compact).
func (l *PointList) Remove(i int) {
	l.check(i)
	l.pts = append(l.pts[:i], l.pts[i+1:]...)
	l.renumber(i)
}

// Clone returns an independent copy.
func (l *PointList) Clone() PointList {
	out := PointList{pts: make([]IndexedPoint, len(l.pts))}
	copy(out.pts, l.pts)
	return out
}

// All returns a copy of the points in order.
func (l *PointList) All() []IndexedPoint {
	out := make([]IndexedPoint, len(l.pts))
	copy(out, l.pts)
	return out
}

func (l *PointList) renumber(from int) {
	for j := from; j < len(l.pts); j++ {
		l.pts[j].Index = j
	}
}

func (l *PointList) check(i int) {
	if i < 0 || i >= len(l.pts) {
		panic(fmt.Sprintf("mesh: point index %d out of range [0,%d)", i, len(l.pts)))
	}
}
