package subdiv

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/mesh"
	"mesh-subdivider/internal/shape"
	"mesh-subdivider/internal/taskqueue"
)

var origin mathutil.Vec3

func flatTriangle(t *testing.T) *mesh.Submesh {
	t.Helper()
	sm := mesh.NewSubmesh("tri")
	sm.AddPoint(mathutil.Vec3{0, 0, 0})
	sm.AddPoint(mathutil.Vec3{1, 0, 0})
	sm.AddPoint(mathutil.Vec3{0, 1, 0})
	g := sm.AddGroup(1)
	sm.AddFace(0, 1, 2, [3]mathutil.Vec2{{0, 0}, {1, 0}, {0, 1}}, g)
	for i := 0; i < 3; i++ {
		sm.SetNormal(g, i, mathutil.Vec3{0, 0, 1})
	}
	return sm
}

// twoTriangles shares edge 1-2 between faces (0,1,2) and (1,3,2).
func twoTriangles(t *testing.T, lift float64) *mesh.Submesh {
	t.Helper()
	sm := mesh.NewSubmesh("pair")
	sm.AddPoint(mathutil.Vec3{0, 0, 0})
	sm.AddPoint(mathutil.Vec3{1, 0, 0})
	sm.AddPoint(mathutil.Vec3{0, 1, 0})
	sm.AddPoint(mathutil.Vec3{1, 1, lift})
	g := sm.AddGroup(1)
	var uv [3]mathutil.Vec2
	sm.AddFace(0, 1, 2, uv, g)
	sm.AddFace(1, 3, 2, uv, g)
	sm.ComputeNormals()
	return sm
}

func newPN(t *testing.T, sm *mesh.Submesh, q taskqueue.Enqueuer) *Subdivider {
	t.Helper()
	sd, err := New("pntriangles", sm, q)
	require.NoError(t, err)
	t.Cleanup(sd.Cleanup)
	return sd
}

func TestFlatTriangleSubdividesLinearly(t *testing.T) {
	sm := flatTriangle(t)
	sd := newPN(t, sm, nil)
	require.NoError(t, sd.Subdivide(origin, Options{}))

	pts := sm.Points()
	require.Equal(t, 6, pts.Len())
	assert.Equal(t, mathutil.Vec3{0.5, 0, 0}, pts.Coords(3))
	assert.Equal(t, mathutil.Vec3{0.5, 0.5, 0}, pts.Coords(4))
	assert.Equal(t, mathutil.Vec3{0, 0.5, 0}, pts.Coords(5))
	assert.Equal(t, 4, sm.FaceCount())
	require.NoError(t, sm.Validate())

	faces := sm.Groups()[0].Faces
	assert.Equal(t, [3]int{0, 3, 5}, faces[0].Index)
	assert.Equal(t, [3]int{3, 1, 4}, faces[1].Index)
	assert.Equal(t, [3]int{5, 4, 2}, faces[2].Index)
	assert.Equal(t, [3]int{3, 4, 5}, faces[3].Index)
	for _, f := range faces {
		assert.Equal(t, mathutil.Vec3{0, 0, 1}, f.Normal, "winding is preserved")
	}
}

func TestTextureCoordinatesStayLinear(t *testing.T) {
	sm := twoTriangles(t, 0.8)
	groups := sm.Groups()
	groups[0].Faces[0].UV = [3]mathutil.Vec2{{0, 0}, {1, 0}, {0, 1}}
	sm.SetGroups(groups)
	sm.ComputeNormals()

	sd := newPN(t, sm, nil)
	require.NoError(t, sd.Subdivide(origin, Options{}))

	f := sm.Groups()[0].Faces[3] // central triangle of the first source face
	assert.Equal(t, [3]mathutil.Vec2{{0.5, 0}, {0.5, 0.5}, {0, 0.5}}, f.UV)
}

func TestSharedEdgeWelds(t *testing.T) {
	for _, lift := range []float64{0, 0.7} {
		sm := twoTriangles(t, lift)
		sd := newPN(t, sm, nil)
		require.NoError(t, sd.Subdivide(origin, Options{}))

		assert.Equal(t, 4+5, sm.PointCount(), "lift %v: shared edge point must be welded", lift)
		assert.Equal(t, 8, sm.FaceCount())
		require.NoError(t, sm.Validate())

		pts := sm.Points()
		seen := make(map[mathutil.Vec3]bool)
		for _, p := range pts.All() {
			assert.False(t, seen[p.Coords], "duplicate point %v", p.Coords)
			seen[p.Coords] = true
		}
	}
}

func TestCurvedEdgeLeavesFlatMidpoint(t *testing.T) {
	// Point 1 sits on the crease, so its normal tilts away from the flat
	// normal at point 0: the new point on edge 0-1 must leave the chord.
	sm := twoTriangles(t, 0.7)
	sd := newPN(t, sm, nil)
	require.NoError(t, sd.Subdivide(origin, Options{}))

	pts := sm.Points()
	flat := mathutil.Mid(mathutil.Vec3{0, 0, 0}, mathutil.Vec3{1, 0, 0})
	_, ok := pts.Find(flat)
	assert.False(t, ok)
	assert.Equal(t, 9, pts.Len())
}

func TestFaceCountLaw(t *testing.T) {
	for _, name := range Names() {
		sm := shape.Icosahedron()
		n := sm.FaceCount()
		sd, err := New(name, sm, nil)
		require.NoError(t, err)
		for level := 1; level <= 3; level++ {
			require.NoError(t, sd.Subdivide(origin, Options{}))
			n *= 4
			assert.Equal(t, n, sm.FaceCount(), "%s level %d", name, level)
			require.NoError(t, sm.Validate(), "%s level %d", name, level)
		}
		sd.Cleanup()
	}
}

func TestClosedMeshStaysWatertight(t *testing.T) {
	// Euler characteristic of a sphere: V - E + F = 2, with E = 3F/2 for a closed triangle mesh.
	sm := shape.Octahedron()
	sd := newPN(t, sm, nil)
	for level := 0; level < 3; level++ {
		require.NoError(t, sd.Subdivide(origin, Options{}))
		v, f := sm.PointCount(), sm.FaceCount()
		assert.Equal(t, 2, v-3*f/2+f, "level %d", level)
	}
}

func TestPNPushesTowardsSphere(t *testing.T) {
	pn := shape.Octahedron()
	lin := shape.Octahedron()
	require.NoError(t, newPN(t, pn, nil).Subdivide(origin, Options{}))
	ld, err := New("linear", lin, nil)
	require.NoError(t, err)
	require.NoError(t, ld.Subdivide(origin, Options{}))

	pnPts, linPts := pn.Points(), lin.Points()
	require.Equal(t, linPts.Len(), pnPts.Len())
	for i := 6; i < pnPts.Len(); i++ {
		rp, rl := pnPts.Coords(i).Len(), linPts.Coords(i).Len()
		assert.Greater(t, rp, rl, "point %d", i)
	}
}

func TestSphericalUsesCenter(t *testing.T) {
	sm := shape.Octahedron()
	sd, err := New("spherical", sm, nil)
	require.NoError(t, err)
	require.NoError(t, sd.Subdivide(origin, Options{}))

	pts := sm.Points()
	for _, p := range pts.All() {
		assert.InDelta(t, 1, p.Coords.Len(), 1e-12)
	}
}

func TestDegenerateTriangleFallsBackToMidpoint(t *testing.T) {
	sm := mesh.NewSubmesh("sliver")
	sm.AddPoint(mathutil.Vec3{0, 0, 0})
	sm.AddPoint(mathutil.Vec3{1, 0, 0})
	sm.AddPoint(mathutil.Vec3{2, 0, 0})
	g := sm.AddGroup(1)
	sm.AddFace(0, 1, 2, [3]mathutil.Vec2{}, g)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	sd := newPN(t, sm, nil)
	require.NoError(t, sd.Subdivide(origin, Options{}))

	pts := sm.Points()
	for _, p := range pts.All() {
		assert.True(t, p.Coords.IsFinite())
	}
	_, ok := pts.Find(mathutil.Vec3{0.5, 0, 0})
	assert.True(t, ok)
	assert.Equal(t, 4, sm.FaceCount())
	assert.Contains(t, buf.String(), "fell back to linear midpoints")
}

func TestManualNormalsSurvive(t *testing.T) {
	sm := flatTriangle(t)
	sd := newPN(t, sm, nil)
	require.NoError(t, sd.Subdivide(origin, Options{}))

	g := sm.Groups()[0]
	for i := 0; i < 3; i++ {
		assert.True(t, g.Normals[i].Manual, "corner %d", i)
	}
	for i := 3; i < 6; i++ {
		assert.False(t, g.Normals[i].Manual, "edge point %d", i)
		assert.InDelta(t, 1, g.Normals[i].Normal[2], 1e-12)
	}
}

func TestSkipBuffersStillCarriesNormals(t *testing.T) {
	sm := shape.Octahedron()
	sd := newPN(t, sm, nil)
	require.NoError(t, sd.Subdivide(origin, Options{SkipBuffers: true}))
	assert.True(t, sm.Snapshot().Stale)

	g := sm.Groups()[0]
	for _, f := range g.Faces {
		for _, idx := range f.Index {
			_, ok := g.Normal(idx)
			assert.True(t, ok, "point %d has no normal", idx)
		}
	}

	require.NoError(t, sd.Subdivide(origin, Options{}))
	snap := sm.Snapshot()
	assert.False(t, snap.Stale)
	assert.Len(t, snap.Indices, 3*8*16)
}

func TestWeldHelpers(t *testing.T) {
	sd := newPN(t, flatTriangle(t), nil)
	sd.Initialise()
	require.Equal(t, 3, sd.PointCount())

	c := mathutil.Vec3{0.25, 0.25, 0}
	_, ok := sd.IsInMyPoints(c)
	assert.False(t, ok)

	p := sd.AddPoint(c)
	assert.Equal(t, 3, p.Index)
	i1, ok1 := sd.IsInMyPoints(c)
	i2, ok2 := sd.IsInMyPoints(c)
	assert.True(t, ok1 && ok2)
	assert.Equal(t, i1, i2)
	assert.Equal(t, 3, i1)

	assert.Equal(t, 3, sd.Weld(c))
	assert.Equal(t, 4, sd.Weld(mathutil.Vec3{0.75, 0, 0}))

	dup := sd.AddPoint(c)
	assert.Equal(t, 5, dup.Index, "AddPoint does not weld")
}

func TestAddFaceReservesAndValidates(t *testing.T) {
	sm := flatTriangle(t)
	sd := newPN(t, sm, nil)
	sd.Initialise()

	before := sm.Buffers().Capacity()
	sd.AddFace(0, 1, 2, [3]mathutil.Vec2{}, 0)
	assert.Equal(t, before+3, sm.Buffers().Capacity())
	assert.Equal(t, 1, sd.FaceCount())

	assert.Panics(t, func() { sd.AddFace(0, 1, 3, [3]mathutil.Vec2{}, 0) })
	assert.Panics(t, func() { sd.AddFace(0, 1, -1, [3]mathutil.Vec2{}, 0) })
	assert.Panics(t, func() { sd.AddFace(0, 1, 2, [3]mathutil.Vec2{}, 1) })
	assert.Equal(t, 1, sm.FaceCount(), "live submesh untouched by the working copy")
}

func TestDeterministic(t *testing.T) {
	run := func() (mesh.PointList, []*mesh.SmoothingGroup) {
		sm := shape.Cube()
		sd := newPN(t, sm, nil)
		require.NoError(t, sd.Subdivide(origin, Options{}))
		require.NoError(t, sd.Subdivide(origin, Options{}))
		return sm.Capture()
	}
	p1, g1 := run()
	p2, g2 := run()
	assert.Equal(t, p1.All(), p2.All())
	require.Len(t, g2, len(g1))
	for i := range g1 {
		assert.Equal(t, g1[i].Faces, g2[i].Faces)
	}
}

// recorder logs events from the end function and the queue in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	q      *taskqueue.Queue
}

func (r *recorder) log(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Enqueue(t taskqueue.Task) {
	r.log("enqueue")
	r.q.Enqueue(t)
}

func TestThreadedOrdering(t *testing.T) {
	sm := flatTriangle(t)
	rec := &recorder{q: taskqueue.New()}
	sd := newPN(t, sm, rec)

	var facesAtEnd, queuedAtEnd int
	sd.SetThreadEndFunc(func(arg any) {
		rec.log("end:" + arg.(string))
		facesAtEnd = sm.FaceCount()
		queuedAtEnd = rec.q.Len()
	}, "tri")

	require.NoError(t, sd.Subdivide(origin, Options{Threaded: true}))
	sd.Wait()

	assert.Equal(t, []string{"end:tri", "enqueue"}, rec.events)
	assert.Equal(t, 4, facesAtEnd, "end function sees installed geometry")
	assert.Equal(t, 0, queuedAtEnd)

	assert.True(t, sm.Snapshot().Stale, "buffers wait for the consumer")
	assert.Equal(t, 1, rec.q.Drain())
	snap := sm.Snapshot()
	assert.False(t, snap.Stale)
	assert.Len(t, snap.Indices, 12)
}

func TestThreadedSkipBuffersEnqueuesNothing(t *testing.T) {
	q := taskqueue.New()
	sm := flatTriangle(t)
	sd := newPN(t, sm, q)
	require.NoError(t, sd.Subdivide(origin, Options{Threaded: true, SkipBuffers: true}))
	sd.Wait()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 4, sm.FaceCount())
}

func TestThreadedNeedsQueue(t *testing.T) {
	sm := flatTriangle(t)
	sd := newPN(t, sm, nil)
	assert.ErrorIs(t, sd.Subdivide(origin, Options{Threaded: true}), ErrNoQueue)
	assert.Equal(t, 1, sm.FaceCount())
}

func TestThreadedSubdivideThenCleanup(t *testing.T) {
	sm := shape.Icosahedron()
	q := taskqueue.New()
	sd, err := New("pntriangles", sm, q)
	require.NoError(t, err)

	oldPoints, oldFaces := sm.PointCount(), sm.FaceCount()

	// The consumer drains its queue every frame and checks what it sees.
	stop := make(chan struct{})
	consumerDone := make(chan struct{})
	var torn atomic.Int32
	go func() {
		defer close(consumerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			q.Drain()
			s := sm.Snapshot()
			old := s.Points == oldPoints && s.Faces == oldFaces
			fresh := s.Points == 42 && s.Faces == 80
			if !old && !fresh {
				torn.Add(1)
			}
		}
	}()

	finished := make(chan struct{})
	go func() {
		assert.NoError(t, sd.Subdivide(origin, Options{Threaded: true}))
		sd.Cleanup()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("Subdivide + Cleanup deadlocked")
	}
	close(stop)
	<-consumerDone

	assert.Zero(t, torn.Load(), "consumer observed a partially updated submesh")
	q.Drain()
	snap := sm.Snapshot()
	assert.Equal(t, 42, snap.Points)
	assert.Equal(t, 80, snap.Faces)
	assert.False(t, snap.Stale)
}

// gate holds a pass open until released.
type gate struct {
	Linear
	entered chan struct{}
	release chan struct{}
}

func (g *gate) Divide(sd *Subdivider, center mathutil.Vec3) {
	close(g.entered)
	<-g.release
	g.Linear.Divide(sd, center)
}

func TestSecondPassWhileInFlight(t *testing.T) {
	sm := flatTriangle(t)
	q := taskqueue.New()
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	sd := NewSubdivider(g, sm, q)
	t.Cleanup(sd.Cleanup)

	require.NoError(t, sd.Subdivide(origin, Options{Threaded: true}))
	<-g.entered
	assert.ErrorIs(t, sd.Subdivide(origin, Options{}), ErrPassInFlight)
	assert.Equal(t, 1, sm.FaceCount(), "nothing installed while the pass is running")

	close(g.release)
	sd.Wait()
	assert.Equal(t, 4, sm.FaceCount())

	sd.strategy = &Linear{}
	require.NoError(t, sd.Subdivide(origin, Options{}))
	assert.Equal(t, 16, sm.FaceCount())
}

func TestCleanupIdempotent(t *testing.T) {
	sd := newPN(t, flatTriangle(t), nil)
	sd.SetThreadEndFunc(func(any) {}, nil)
	sd.Cleanup()
	sd.Cleanup()
	assert.Nil(t, sd.onEnd)
	assert.Equal(t, 0, sd.PointCount())
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, Names(), []string{"linear", "pntriangles", "spherical"})

	_, err := Lookup("catmull-clark")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	_, err = New("catmull-clark", mesh.NewSubmesh("x"), nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	assert.Panics(t, func() { Register("pntriangles", func() Strategy { return &PNTriangles{} }) })
	assert.Panics(t, func() { Register("nil", nil) })

	s, err := Lookup("pntriangles")
	require.NoError(t, err)
	assert.Equal(t, "pntriangles", s.Name())
}

func TestLoggerDefaultSilent(t *testing.T) {
	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })

	sd := newPN(t, flatTriangle(t), nil)
	require.NoError(t, sd.Subdivide(origin, Options{}))
	out := buf.String()
	assert.True(t, strings.Contains(out, "pass start") && strings.Contains(out, "pass done"), out)
	assert.NotContains(t, out, "fell back")
}
