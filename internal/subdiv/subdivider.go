// Package subdiv refines triangle meshes. A Subdivider runs one pass of a
// Strategy against a private copy of a Submesh and installs the result back,
// either inline or on a worker goroutine that hands buffer regeneration to the
// consumer's task queue.
package subdiv

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/mesh"
	"mesh-subdivider/internal/taskqueue"
)

var (
	// ErrPassInFlight is returned by Subdivide while a threaded pass of the same Subdivider is running.
	ErrPassInFlight = errors.New("subdiv: pass already in flight")

	// ErrNoQueue is returned by a threaded Subdivide that needs to regenerate buffers but has no task queue.
	ErrNoQueue = errors.New("subdiv: threaded pass needs a task queue")
)

// Strategy is one subdivision algorithm.
type Strategy interface {
	Name() string

	// Divide builds the refined mesh through sd's working-copy accessors.
	// It must not touch the live Submesh.
	Divide(sd *Subdivider, center mathutil.Vec3)

	// Cleanup releases strategy-local state kept between passes.
	Cleanup()
}

// Options control one Subdivide call.
type Options struct {
	// Threaded runs the pass on its own goroutine and returns immediately.
	Threaded bool

	// SkipBuffers leaves normals and buffers alone after installation.
	SkipBuffers bool
}

// Subdivider orchestrates passes of a Strategy over one Submesh.
// Calls on one Subdivider must be serialized by the caller.
type Subdivider struct {
	strategy Strategy
	target   *mesh.Submesh
	queue    taskqueue.Enqueuer

	mu       sync.Mutex // guards the fields below up to the working copy
	onEnd    func(arg any)
	onEndArg any
	running  chan struct{} // closed when the current threaded pass ends

	// Working copy. Owned by the caller until a threaded pass starts, then by its goroutine.
	points    mesh.PointList
	source    []*mesh.SmoothingGroup
	groups    []*mesh.SmoothingGroup
	fallbacks int
}

// NewSubdivider wires a strategy to a submesh. queue receives buffer
// regeneration tasks from threaded passes and may be nil if none are run.
func NewSubdivider(s Strategy, target *mesh.Submesh, queue taskqueue.Enqueuer) *Subdivider {
	if s == nil || target == nil {
		panic("subdiv: NewSubdivider needs a strategy and a submesh")
	}
	return &Subdivider{strategy: s, target: target, queue: queue}
}

// Strategy returns the algorithm this Subdivider runs.
func (sd *Subdivider) Strategy() Strategy { return sd.strategy }

// Target returns the submesh results are installed into.
func (sd *Subdivider) Target() *mesh.Submesh { return sd.target }

// Initialise copies the submesh's points and groups into the working copy.
// Output groups start empty, with the same IDs and any manual normals carried over.
func (sd *Subdivider) Initialise() {
	pts, groups := sd.target.Capture()
	sd.points = pts
	sd.source = groups
	sd.groups = make([]*mesh.SmoothingGroup, len(groups))
	for i, g := range groups {
		out := mesh.NewSmoothingGroup(g.ID)
		for idx, vn := range g.Normals {
			if vn.Manual {
				out.Normals[idx] = vn
			}
		}
		sd.groups[i] = out
	}
	sd.fallbacks = 0
}

// SetThreadEndFunc registers fn to run right after a pass installs its result
// and before any buffer task is enqueued. fn must not call Cleanup or Wait on
// this Subdivider. The registration is captured when a pass starts.
func (sd *Subdivider) SetThreadEndFunc(fn func(arg any), arg any) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.onEnd = fn
	sd.onEndArg = arg
}

// Subdivide runs one pass. center biases strategies that use it.
// Inline passes return after installation and buffer regeneration. Threaded
// passes return at once; installation happens on the worker goroutine and
// buffer regeneration is enqueued for the consumer.
func (sd *Subdivider) Subdivide(center mathutil.Vec3, opts Options) error {
	sd.mu.Lock()
	if sd.busyLocked() {
		sd.mu.Unlock()
		return ErrPassInFlight
	}
	if opts.Threaded && !opts.SkipBuffers && sd.queue == nil {
		sd.mu.Unlock()
		return ErrNoQueue
	}
	fn, arg := sd.onEnd, sd.onEndArg
	sd.Initialise()

	if !opts.Threaded {
		sd.mu.Unlock()
		sd.run(center, opts, fn, arg)
		return nil
	}

	done := make(chan struct{})
	sd.running = done
	sd.mu.Unlock()

	go func() {
		defer close(done)
		sd.run(center, opts, fn, arg)
	}()
	return nil
}

func (sd *Subdivider) run(center mathutil.Vec3, opts Options, fn func(any), arg any) {
	start := time.Now()
	inFaces := 0
	for _, g := range sd.source {
		inFaces += len(g.Faces)
	}
	Logger().Debug("subdiv: pass start",
		"strategy", sd.strategy.Name(), "submesh", sd.target.Name,
		"points", sd.points.Len(), "faces", inFaces, "threaded", opts.Threaded)

	sd.strategy.Divide(sd, center)

	points, faces := sd.points.Len(), 0
	for _, g := range sd.groups {
		faces += len(g.Faces)
	}
	if sd.fallbacks > 0 {
		Logger().Warn("subdiv: degenerate normals fell back to linear midpoints",
			"strategy", sd.strategy.Name(), "submesh", sd.target.Name, "edges", sd.fallbacks)
	}

	// the submesh takes ownership of the working arrays
	sd.target.Install(sd.points, sd.groups, !opts.Threaded && !opts.SkipBuffers)
	sd.release()

	if fn != nil {
		fn(arg)
	}
	if opts.Threaded && !opts.SkipBuffers {
		sd.queue.Enqueue(refreshTask{target: sd.target})
	}

	Logger().Debug("subdiv: pass done",
		"strategy", sd.strategy.Name(), "submesh", sd.target.Name,
		"points", points, "faces", faces, "elapsed", time.Since(start))
}

// refreshTask recomputes normals and buffers on the consumer goroutine.
type refreshTask struct {
	target *mesh.Submesh
}

func (t refreshTask) Apply() { t.target.Refresh() }

// Wait blocks until the current threaded pass, if any, has finished.
func (sd *Subdivider) Wait() {
	sd.mu.Lock()
	done := sd.running
	sd.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Cleanup waits for an in-flight pass, then releases the working copy, the
// registered end function and strategy scratch. Calling it again is harmless.
func (sd *Subdivider) Cleanup() {
	sd.Wait()
	sd.mu.Lock()
	sd.onEnd = nil
	sd.onEndArg = nil
	sd.running = nil
	sd.mu.Unlock()
	sd.release()
	sd.strategy.Cleanup()
}

func (sd *Subdivider) release() {
	sd.points = mesh.PointList{}
	sd.source = nil
	sd.groups = nil
}

func (sd *Subdivider) busyLocked() bool {
	if sd.running == nil {
		return false
	}
	select {
	case <-sd.running:
		return false
	default:
		return true
	}
}

// Working-copy accessors for strategies.

// SourceGroups returns the groups as captured by Initialise. Treat as read-only.
func (sd *Subdivider) SourceGroups() []*mesh.SmoothingGroup { return sd.source }

// PointCount returns the number of points in the working list.
func (sd *Subdivider) PointCount() int { return sd.points.Len() }

// Point returns the coordinate of working point i.
func (sd *Subdivider) Point(i int) mathutil.Vec3 { return sd.points.Coords(i) }

// AddPoint appends coords to the working list without welding.
// The returned index equals the length before the append.
func (sd *Subdivider) AddPoint(coords mathutil.Vec3) mesh.IndexedPoint {
	return sd.points.Add(coords)
}

// IsInMyPoints returns the index of a working point exactly equal to coords.
func (sd *Subdivider) IsInMyPoints(coords mathutil.Vec3) (int, bool) {
	return sd.points.Find(coords)
}

// Weld returns the index of coords in the working list, adding it if absent.
func (sd *Subdivider) Weld(coords mathutil.Vec3) int {
	if idx, ok := sd.IsInMyPoints(coords); ok {
		return idx
	}
	return sd.AddPoint(coords).Index
}

// AddFace appends a face to output group group and reserves three more
// vertices in the target's buffers. Panics on out-of-range indices.
func (sd *Subdivider) AddFace(a, b, c int, uv [3]mathutil.Vec2, group int) {
	n := sd.points.Len()
	for _, idx := range [3]int{a, b, c} {
		if idx < 0 || idx >= n {
			panic(fmt.Sprintf("subdiv: face index %d out of range [0,%d)", idx, n))
		}
	}
	if group < 0 || group >= len(sd.groups) {
		panic(fmt.Sprintf("subdiv: group index %d out of range [0,%d)", group, len(sd.groups)))
	}
	g := sd.groups[group]
	g.Faces = append(g.Faces, mesh.NewFace(&sd.points, a, b, c, uv))
	sd.target.Buffers().IncreaseSize(3, true)
}

// SetComputedNormal records n for point in output group group unless that
// point already has a normal there. Following passes use it when buffers
// (and with them the normal recomputation) are skipped.
func (sd *Subdivider) SetComputedNormal(group, point int, n mathutil.Vec3) {
	g := sd.groups[group]
	if _, ok := g.Normals[point]; ok {
		return
	}
	g.Normals[point] = mesh.VertexNormal{Normal: n.Normalize()}
}

// Fallback counts an edge whose curved point degenerated to the linear midpoint.
func (sd *Subdivider) Fallback() { sd.fallbacks++ }

// FaceCount returns the number of faces added to the output groups so far.
func (sd *Subdivider) FaceCount() int {
	n := 0
	for _, g := range sd.groups {
		n += len(g.Faces)
	}
	return n
}
