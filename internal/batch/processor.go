// Package batch subdivides procedural shapes, renders previews of the results
// and writes them as WebP files, a bounded number of jobs at a time.
package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/sync/errgroup"

	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/mesh"
	"mesh-subdivider/internal/raster"
	"mesh-subdivider/internal/shape"
	"mesh-subdivider/internal/subdiv"
	"mesh-subdivider/internal/taskqueue"
	"mesh-subdivider/internal/texture"
	"mesh-subdivider/internal/viewmatrix"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir   string
	Algorithm   string
	Levels      int
	Threaded    bool
	Camera      viewmatrix.Camera
	TexResolver texture.Resolver // nil renders untextured
	Texture     string           // path handed to TexResolver
	RenderSize  int
	Supersample int
	Workers     int

	// Progress is called every couple of seconds while jobs run. Nil prints to stdout.
	Progress func(done, total int, rate float64)
}

// LevelStat is the geometry after one subdivision pass.
type LevelStat struct {
	Level   int           `json:"level"`
	Points  int           `json:"points"`
	Faces   int           `json:"faces"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Result holds the outcome of processing one shape.
type Result struct {
	Shape    string      `json:"shape"`
	Image    string      `json:"image,omitempty"` // relative to the output directory
	Levels   []LevelStat `json:"levels"`
	Vertices int         `json:"vertices"`
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
}

// Run processes every shape with at most cfg.Workers jobs in flight. A failed
// job never stops the others; cancelling ctx skips jobs not yet started.
func Run(ctx context.Context, cfg Config, shapes []string) []Result {
	total := len(shapes)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()
	progress := cfg.Progress
	if progress == nil {
		progress = func(done, total int, rate float64) {
			fmt.Printf("  [%d/%d] %.1f shapes/sec\n", done, total, rate)
		}
	}

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					progress(int(p), total, float64(p)/time.Since(start).Seconds())
				}
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, name := range shapes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Shape: name, Error: err.Error()}
				return nil
			}
			results[i] = processShape(gctx, cfg, name)
			processed.Add(1)
			return nil
		})
	}
	g.Wait()
	close(done)

	return results
}

func processShape(ctx context.Context, cfg Config, name string) Result {
	res := Result{Shape: name}
	fail := func(err error) Result {
		res.Error = err.Error()
		return res
	}

	sm, err := shape.ByName(name)
	if err != nil {
		return fail(err)
	}
	stats, err := Subdivide(ctx, sm, cfg.Algorithm, cfg.Levels, cfg.Threaded)
	res.Levels = stats
	if err != nil {
		return fail(err)
	}

	snap := sm.Snapshot()
	res.Vertices = len(snap.Vertices)

	var tex *image.NRGBA
	if cfg.TexResolver != nil && cfg.Texture != "" {
		tex = cfg.TexResolver.Resolve(cfg.Texture)
	}
	img := raster.Render(snap, raster.Options{
		Size:        cfg.RenderSize,
		Supersample: cfg.Supersample,
		Camera:      cfg.Camera,
		Texture:     tex,
	})
	if cfg.Supersample > 1 {
		img = raster.Downsample(img, cfg.RenderSize)
	}

	rel := filepath.Join(cfg.Algorithm, name+".webp")
	if err := writeWebP(filepath.Join(cfg.OutputDir, rel), img); err != nil {
		return fail(err)
	}
	res.Image = filepath.ToSlash(rel)
	res.Success = true
	return res
}

// Subdivide runs levels passes of the named algorithm over sm and returns the
// geometry after each. Threaded passes run on the Subdivider's goroutine while
// this goroutine acts as the consumer, draining the job's task queue once per
// frame until the pass's buffer task has run.
func Subdivide(ctx context.Context, sm *mesh.Submesh, algorithm string, levels int, threaded bool) ([]LevelStat, error) {
	q := taskqueue.New()
	sd, err := subdiv.New(algorithm, sm, q)
	if err != nil {
		return nil, err
	}
	defer sd.Cleanup()

	var center mathutil.Vec3 // procedural shapes are built around the origin
	stats := make([]LevelStat, levels)
	for level := range stats {
		st := &stats[level]
		st.Level = level + 1
		sd.SetThreadEndFunc(func(arg any) {
			s := arg.(*LevelStat)
			s.Points, s.Faces = sm.PointCount(), sm.FaceCount()
		}, st)

		start := time.Now()
		if err := sd.Subdivide(center, subdiv.Options{Threaded: threaded}); err != nil {
			return stats[:level], fmt.Errorf("batch: level %d: %w", level+1, err)
		}
		if threaded {
			if err := frameLoop(ctx, q); err != nil {
				sd.Wait()
				return stats[:level], fmt.Errorf("batch: level %d: %w", level+1, err)
			}
			sd.Wait()
		}
		st.Elapsed = time.Since(start)
	}
	return stats, nil
}

// frameLoop drains q each time it is signalled until a frame ran at least one task.
func frameLoop(ctx context.Context, q *taskqueue.Queue) error {
	for q.Drain() == 0 {
		select {
		case <-q.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func writeWebP(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("batch: WebP encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	return nil
}
