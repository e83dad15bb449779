package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"mesh-subdivider/internal/batch"
	"mesh-subdivider/internal/config"
	"mesh-subdivider/internal/mathutil"
	"mesh-subdivider/internal/subdiv"
	"mesh-subdivider/internal/texture"
	"mesh-subdivider/internal/viewmatrix"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a .json or .toml config file")
	shapes := flag.String("shape", "", "Comma-separated shapes to subdivide (default: icosahedron)")
	levels := flag.Int("levels", -1, "Subdivision passes per shape, 0-6 (default: 2)")
	algorithm := flag.String("algorithm", "", "Strategy: "+strings.Join(subdiv.Names(), ", ")+" (default: pntriangles)")
	threaded := flag.Bool("threaded", false, "Run passes on a worker goroutine and hand buffer rebuilds to the render loop")
	workers := flag.Int("workers", 0, "Number of shapes processed at once (default: NumCPU)")
	outputDir := flag.String("output", "", "Output directory (default: renders)")
	size := flag.Int("size", 0, "Preview edge in pixels (default: 256)")
	texturePath := flag.String("texture", "", "Texture image applied to every shape (png, jpg, bmp, webp, tga)")
	verbose := flag.Bool("v", false, "Log subdivision passes to stderr")

	flag.Parse()

	if *verbose {
		subdiv.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Load config
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	var shapeList []string
	if *shapes != "" {
		for _, s := range strings.Split(*shapes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				shapeList = append(shapeList, s)
			}
		}
	}
	cfg.Resolve(config.Flags{
		Shapes:    shapeList,
		Levels:    *levels,
		Algorithm: *algorithm,
		Threaded:  *threaded,
		Workers:   *workers,
		OutputDir: *outputDir,
		Size:      *size,
		Texture:   *texturePath,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var texCache *texture.Cache
	if cfg.Texture != "" {
		texCache = texture.NewCache()
		if _, err := texCache.Load(cfg.Texture); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading texture: %v\n", err)
			os.Exit(1)
		}
	}

	mode := "inline"
	if cfg.Threaded {
		mode = "threaded"
	}
	fmt.Printf("Mesh subdivider: %s x%d (%s) → WebP\n", cfg.Algorithm, cfg.Levels, mode)
	fmt.Printf("Shapes: %d, Workers: %d\n", len(cfg.Shapes), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir: cfg.OutputDir,
		Algorithm: cfg.Algorithm,
		Levels:    cfg.Levels,
		Threaded:  cfg.Threaded,
		Camera: viewmatrix.Camera{
			View:        mathutil.ViewByName(cfg.View),
			Perspective: cfg.Perspective,
			FOV:         cfg.FOV,
		},
		Texture:     cfg.Texture,
		RenderSize:  cfg.RenderSize,
		Supersample: cfg.Supersample,
		Workers:     cfg.Workers,
	}
	if texCache != nil {
		batchCfg.TexResolver = texCache
	}

	results := batch.Run(ctx, batchCfg, cfg.Shapes)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
			last := batch.LevelStat{}
			if len(r.Levels) > 0 {
				last = r.Levels[len(r.Levels)-1]
			}
			fmt.Printf("  %-12s %6d points %7d faces %7d vertices  %s\n", r.Shape, last.Points, last.Faces, r.Vertices, r.Image)
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(results))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		for _, e := range errors[:min(len(errors), 20)] {
			fmt.Printf("  %s: %s\n", e.Shape, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, batch.NewManifest(batchCfg, results)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
