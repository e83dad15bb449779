package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mesh-subdivider/internal/batch"
	"mesh-subdivider/internal/config"
	"mesh-subdivider/internal/shape"
	"mesh-subdivider/internal/subdiv"
)

func main() {
	name := flag.String("shape", "icosahedron", "Shape: "+strings.Join(shape.Names(), ", "))
	levels := flag.Int("levels", 3, fmt.Sprintf("Subdivision passes, 0-%d", config.MaxLevels))
	algorithm := flag.String("algorithm", "pntriangles", "Strategy: "+strings.Join(subdiv.Names(), ", "))
	flag.Parse()

	if *levels < 0 || *levels > config.MaxLevels {
		fmt.Fprintf(os.Stderr, "Error: levels %d outside 0..%d\n", *levels, config.MaxLevels)
		os.Exit(1)
	}
	sm, err := shape.ByName(*name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src := sm.Snapshot()
	fmt.Printf("%s / %s\n", *name, *algorithm)
	fmt.Printf("%-6s %8s %8s %9s %10s\n", "level", "points", "faces", "vertices", "elapsed")
	fmt.Printf("%-6d %8d %8d %9d %10s\n", 0, src.Points, src.Faces, len(src.Vertices), "-")

	for level := 1; level <= *levels; level++ {
		stats, err := batch.Subdivide(context.Background(), sm, *algorithm, 1, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := sm.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: level %d: %v\n", level, err)
			os.Exit(1)
		}
		st := stats[0]
		fmt.Printf("%-6d %8d %8d %9d %10s\n", level, st.Points, st.Faces, len(sm.Snapshot().Vertices), st.Elapsed.Round(time.Microsecond))
	}
}
