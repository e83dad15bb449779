// Package config loads batch settings from a JSON or TOML file and merges
// them with command-line flags.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"mesh-subdivider/internal/shape"
	"mesh-subdivider/internal/subdiv"
)

// MaxLevels bounds the number of passes; every pass quadruples the face count.
const MaxLevels = 6

// ErrInvalid is wrapped by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config holds the batch and render settings.
type Config struct {
	// Subdivision
	Shapes    []string `json:"shapes" toml:"shapes"`
	Levels    int      `json:"levels" toml:"levels"`
	Algorithm string   `json:"algorithm" toml:"algorithm"`
	Threaded  bool     `json:"threaded" toml:"threaded"`

	// Render settings
	Texture     string  `json:"texture" toml:"texture"`
	View        string  `json:"view" toml:"view"`
	Perspective bool    `json:"perspective" toml:"perspective"`
	FOV         float64 `json:"fov" toml:"fov"`
	RenderSize  int     `json:"render_size" toml:"render_size"`
	Supersample int     `json:"supersample" toml:"supersample"`

	// Output
	OutputDir string `json:"output_dir" toml:"output_dir"`
	Workers   int    `json:"workers" toml:"workers"`
}

// Default returns the settings used when neither file nor flags set a field.
func Default() Config {
	return Config{
		Shapes:      []string{"icosahedron"},
		Levels:      2,
		Algorithm:   "pntriangles",
		View:        "default",
		RenderSize:  256,
		Supersample: 2,
		OutputDir:   "renders",
		Workers:     runtime.NumCPU(),
	}
}

// Load reads a .json or .toml config file. Fields the file does not set keep
// their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	default:
		return Config{}, fmt.Errorf("config: %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Zero values, and Levels below 0, leave the file's value alone.
type Flags struct {
	Shapes    []string
	Levels    int
	Algorithm string
	Threaded  bool
	Workers   int
	OutputDir string
	Size      int
	Texture   string
}

// Resolve applies flags on top of c, then fills any still-empty field with its default.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if len(flags.Shapes) > 0 {
		c.Shapes = flags.Shapes
	}
	if flags.Levels >= 0 {
		c.Levels = flags.Levels
	}
	if flags.Algorithm != "" {
		c.Algorithm = flags.Algorithm
	}
	if flags.Threaded {
		c.Threaded = true
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Size > 0 {
		c.RenderSize = flags.Size
	}
	if flags.Texture != "" {
		c.Texture = flags.Texture
	}

	d := Default()
	if len(c.Shapes) == 0 {
		c.Shapes = d.Shapes
	}
	if c.Algorithm == "" {
		c.Algorithm = d.Algorithm
	}
	if c.View == "" {
		c.View = d.View
	}
	if c.RenderSize <= 0 {
		c.RenderSize = d.RenderSize
	}
	if c.Supersample <= 0 {
		c.Supersample = d.Supersample
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
}

// Validate rejects settings the batch runner cannot honour.
func (c *Config) Validate() error {
	if c.Levels < 0 || c.Levels > MaxLevels {
		return fmt.Errorf("%w: levels %d outside 0..%d", ErrInvalid, c.Levels, MaxLevels)
	}
	if !slices.Contains(subdiv.Names(), c.Algorithm) {
		return fmt.Errorf("%w: algorithm %q (have %s)", ErrInvalid, c.Algorithm, strings.Join(subdiv.Names(), ", "))
	}
	known := shape.Names()
	for _, s := range c.Shapes {
		if !slices.Contains(known, s) {
			return fmt.Errorf("%w: shape %q (have %s)", ErrInvalid, s, strings.Join(known, ", "))
		}
	}
	switch c.View {
	case "default", "top", "front":
	default:
		return fmt.Errorf("%w: view %q", ErrInvalid, c.View)
	}
	if c.FOV < 0 || c.FOV >= 180 {
		return fmt.Errorf("%w: fov %v", ErrInvalid, c.FOV)
	}
	return nil
}
