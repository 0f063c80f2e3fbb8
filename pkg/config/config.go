// Package config provides configuration loading and management for voxelcore.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"voxelcore/pkg/transfer"
	"voxelcore/pkg/volume"
)

// ColorNode is one transfer function control point as written in YAML
type ColorNode struct {
	// Position is the raw voxel value the node sits at
	Position float32 `yaml:"position"`

	// RGBA is the colour and opacity assigned at Position, each in [0, 1]
	RGBA [4]float32 `yaml:"rgba"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Volume geometry
	Volume struct {
		// Resolution is the voxel count along X, Y and Z
		Resolution [3]int `yaml:"resolution"`

		// Spacing is the physical voxel size along X, Y and Z in mm
		Spacing [3]float32 `yaml:"spacing"`

		// NormalizeSize rescales the volume so its longest side is 1
		NormalizeSize bool `yaml:"normalizeSize"`

		// Storage selects the voxel buffer location: "host" or "pooled"
		Storage string `yaml:"storage"`
	} `yaml:"volume"`

	// Phantom describes the synthetic data set used in place of a scan
	Phantom struct {
		// Kind is one of "sphere", "shell" or "ramp"
		Kind string `yaml:"kind"`

		// Radius is the sphere or shell radius as a fraction of the
		// smallest half extent
		Radius float64 `yaml:"radius"`

		// Background and Foreground are the voxel values outside and inside
		Background uint16 `yaml:"background"`
		Foreground uint16 `yaml:"foreground"`
	} `yaml:"phantom"`

	// Transfer function control points
	Transfer struct {
		Nodes []ColorNode `yaml:"nodes"`
	} `yaml:"transfer"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for preprocessing
		NumCores int `yaml:"numCores"`

		// HistogramBins is the number of bins in the printed histogram
		HistogramBins int `yaml:"histogramBins"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveSlices writes classified axis-aligned slices as TIFF files
		SaveSlices bool `yaml:"saveSlices"`

		// SlicesDir is where slice sequences are written
		SlicesDir string `yaml:"slicesDir"`

		// Axes lists the axes to slice along
		Axes []string `yaml:"axes"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Volume.Resolution = [3]int{64, 64, 32}
	cfg.Volume.Spacing = [3]float32{1, 1, 2}
	cfg.Volume.NormalizeSize = true
	cfg.Volume.Storage = "host"

	cfg.Phantom.Kind = "sphere"
	cfg.Phantom.Radius = 0.6
	cfg.Phantom.Background = 100
	cfg.Phantom.Foreground = 3000

	// Transparent air, semi-opaque soft tissue, opaque dense material
	cfg.Transfer.Nodes = []ColorNode{
		{Position: 0, RGBA: [4]float32{0, 0, 0, 0}},
		{Position: 500, RGBA: [4]float32{0.8, 0.3, 0.2, 0.1}},
		{Position: 2000, RGBA: [4]float32{1, 0.9, 0.8, 0.8}},
		{Position: 4095, RGBA: [4]float32{1, 1, 1, 1}},
	}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.HistogramBins = 16

	cfg.Output.SaveSlices = false
	cfg.Output.SlicesDir = "classified_slices"
	cfg.Output.Axes = []string{"x", "y", "z"}
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the settings that would otherwise produce an empty volume
// or silently truncated transfer function.
func (c *Config) Validate() error {
	for i, r := range c.Volume.Resolution {
		if r < 1 {
			return fmt.Errorf("volume resolution[%d] must be at least 1, got %d", i, r)
		}
	}
	for i, s := range c.Volume.Spacing {
		if s <= 0 {
			return fmt.Errorf("volume spacing[%d] must be positive, got %g", i, s)
		}
	}

	switch c.Volume.Storage {
	case "", "host", "pooled":
	default:
		return fmt.Errorf("unknown volume storage %q (must be host or pooled)", c.Volume.Storage)
	}

	if n := len(c.Transfer.Nodes); n > transfer.MaxNodes-1 {
		return fmt.Errorf("transfer function has %d nodes, at most %d are supported", n, transfer.MaxNodes-1)
	}

	return nil
}

// Storage returns the voxel storage named by Volume.Storage
func (c *Config) Storage() volume.Storage {
	if c.Volume.Storage == "pooled" {
		return volume.NewPooledStorage()
	}
	return volume.HostStorage{}
}

// ColorMap builds a canonicalized transfer function from Transfer.Nodes
func (c *Config) ColorMap() *transfer.ColorMap {
	cm := &transfer.ColorMap{}
	for _, n := range c.Transfer.Nodes {
		cm.AddNode(n.Position, mgl32.Vec4(n.RGBA))
	}
	cm.Canonicalize()
	return cm
}
